package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// EnsureDatabase creates the database named in dsn when it does not exist.
// dsn must be a postgres:// URL; the check runs against the postgres
// maintenance database on the same server.
func EnsureDatabase(dsn string, log zerolog.Logger) error {
	name, adminURL, err := adminTarget(dsn)
	if err != nil {
		return err
	}

	conn, err := sql.Open("postgres", adminURL)
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("ping admin connection: %w", err)
	}

	var exists bool
	err = conn.QueryRow("SELECT true FROM pg_database WHERE datname = $1", name).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := conn.Exec("CREATE DATABASE " + pq.QuoteIdentifier(name)); err != nil {
		return fmt.Errorf("create database %q: %w", name, err)
	}
	log.Info().Str("database", name).Msg("database created")
	return nil
}

func adminTarget(dsn string) (name, adminURL string, err error) {
	u, err := url.Parse(dsn)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return "", "", fmt.Errorf("database dsn must be a postgres:// url")
	}
	name = strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", "", fmt.Errorf("database name is empty in dsn")
	}
	u.Path = "/postgres"
	return name, u.String(), nil
}
