package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"techservice/internal/config"
	"techservice/internal/db"
	"techservice/internal/logger"
	"techservice/internal/repository"
)

// deps is what every subcommand needs before doing its own work.
type deps struct {
	cfg      *config.Config
	log      zerolog.Logger
	database *gorm.DB
	redis    *redis.Client

	tickets     *repository.TicketRepository
	notes       *repository.NoteRepository
	devices     *repository.DeviceRepository
	technicians *repository.TechnicianRepository
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func bootstrap() (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.Log, cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rt := &deps{
		cfg:         cfg,
		log:         log,
		database:    database,
		tickets:     repository.NewTicketRepository(database),
		notes:       repository.NewNoteRepository(database),
		devices:     repository.NewDeviceRepository(database),
		technicians: repository.NewTechnicianRepository(database),
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		if cfg.Redis.DB != 0 {
			opts.DB = cfg.Redis.DB
		}
		rt.redis = redis.NewClient(opts)
	}
	return rt, nil
}

func (rt *deps) close() {
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.log.Warn().Err(err).Msg("close redis")
		}
	}
	if sqlDB, err := rt.database.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
