package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"techservice/internal/auth"
	"techservice/internal/client"
	"techservice/internal/events"
	httphandler "techservice/internal/http"
	"techservice/internal/http/middleware"
	"techservice/internal/lock"
	"techservice/internal/service"
	"techservice/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the monthly digest scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, log := rt.cfg, rt.log

	var (
		guard       service.Guard
		revocations session.Revocations
	)
	if rt.redis != nil {
		guard = lock.NewRedisGuard(rt.redis, "techservice:lock:", cfg.Lock.TransitionTTL, log)
		revocations = session.NewRedisRevocations(rt.redis, "techservice:revoked:")
		log.Info().Msg("using redis for transition guard and session revocation")
	} else {
		guard = lock.NewMemoryGuard()
		revocations = session.NewMemoryRevocations()
		log.Warn().Msg("REDIS_URL not set, guard and revocations are process-local")
	}

	producer := events.NewProducer(events.ParseBrokers(cfg.Kafka.Brokers), cfg.Kafka.TicketTopic, log)
	defer func() {
		if err := producer.Close(); err != nil {
			log.Warn().Err(err).Msg("close kafka producer")
		}
	}()

	authClient := client.NewAuthClient(cfg)
	sessions := session.NewManager(
		auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.AccessTTL),
		auth.NewParser(cfg.Auth.AccessSecret),
		revocations,
	)

	ticketService := service.NewTicketService(rt.tickets, rt.notes, rt.devices, rt.technicians, log)
	transitionService := service.NewTransitionService(rt.tickets, rt.notes, guard, producer, log)
	catalogService := service.NewCatalogService(rt.devices, rt.technicians, authClient, log)
	authService := service.NewAuthService(authClient, sessions, rt.technicians, log)
	analyticsService := service.NewAnalyticsService(rt.tickets, rt.technicians, cfg.Location())
	digestService := service.NewDigestService(analyticsService, rt.technicians, producer, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := digestService.Schedule(ctx, cfg.Digest.Schedule); err != nil {
		return err
	}

	handler := httphandler.NewHandler(ticketService, transitionService, catalogService, authService, analyticsService, log)
	router := httphandler.NewRouter(handler, middleware.Auth(sessions), cfg.Environment)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting techservice")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
