// README: Entry point; loads config, wires stores and services, serves HTTP until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carpool/internal/config"
	"carpool/internal/events"
	"carpool/internal/geo"
	httptransport "carpool/internal/http"
	"carpool/internal/infra"
	"carpool/internal/modules/location"
	"carpool/internal/modules/pricing"
	"carpool/internal/modules/request"
	"carpool/internal/modules/trip"
	"carpool/internal/modules/vehicle"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := infra.NewLogger("carpool-api")
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("carpool-api stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.DB.AutoMigrate {
		if err := infra.Migrate(cfg.DB.MigrationsPath, cfg.DB.DSN); err != nil {
			return err
		}
		logger.Info("migrations applied", "source", cfg.DB.MigrationsPath)
	}
	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)
	defer redisClient.Close()

	var lookup geo.Lookup = geo.Unavailable{}
	if cfg.Maps.APIKey != "" {
		g, err := geo.NewGoogle(cfg.Geo())
		if err != nil {
			return err
		}
		lookup = g
	} else {
		logger.Warn("maps api key not set; trips and requests are created without coordinates")
	}
	lookup = geo.NewCached(lookup, redisClient, cfg.Redis.GeoCacheTTL)

	var publisher events.Publisher = events.Nop{}
	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers)
		defer kp.Close()
		publisher = kp
	}

	vehicleSvc := vehicle.NewService(vehicle.NewStore(dbPool))
	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), cfg.Pricing.RatePerKm, cfg.Pricing.Currency)
	locationSvc := location.NewService(location.NewStore(dbPool, redisClient))
	tripSvc := trip.NewService(trip.NewStore(dbPool), trip.Deps{
		Geo:     lookup,
		Pricing: pricingSvc,
		Drivers: vehicleSvc,
		Live:    locationSvc,
		Events:  publisher,
	})
	requestSvc := request.NewService(request.NewStore(dbPool), lookup, publisher)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Logger:         logger,
		Verifier:       verifier,
		Geo:            lookup,
		Trips:          tripSvc,
		Requests:       requestSvc,
		Pricing:        pricingSvc,
		Location:       locationSvc,
		Vehicles:       vehicleSvc,
		AllowedOrigins: cfg.AllowedOrigins(),
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTP.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

func newVerifier(ctx context.Context, cfg config.Config) (infra.TokenVerifier, error) {
	if cfg.Auth.Mode == config.AuthModeJWT {
		return infra.NewJWTVerifier(cfg.Auth.JWTSecret), nil
	}
	return infra.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
}
