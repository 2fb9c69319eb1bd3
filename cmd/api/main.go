package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"tryon-server/internal/credits"
	"tryon-server/internal/domain"
	httpapi "tryon-server/internal/http"
	"tryon-server/internal/http/handlers"
	"tryon-server/internal/infra"
	"tryon-server/internal/infra/clerk"
	"tryon-server/internal/infra/geoip"
	"tryon-server/internal/middleware"
	"tryon-server/internal/providers/gradio"
	"tryon-server/internal/providers/replicate"
	"tryon-server/internal/providers/vton"
	"tryon-server/internal/stylist"
	"tryon-server/internal/tryon"
)

func main() {
	// Load .env (optional).
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	ctx := context.Background()

	clerkClient, err := clerk.New(clerk.Options{
		BaseURL:   cfg.ClerkAPIURL,
		JWKSURL:   cfg.ClerkJWKSURL,
		SecretKey: cfg.ClerkSecretKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure identity provider client")
	}

	var ledger credits.Ledger
	switch cfg.CreditLedger {
	case infra.LedgerPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		ledger, err = credits.NewPostgresLedger(ctx, pool, cfg.FreeCredits)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize credit ledger")
		}
	default:
		ledger = credits.NewClerkLedger(clerkClient, cfg.FreeCredits)
	}

	resolver := domain.NewImageResolver(cfg.ProviderTimeout)

	replicateClient := replicate.NewClient(replicate.Options{
		BaseURL:  cfg.ReplicateBaseURL,
		APIToken: cfg.ReplicateAPIToken,
		Model:    cfg.ReplicateModel,
		Timeout:  cfg.ProviderTimeout,
	})
	gradioClient := gradio.NewClient(gradio.Options{
		SpaceURL: cfg.OOTDSpaceURL,
		Token:    cfg.HuggingFaceToken,
		Timeout:  cfg.ProviderTimeout,
	})
	providers := []vton.Provider{
		vton.NewReplicateProvider(replicateClient, resolver),
		vton.NewOOTDProvider(gradioClient, resolver),
	}

	var analyzer stylist.Analyzer
	if cfg.GeminiAPIKey != "" {
		gemini, err := stylist.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn().Err(err).Msg("style analyzer unavailable, using defaults")
		} else {
			defer gemini.Close()
			analyzer = gemini
		}
	}

	var countryLookup middleware.CountryLookup
	if cfg.GeoIPDBPath != "" {
		geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip unavailable, locale detection uses headers only")
		} else if geo != nil {
			defer geo.Close()
			countryLookup = geo.CountryCode
		}
	}

	orchestrator := tryon.New(tryon.Options{
		Providers:      providers,
		Ledger:         ledger,
		Analyzer:       analyzer,
		Resolver:       resolver,
		Logger:         logger,
		AttemptTimeout: cfg.ProviderTimeout,
	})

	app := handlers.NewApp(logger, orchestrator, ledger)
	router := httpapi.NewRouter(app, httpapi.RouterConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		Verifier:        clerkClient,
		CountryLookup:   countryLookup,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
