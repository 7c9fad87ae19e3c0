package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizhub/internal/app"
	"quizhub/internal/auth"
	"quizhub/internal/config"
	"quizhub/internal/logging"
	transport "quizhub/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(logging.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		Debug: cfg.Server.Mode == config.ModeDebug,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := openBackend(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer b.Close()

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL))
	if cfg.Scoring.TrustClient {
		log.Warn("scoring.trust_client is enabled: client-declared scores are persisted after invariant checks")
	}
	handler := transport.NewRouter(transport.Services{
		Auth:        app.NewAuthService(b.users, tokens, log),
		Quizzes:     app.NewQuizService(b.quizzes, b.cache, log),
		Results:     app.NewResultService(b.results, b.users, b.cache, cfg.Scoring.TrustClient, log),
		Leaderboard: app.NewLeaderboardService(b.leaderboard),
	}, transport.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.RateLimit.MaxRequests,
		RateWindow:     config.TTLDuration(cfg.RateLimit.Window, time.Minute),
		Health:         b.ping,
	}, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Info("starting quizhub", zap.String("addr", server.Addr), zap.String("mode", cfg.Server.Mode))
	return serve(ctx, server, log)
}

// serve runs server until a signal arrives, ctx is canceled or the listener fails.
func serve(ctx context.Context, server *http.Server, log *zap.Logger) error {
	failed := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-failed:
		log.Error("server stopped", zap.Error(err))
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
