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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/brrbot/brrbot/internal/bot/config"
	"github.com/brrbot/brrbot/internal/bot/discord"
	"github.com/brrbot/brrbot/internal/bot/server"
	"github.com/brrbot/brrbot/internal/common/logtrace"
)

// shutdownGrace is how long outstanding requests and invocations get to finish.
const shutdownGrace = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Register the slash commands and serve Discord interactions",
		Long: `Register the slash commands and serve Discord interactions on LISTEN_ADDR.

The interactions endpoint is mounted at /interactions. /ready, /version and /metrics
are served next to it. SIGINT or SIGTERM stops the server gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(shutdown)
			return serve(cmd.Context(), config.Config(), shutdown)
		},
	}
}

// serve runs the bot until a signal arrives on shutdown or the listener fails.
func serve(ctx context.Context, cfg *config.ConfigParam, shutdown <-chan os.Signal) error {
	if ctx == nil {
		ctx = context.Background()
	}
	closer, err := logtrace.InitFileLogger(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer closer.Close()

	slog := log.With().Str("state", "init").Logger()
	ctx = slog.WithContext(ctx)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	slog.Info().Strs("allowed_roles", a.evaluator.AllowedRoles()).Msg("permission allow-list loaded")

	if _, err := a.autobrr.Authenticate(ctx); err != nil {
		slog.Error().Err(err).Msg("initial autobrr authentication failed, continuing")
	}
	if status, err := a.autobrr.GetStatus(ctx); err != nil {
		slog.Warn().Err(err).Msg("autobrr is not reachable")
	} else {
		slog.Info().Str("autobrr_version", status.Version).Str("autobrr_status", status.Status).Msg("connected to autobrr")
	}
	if _, err := a.register(ctx); err != nil {
		slog.Error().Err(err).Msg("slash command registration failed, continuing")
	}

	publicKey, err := discord.ParsePublicKey(cfg.Discord.PublicKey)
	if err != nil {
		return err
	}
	endpoint := discord.NewEndpoint(publicKey, a.discord, a.dispatcher)

	s, err := server.CreateNewServer(server.Options{
		Interactions: endpoint,
		HandleCORS:   cfg.HandleCORS,
		Readiness:    a.ready,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info().Str("addr", cfg.ListenAddr).Str("version", server.Version).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	// Give outstanding requests and invocations 5 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error().Err(err).Msg("could not stop server gracefully")
		if err := srv.Close(); err != nil {
			slog.Error().Err(err).Msg("could not stop server")
		}
	}
	if err := endpoint.Wait(shutdownCtx); err != nil {
		slog.Warn().Err(err).Msg("abandoning in-flight invocations")
	}

	slog.Info().Msg("server stopped")
	return nil
}
