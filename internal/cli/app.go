package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/brrbot/brrbot/internal/bot/autobrr"
	"github.com/brrbot/brrbot/internal/bot/commands"
	"github.com/brrbot/brrbot/internal/bot/config"
	"github.com/brrbot/brrbot/internal/bot/discord"
	"github.com/brrbot/brrbot/internal/bot/dispatch"
	"github.com/brrbot/brrbot/internal/bot/permission"
)

// discordTimeout bounds each Discord REST call.
const discordTimeout = 10 * time.Second

// app holds the components built from one configuration.
type app struct {
	cfg        *config.ConfigParam
	autobrr    *autobrr.Client
	discord    *discord.Client
	dispatcher *dispatch.Dispatcher
	evaluator  *permission.Evaluator
}

func newApp(cfg *config.ConfigParam) (*app, error) {
	constraint, err := cfg.MinVersionConstraint()
	if err != nil {
		return nil, fmt.Errorf("parsing minimum autobrr version: %w", err)
	}

	client := newAutobrrClient(cfg)
	handlers := commands.NewHandlers(client, commands.WithMinVersion(cfg.Autobrr.MinVersion, constraint))
	evaluator := permission.NewEvaluator(cfg.AllowedRoles)

	return &app{
		cfg:     cfg,
		autobrr: client,
		discord: discord.NewClient(discord.ClientOptions{
			APIURL:        cfg.Discord.APIURL,
			Token:         cfg.Discord.Token,
			ApplicationID: cfg.Discord.ClientID,
			Timeout:       discordTimeout,
		}),
		dispatcher: dispatch.New(evaluator, handlers.Commands()...),
		evaluator:  evaluator,
	}, nil
}

func newAutobrrClient(cfg *config.ConfigParam) *autobrr.Client {
	return autobrr.NewClient(autobrr.Options{
		BaseURL:  cfg.Autobrr.BaseURL,
		APIKey:   cfg.Autobrr.APIKey,
		Username: cfg.Autobrr.Username,
		Password: cfg.Autobrr.Password,
		Timeout:  cfg.Autobrr.Timeout,
	})
}

// register publishes the command table to Discord, scoped to the configured guild if any.
func (a *app) register(ctx context.Context) ([]discord.ApplicationCommand, error) {
	return a.discord.RegisterCommands(ctx, a.cfg.Discord.GuildID, a.dispatcher.Commands())
}

// ready reports whether autobrr answers its liveness endpoint.
func (a *app) ready(ctx context.Context) error {
	_, err := a.autobrr.GetStatus(ctx)
	return err
}
