package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/brrbot/brrbot/internal/bot/config"
)

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register the slash commands with Discord and exit",
		Long: `Register the slash commands with Discord and exit.

Commands are registered globally, or for DISCORD_GUILD_ID when it is set. Guild
commands become visible immediately; global commands may take up to an hour.

Examples:
  brrbot register
  brrbot register -j`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), cmd.OutOrStdout(), config.Config())
		},
	}
}

func runRegister(ctx context.Context, w io.Writer, cfg *config.ConfigParam) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	registered, err := a.register(ctx)
	if err != nil {
		return err
	}

	scope := "global"
	if cfg.Discord.GuildID != "" {
		scope = "guild " + cfg.Discord.GuildID
	}
	if jsonOutput {
		names := make([]string, 0, len(registered))
		for _, c := range registered {
			names = append(names, c.Name)
		}
		printJSON(w, map[string]any{
			"scope":    scope,
			"commands": names,
		})
		return nil
	}

	okLabel.Fprintf(w, "Registered %d commands (%s)\n", len(registered), scope)
	for _, c := range registered {
		fmt.Fprintf(w, "  /%-10s %s\n", c.Name, c.Description)
	}
	return nil
}
