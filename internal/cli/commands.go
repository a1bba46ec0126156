package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/brrbot/brrbot/internal/bot/config"
	"github.com/brrbot/brrbot/internal/bot/server"
	"github.com/brrbot/brrbot/internal/common/logtrace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Global flags
	jsonOutput bool
	configFile string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var warnLabel = color.New(color.FgYellow)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "brrbot [command] [flags]",
	Short: "brrbot - Discord slash commands for autobrr",
	Long: `brrbot exposes an autobrr instance to a Discord server through slash commands.
Configuration is read from an optional TOML file, a .env file in the working directory
and the process environment, in increasing order of precedence.

Examples:
  # Run the interactions server
  brrbot serve

  # Register the slash commands without serving
  brrbot register

  # Check connectivity to autobrr
  brrbot check --config /etc/brrbot/brrbot.toml`,
	PersistentPreRunE: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	logtrace.InitLogger()

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to a TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newCheckCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents loads the configuration for every command that needs one.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if !cmd.HasParent() {
		return nil
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "version" || c.Name() == "help" {
			return nil
		}
	}
	if err := config.LoadConfig(configFile); err != nil {
		return err
	}
	return nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of brrbot",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	if jsonOutput {
		printJSON(w, map[string]string{
			"version":    server.Version,
			"apiVersion": server.DiscordAPIVersion,
		})
		return
	}
	fmt.Fprintf(w, "brrbot %s (discord api %s)\n", server.Version, server.DiscordAPIVersion)
}

// printJSON prints the given value as indented JSON to w
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintln(w, string(jsonData))
}
