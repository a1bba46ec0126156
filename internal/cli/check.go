package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/brrbot/brrbot/internal/bot/config"
	"github.com/brrbot/brrbot/internal/common/apperrors"
)

// CheckResult is the outcome of the check command.
type CheckResult struct {
	BaseURL        string `json:"baseURL"`
	AuthMode       string `json:"authMode"`
	Status         string `json:"status,omitempty"`
	Version        string `json:"version,omitempty"`
	Uptime         string `json:"uptime,omitempty"`
	Compatibility  string `json:"compatibility,omitempty"`
	TokenExpiresAt string `json:"tokenExpiresAt,omitempty"`
	Error          string `json:"error,omitempty"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity and credentials for autobrr",
		Long: `Check connectivity and credentials for autobrr. The command authenticates the
way the bot does, queries the liveness endpoint and compares the reported version
with AUTOBRR_MIN_VERSION when it is set.

Examples:
  brrbot check
  brrbot check -j`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), config.Config())
		},
	}
}

func runCheck(ctx context.Context, w io.Writer, cfg *config.ConfigParam) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := check(ctx, cfg)
	if jsonOutput {
		printJSON(w, res)
	} else {
		printCheck(w, res)
	}
	if err != nil {
		return ErrAlreadyHandled
	}
	return nil
}

func check(ctx context.Context, cfg *config.ConfigParam) (*CheckResult, error) {
	res := &CheckResult{
		BaseURL:  cfg.Autobrr.BaseURL,
		AuthMode: "api key",
	}
	if cfg.UsesLogin() {
		res.AuthMode = "login"
	}

	constraint, err := cfg.MinVersionConstraint()
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	client := newAutobrrClient(cfg)
	if _, err := client.Authenticate(ctx); err != nil {
		res.Error = describeError(err)
		return res, err
	}
	if exp := client.TokenExpiry(); !exp.IsZero() {
		res.TokenExpiresAt = exp.UTC().Format(time.RFC3339)
	}

	status, err := client.GetStatus(ctx)
	if err != nil {
		res.Error = describeError(err)
		return res, err
	}
	res.Status = status.Status
	res.Version = status.Version
	res.Uptime = status.Uptime
	if constraint != nil {
		res.Compatibility = fmt.Sprintf("%s (%s)", status.Compatible(constraint), cfg.Autobrr.MinVersion)
	}
	return res, nil
}

func describeError(err error) string {
	if msg, ok := apperrors.UserMessage(err); ok {
		return msg
	}
	return err.Error()
}

func printCheck(w io.Writer, res *CheckResult) {
	fmt.Fprintf(w, "autobrr:       %s\n", res.BaseURL)
	fmt.Fprintf(w, "auth:          %s\n", res.AuthMode)
	if res.TokenExpiresAt != "" {
		if exp, err := time.Parse(time.RFC3339, res.TokenExpiresAt); err == nil {
			fmt.Fprintf(w, "token expires: %s\n", humanize.Time(exp))
		}
	}
	if res.Error != "" {
		errorLabel.Fprintf(w, "error:         %s\n", res.Error)
		return
	}
	okLabel.Fprintf(w, "status:        %s\n", res.Status)
	fmt.Fprintf(w, "version:       %s\n", res.Version)
	fmt.Fprintf(w, "uptime:        %s\n", res.Uptime)
	if res.Compatibility != "" {
		label := okLabel
		if !strings.HasPrefix(res.Compatibility, "compatible") {
			label = warnLabel
		}
		label.Fprintf(w, "compatibility: %s\n", res.Compatibility)
	}
}
