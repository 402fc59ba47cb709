// Package cli wires Cobra subcommands to application dependencies; it is a
// thin controller with no business logic.
package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/opteee-ai/opteee/internal/botapi"
	"github.com/opteee-ai/opteee/internal/config"
	"github.com/opteee-ai/opteee/internal/logging"
)

// NewRootCmd creates the root command and registers all subcommands.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "opteee",
		Short: "OPTEEE operations toolkit",
		Long:  "Operational companion for the OPTEEE retrieval chatbot: API client, Telegram bridge, vector-store packaging, and diagnostics.",
		// Let main handle fatal error rendering through structured logs.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				logging.SetLevel(slog.LevelInfo)
			} else {
				logging.SetLevel(slog.LevelWarn)
			}
		},
	}

	root.AddCommand(newChatCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newStoreCmd())
	root.AddCommand(newPatchCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (info level)")

	return root
}

func loadValidatedConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func apiClient(cfg *config.Config, timeout time.Duration) (*botapi.Client, error) {
	if timeout <= 0 {
		timeout = cfg.API.RequestTimeout
	}
	return botapi.New(cfg.API.BaseURL, botapi.Options{
		Provider:   cfg.API.Provider,
		NumResults: cfg.API.NumResults,
		Timeout:    timeout,
	})
}
