package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opteee-ai/opteee/internal/channels"
	"github.com/opteee-ai/opteee/internal/health"
	"github.com/opteee-ai/opteee/internal/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bridge against the bot API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidatedConfig()
			if err != nil {
				return err
			}

			telegram := cfg.TelegramChannel()
			if !telegram.Enabled {
				return fmt.Errorf("channels.telegram is disabled; enable it in %s", cfg.ConfigPath())
			}

			api, err := apiClient(cfg, 0)
			if err != nil {
				return err
			}

			monitor := health.NewMonitor(api, cfg.Health.Schedule, cfg.Health.AlertAfter,
				func(consecutive int, err error) {
					logging.Logger().Error("bot api is down", "consecutive_failures", consecutive, "err", err)
				})
			if err := monitor.Start(cmd.Context()); err != nil {
				return err
			}
			defer monitor.Stop()

			logging.Logger().Info("starting telegram bridge", "api", cfg.API.BaseURL, "provider", cfg.API.Provider)
			bridge := channels.NewTelegramBridge(api)
			return bridge.Listen(cmd.Context(), telegram.Token)
		},
	}
}
