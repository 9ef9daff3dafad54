package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appLog "iuhsched/internal/log"
	"iuhsched/internal/web"
)

func newServeCommand(ctx context.Context, app *App) *cobra.Command {
	var (
		listen  string
		noFetch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled portal refreshes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"data_file", cfg.DataPath(),
				"refresh", cfg.RefreshCron,
				"browser", cfg.Browser.Enabled,
			)

			if cfg.RefreshCron != "" {
				c, err := eng.StartRefresh(ctx, cfg.RefreshCron, cfg.Location())
				if err != nil {
					return err
				}
				defer c.Stop()
			}

			if !noFetch {
				// Startup fetch of the current week; failures are only logged.
				go func() {
					outcome := <-eng.FetchWeekAsync(ctx, 0)
					if outcome.Err == nil {
						appLog.Info("startup fetch done", "added", outcome.Result.Added)
					}
				}()
			}

			if err := web.StartServer(ctx, cfg, eng); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "Skip the fetch of the current week at startup")
	return cmd
}
