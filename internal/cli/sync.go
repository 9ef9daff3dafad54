package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"iuhsched/internal/engine"
	"iuhsched/internal/portal"
)

func newSyncCommand(ctx context.Context, app *App) *cobra.Command {
	var (
		offset int
		weeks  int
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch weeks from the portal and merge them into the data file.",
		Long:  "sync downloads the timetable of one or more consecutive weeks, starting at --offset weeks from the current one, and adds new sessions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if weeks < 1 {
				return fmt.Errorf("--weeks must be at least 1")
			}
			_, eng, err := app.open(ctx)
			if err != nil {
				return err
			}
			for i := 0; i < weeks; i++ {
				res, err := eng.FetchWeek(ctx, offset+i)
				if err != nil {
					return fmt.Errorf("week %d: %w", offset+i, err)
				}
				printIngest(cmd, res)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "First week relative to the current one")
	cmd.Flags().IntVar(&weeks, "weeks", 1, "Number of consecutive weeks to fetch")
	return cmd
}

func newImportCommand(ctx context.Context, app *App) *cobra.Command {
	var (
		offset int
		cached bool
	)

	cmd := &cobra.Command{
		Use:   "import [file.html]",
		Short: "Merge a saved timetable page.",
		Long: "import reads a timetable page saved from the portal, or with --cached the last page " +
			"fetched for --offset. --offset also dates the sessions when the page has no date header.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cached == (len(args) == 1) {
				return fmt.Errorf("give either a file or --cached")
			}
			cfg, eng, err := app.open(ctx)
			if err != nil {
				return err
			}

			var body string
			if cached {
				fetcher := portal.NewFetcher(cfg.PortalURL, cfg.CookiesPath(), cfg.CachePath(), cfg.FetchTimeout)
				page, err := fetcher.CachedWeek(offset)
				if err != nil {
					return err
				}
				body = page.Body
			} else {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				body = string(data)
			}

			res, err := eng.Ingest(ctx, body, offset)
			if err != nil {
				return err
			}
			printIngest(cmd, res)
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Week the page shows, relative to the current one")
	cmd.Flags().BoolVar(&cached, "cached", false, "Use the cached copy of the last fetch instead of a file")
	return cmd
}

func printIngest(cmd *cobra.Command, res engine.IngestResult) {
	fmt.Fprintf(cmd.OutOrStdout(), "week %+d (%s): extracted %d, added %d, duplicates %d, total %d\n",
		res.Offset, res.Dates[0], res.Extracted, res.Added, res.Duplicates, res.Total)
}
