package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/sap-compass/internal/cache"
	"github.com/ethanolivertroy/sap-compass/internal/log"
	"github.com/ethanolivertroy/sap-compass/internal/parsers"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
	"github.com/ethanolivertroy/sap-compass/internal/server"
)

var (
	serveFlags       runFlags
	flagAddr         string
	flagRefreshEvery time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking as a JSON API",
	Long: `serve ranks the sources once at startup and exposes the result:

  GET  /                       health check
  GET  /api/v1/ranked          ranked CVEs (?limit=N, ?kev=true)
  GET  /api/v1/summary         counts, by-priority breakdown, normalization stats
  GET  /api/v1/records         every merged record (?priority=High)
  GET  /api/v1/records/:cve    one record, ranked or not
  POST /api/v1/refresh         rerun the ranking

Source tables are re-read only when their size or modification time changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveFlags.register(serveCmd.Flags())
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":3000", "Listen address")
	serveCmd.Flags().DurationVar(&flagRefreshEvery, "refresh-every", 0, "Rerun the ranking on this interval (0 = only on request)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.WithPrefix("serve")

	config, err := serveFlags.config()
	if err != nil {
		return err
	}

	memo := cache.NewFileMemo[*parsers.Table]()
	r, err := pipeline.New(config, memo)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(r)
	if _, err := srv.Refresh(ctx); err != nil {
		return fmt.Errorf("initial ranking failed: %w", err)
	}

	if flagRefreshEvery > 0 {
		go func() {
			ticker := time.NewTicker(flagRefreshEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := srv.Refresh(ctx); err != nil {
						logger.Warn("Scheduled refresh failed", log.Err(err))
					}
				}
			}
		}()
	}

	return srv.Serve(ctx, flagAddr)
}
