package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_radar/internal/adapters/observability"
	"review_radar/internal/app"
	"review_radar/internal/bootstrap"
	"review_radar/internal/domain"
	"review_radar/internal/shared"
)

func main() { os.Exit(run()) }

func run() int {
	cfg := shared.Load()

	var (
		osName  = flag.String("os", "android", "store: android or ios")
		count   = flag.Int("count", app.DefaultCount, "raw reviews to fetch per app, before filtering")
		outDir  = flag.String("out", "./out", "directory for CSV files")
		bom     = flag.Bool("bom", true, "prefix files with a UTF-8 BOM")
		workers = flag.Int("workers", cfg.ExportWorkers, "apps exported concurrently")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] appId...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ids := flag.Args()
	if len(ids) == 0 {
		flag.Usage()
		return 2
	}
	if *workers < 1 {
		*workers = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := domain.ParseStore(*osName)
	log.Info().
		Str("os", string(store)).
		Int("apps", len(ids)).
		Int("count", *count).
		Int("workers", *workers).
		Msg("exporter starting")

	audit, closeAudit := bootstrap.Audit(cfg)
	defer closeAudit()
	exp := app.NewExportService(bootstrap.ReviewService(cfg, bootstrap.Stores(cfg), audit), *outDir, *bom)

	sem := semaphore.NewWeighted(int64(*workers))
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("export interrupted")
			break
		}

		wg.Add(1)
		go func(appID string) {
			defer wg.Done()
			defer sem.Release(1)

			path, rows, err := exp.ExportApp(ctx, app.ReviewQuery{AppID: appID, Store: store, Count: *count})
			if err != nil {
				failed.Add(1)
				log.Warn().Str("app_id", appID).Err(err).Msg("export failed")
				return
			}
			log.Info().Str("app_id", appID).Str("path", path).Int("rows", rows).Msg("export ok")
		}(id)
	}

	wg.Wait()
	if n := failed.Load(); n > 0 || ctx.Err() != nil {
		log.Error().Int32("failed", n).Int("apps", len(ids)).Msg("export finished with errors")
		return 1
	}
	log.Info().Msg("export completed")
	return 0
}
