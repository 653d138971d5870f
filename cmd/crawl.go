// Package cmd defines and implements the CLI commands for the harvester executable.
package cmd

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/clock/system"
	"github.com/JakeFAU/jumpit-harvester/internal/config"
	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
	collyfetcher "github.com/JakeFAU/jumpit-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/jumpit-harvester/internal/id/uuid"
	"github.com/JakeFAU/jumpit-harvester/internal/policy/ratelimit"
	"github.com/JakeFAU/jumpit-harvester/internal/progress"
	"github.com/JakeFAU/jumpit-harvester/internal/progress/sinks"
	notifier "github.com/JakeFAU/jumpit-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/jumpit-harvester/internal/storage/gcs"
	"github.com/JakeFAU/jumpit-harvester/internal/storage/local"
	"github.com/JakeFAU/jumpit-harvester/internal/store"
)

const progressCloseTimeout = 5 * time.Second

// progressRegisterer receives the run-level progress collectors.
var progressRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvests every published listing into a result document",
		Long: `Resolves every listing id from the jumpit API, fetches the details in
windows of crawler.window_size with crawler.window_delay between windows and
writes the records to <output.dir>/<output.filename>.json. When
storage.gcs_bucket is set the document is also uploaded, and when
pubsub.topic_name is set the upload is announced on that topic.`,
		RunE: runCrawlCommand,
	}
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	harvester, cleanup, err := buildHarvester(cmd.Context(), cfg, logger, appInstance.GetRunTracker())
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := harvester.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run harvester: %w", err)
	}

	logger.Info("crawl command finished",
		zap.String("run_id", summary.RunID),
		zap.Int("records", summary.Records),
		zap.Int("locations", len(summary.Locations)),
	)
	return nil
}

// buildHarvester wires the crawl pipeline. The returned cleanup flushes
// progress and releases cloud clients; it is safe to call once.
func buildHarvester(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	tracker *store.Tracker,
) (*crawler.Harvester, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*crawler.Harvester, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return fail(err)
	}
	clock := system.New()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgents: cfg.Crawler.UserAgents,
		Timeout:    cfg.Crawler.RequestTimeout,
	})
	logger.Info("fetcher ready", zap.String("user_agent", fetcher.UserAgent()))

	var limiter crawler.Limiter
	if cfg.Crawler.RateLimitRPS > 0 {
		limiter = ratelimit.New(ratelimit.Config{
			RPS:   cfg.Crawler.RateLimitRPS,
			Burst: cfg.Crawler.RateLimitBurst,
		})
	}

	endpoints := crawler.Endpoints{
		APIBaseURL:  cfg.Crawler.APIBaseURL,
		SiteBaseURL: cfg.Crawler.SiteBaseURL,
	}
	resolver := crawler.NewResolver(fetcher, limiter, endpoints, logger.Named("resolver"))
	details := crawler.NewDetailFetcher(fetcher, limiter, endpoints, cfg.Crawler.Platform, logger.Named("detail"))

	promSink, err := sinks.NewPrometheusSink(progressRegisterer)
	if err != nil {
		return fail(fmt.Errorf("init progress sink: %w", err))
	}
	progressSinks := []progress.Sink{sinks.NewLogSink(logger.Named("progress")), promSink}
	if tracker != nil {
		progressSinks = append(progressSinks, tracker)
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")}, progressSinks...)
	closers = append(closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), progressCloseTimeout)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	})

	batcher := crawler.NewBatcher(details, clock, hub, crawler.BatchConfig{
		WindowSize: cfg.Crawler.WindowSize,
		Delay:      cfg.Crawler.WindowDelay,
	}, logger.Named("batcher"))

	localStore, err := local.New(local.Config{Dir: cfg.Output.Dir, Filename: cfg.Output.Filename})
	if err != nil {
		return fail(fmt.Errorf("init local sink: %w", err))
	}
	resultSinks := []crawler.ResultSink{localStore}

	if cfg.Storage.GCSBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fail(fmt.Errorf("init storage client: %w", err))
		}
		closers = append(closers, func() { _ = client.Close() })
		gcsStore, err := gcs.New(client, gcs.Config{
			Bucket:      cfg.Storage.GCSBucket,
			Prefix:      cfg.Storage.Prefix,
			Filename:    cfg.Output.Filename,
			ContentType: cfg.Storage.ContentType,
			Location:    loc,
		}, clock)
		if err != nil {
			return fail(fmt.Errorf("init gcs sink: %w", err))
		}
		resultSinks = append(resultSinks, gcsStore)
	}

	var objectNotifier crawler.Notifier
	if cfg.PubSub.TopicName != "" {
		if cfg.Storage.GCSBucket == "" {
			logger.Warn("pubsub.topic_name is set but storage.gcs_bucket is empty; nothing will be announced")
		}
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fail(fmt.Errorf("init pubsub client: %w", err))
		}
		n := notifier.New(client.Topic(cfg.PubSub.TopicName))
		closers = append(closers, func() {
			n.Stop()
			_ = client.Close()
		})
		objectNotifier = n
	}

	harvester, err := crawler.NewHarvester(crawler.HarvesterDeps{
		IDs:      resolver,
		Batcher:  batcher,
		Sinks:    resultSinks,
		Notifier: objectNotifier,
		IDGen:    uuid.New(),
		Clock:    clock,
		Emitter:  hub,
		Logger:   logger.Named("harvester"),
	})
	if err != nil {
		return fail(err)
	}
	return harvester, cleanup, nil
}
