package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/app"
	"github.com/JakeFAU/jumpit-harvester/internal/clock/system"
	"github.com/JakeFAU/jumpit-harvester/internal/config"
	"github.com/JakeFAU/jumpit-harvester/internal/loader"
	subscriber "github.com/JakeFAU/jumpit-harvester/internal/queue/pubsub"
	"github.com/JakeFAU/jumpit-harvester/internal/storage/gcs"
)

type loadOptions struct {
	bucket    string
	object    string
	eventFile string
	file      string
	subscribe bool
}

// mode validates that exactly one trigger was given and names it.
func (o loadOptions) mode() (string, error) {
	var modes []string
	if o.bucket != "" || o.object != "" {
		if o.bucket == "" || o.object == "" {
			return "", errors.New("--bucket and --object must be used together")
		}
		modes = append(modes, "object")
	}
	if o.eventFile != "" {
		modes = append(modes, "event")
	}
	if o.file != "" {
		modes = append(modes, "file")
	}
	if o.subscribe {
		modes = append(modes, "subscribe")
	}
	switch len(modes) {
	case 0:
		return "", errors.New("one of --bucket/--object, --event, --file or --subscribe is required")
	case 1:
		return modes[0], nil
	default:
		return "", fmt.Errorf("only one trigger may be given, got %v", modes)
	}
}

func newLoadCmd() *cobra.Command {
	var opts loadOptions
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Loads a result document into the listing table",
		Long: `Reads a result document and inserts every record into loader.table_name.
Rows are keyed by (platform, job_id); listings already present are skipped.
The document is named directly (--bucket/--object), by an object event file
(--event), by a local path (--file), or by notifications received from
pubsub.subscription_name (--subscribe).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoadCommand(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "bucket holding the document")
	cmd.Flags().StringVar(&opts.object, "object", "", "object key of the document")
	cmd.Flags().StringVar(&opts.eventFile, "event", "", "file containing an object-created event")
	cmd.Flags().StringVar(&opts.file, "file", "", "local result document")
	cmd.Flags().BoolVar(&opts.subscribe, "subscribe", false, "consume object notifications until interrupted")
	return cmd
}

func runLoadCommand(cmd *cobra.Command, opts loadOptions) error {
	mode, err := opts.mode()
	if err != nil {
		return err
	}
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	store, err := app.OpenListingStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("failed to close listing store", zap.Error(cerr))
		}
	}()

	var objects loader.ObjectSource
	if mode != "file" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init storage client: %w", err)
		}
		defer func() { _ = client.Close() }()
		reader, err := gcs.NewObjectReader(client)
		if err != nil {
			return err
		}
		objects = reader
	}

	ld, err := loader.New(loader.Deps{
		Store:    store,
		Objects:  objects,
		Clock:    system.New(),
		Location: loc,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	switch mode {
	case "file":
		_, err = ld.LoadFile(ctx, opts.file)
	case "event":
		var ref loader.ObjectRef
		ref, err = readEventFile(opts.eventFile)
		if err != nil {
			return err
		}
		_, err = ld.LoadObject(ctx, ref)
	case "object":
		_, err = ld.LoadObject(ctx, loader.ObjectRef{Bucket: opts.bucket, Key: opts.object})
	case "subscribe":
		err = subscribe(ctx, cfg, ld, logger)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", mode, err)
	}
	return nil
}

func readEventFile(path string) (loader.ObjectRef, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return loader.ObjectRef{}, fmt.Errorf("read event: %w", err)
	}
	return loader.ParseObjectEvent(data)
}

func subscribe(ctx context.Context, cfg config.Config, ld *loader.Loader, logger *zap.Logger) error {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.SubscriptionName == "" {
		return errors.New("pubsub.project_id and pubsub.subscription_name are required for --subscribe")
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	defer func() { _ = client.Close() }()

	logger.Info("waiting for object notifications", zap.String("subscription", cfg.PubSub.SubscriptionName))
	sub := subscriber.New(client.Subscription(cfg.PubSub.SubscriptionName), logger.Named("subscriber"))
	return sub.Receive(ctx, func(ctx context.Context, msg subscriber.Message) error {
		return ld.HandleNotification(ctx, msg.Attributes, msg.Data)
	})
}
