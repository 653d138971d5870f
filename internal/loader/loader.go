package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
	"github.com/JakeFAU/jumpit-harvester/internal/metrics"
	notify "github.com/JakeFAU/jumpit-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/jumpit-harvester/internal/storage/local"
)

// ObjectSource opens an object for reading.
type ObjectSource interface {
	OpenObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

type nower interface {
	Now() time.Time
}

// Deps wires a Loader. Objects may be nil when only local files are loaded.
type Deps struct {
	Store    crawler.ListingStore
	Objects  ObjectSource
	Clock    nower
	Location *time.Location
	Logger   *zap.Logger
}

// Summary counts the outcome of loading one document.
type Summary struct {
	Source   string
	Records  int
	Inserted int
	Skipped  int
	Invalid  int
}

// Loader moves result documents into a ListingStore.
type Loader struct {
	store   crawler.ListingStore
	objects ObjectSource
	clock   nower
	loc     *time.Location
	logger  *zap.Logger
}

// New validates deps and returns a Loader.
func New(deps Deps) (*Loader, error) {
	if deps.Store == nil {
		return nil, errors.New("listing store is required")
	}
	if deps.Clock == nil {
		return nil, errors.New("clock is required")
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		store:   deps.Store,
		objects: deps.Objects,
		clock:   deps.Clock,
		loc:     loc,
		logger:  logger.Named("loader"),
	}, nil
}

// InsertedAt truncates now to midnight of its calendar day in loc.
func InsertedAt(now time.Time, loc *time.Location) time.Time {
	day := now.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}

// LoadObject reads and ingests the document stored at ref.
func (l *Loader) LoadObject(ctx context.Context, ref ObjectRef) (Summary, error) {
	if l.objects == nil {
		return Summary{}, errors.New("object source is not configured")
	}
	source := "gs://" + ref.Bucket + "/" + ref.Key
	l.logger.Info("loading object", zap.String("bucket", ref.Bucket), zap.String("key", ref.Key))

	rc, err := l.objects.OpenObject(ctx, ref.Bucket, ref.Key)
	if err != nil {
		return Summary{Source: source}, fmt.Errorf("open object: %w", err)
	}
	defer func() { _ = rc.Close() }()

	records, err := crawler.DecodeDocument(rc)
	if err != nil {
		return Summary{Source: source}, fmt.Errorf("read %s: %w", source, err)
	}
	return l.LoadRecords(ctx, source, records)
}

// LoadFile ingests a document from the local filesystem.
func (l *Loader) LoadFile(ctx context.Context, path string) (Summary, error) {
	records, err := local.ReadResults(path)
	if err != nil {
		return Summary{Source: path}, err
	}
	return l.LoadRecords(ctx, path, records)
}

// LoadRecords inserts every valid record in one store call. Records without
// a uniqueness key are counted as invalid and left out.
func (l *Loader) LoadRecords(ctx context.Context, source string, records []crawler.Record) (Summary, error) {
	summary := Summary{Source: source, Records: len(records)}

	valid := make([]crawler.Record, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			summary.Invalid++
			l.logger.Warn("skipping invalid record", zap.String("source", source), zap.Error(err))
			continue
		}
		valid = append(valid, rec)
	}
	metrics.ObserveLoaderRows("invalid", summary.Invalid)

	res, err := l.store.InsertListings(ctx, valid, InsertedAt(l.clock.Now(), l.loc))
	if err != nil {
		return summary, fmt.Errorf("insert listings: %w", err)
	}
	summary.Inserted = res.Inserted
	summary.Skipped = res.Skipped
	metrics.ObserveLoaderRows("inserted", res.Inserted)
	metrics.ObserveLoaderRows("skipped", res.Skipped)

	l.logger.Info("data insertion done",
		zap.String("source", source),
		zap.Int("records", summary.Records),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("invalid", summary.Invalid),
	)
	return summary, nil
}

// HandleNotification loads the object named by a storage notification.
// Events other than OBJECT_FINALIZE are ignored and reported as handled.
func (l *Loader) HandleNotification(ctx context.Context, attrs map[string]string, data []byte) error {
	if ev, ok := attrs[notify.AttrEventType]; ok && ev != notify.EventObjectFinalize {
		l.logger.Debug("ignoring object event", zap.String("event_type", ev))
		return nil
	}
	ref := ObjectRef{Bucket: attrs[notify.AttrBucketID], Key: attrs[notify.AttrObjectID]}
	if ref.Bucket == "" || ref.Key == "" {
		parsed, err := ParseObjectEvent(data)
		if err != nil {
			return err
		}
		ref = parsed
	}
	_, err := l.LoadObject(ctx, ref)
	return err
}
