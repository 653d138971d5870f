package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/metrics"
)

// bodySeparator joins the three description sections of a listing.
const bodySeparator = "\n\n"

type detailResponse struct {
	Result *detailResult `json:"result"`
}

// detailResult mirrors the fields of a listing detail we keep. Company and
// title are required; the description sections may be absent.
type detailResult struct {
	CompanyName           *string `json:"companyName"`
	Title                 *string `json:"title"`
	PreferredRequirements string  `json:"preferredRequirements"`
	Qualifications        string  `json:"qualifications"`
	Responsibility        string  `json:"responsibility"`
}

// JoinBody concatenates the description sections in fixed order. Empty
// sections keep their position.
func JoinBody(preferredRequirements, qualifications, responsibility string) string {
	return strings.Join([]string{preferredRequirements, qualifications, responsibility}, bodySeparator)
}

// DetailFetcher retrieves and normalizes single listings.
type DetailFetcher struct {
	api       apiClient
	endpoints Endpoints
	platform  string
	logger    *zap.Logger
}

// NewDetailFetcher builds a DetailFetcher tagging records with platform.
func NewDetailFetcher(
	fetcher Fetcher,
	limiter Limiter,
	endpoints Endpoints,
	platform string,
	logger *zap.Logger,
) *DetailFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if platform == "" {
		platform = DefaultPlatform
	}
	return &DetailFetcher{
		api:       apiClient{fetcher: fetcher, limiter: limiter},
		endpoints: endpoints,
		platform:  platform,
		logger:    logger,
	}
}

// FetchDetail returns the normalized record for id. Every failure is logged
// and reported as absent; nothing propagates to the caller.
func (d *DetailFetcher) FetchDetail(ctx context.Context, id ListingID) (Record, bool) {
	rec, err := d.fetch(ctx, id)
	if err == nil {
		metrics.ObserveDetail("ok")
		return rec, true
	}

	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		metrics.ObserveDetail("status")
		d.logger.Error("detail fetch rejected",
			zap.Int64("job_id", int64(id)),
			zap.Int("status", statusErr.StatusCode),
			zap.String("url", statusErr.URL),
		)
	case errors.Is(err, ErrMalformedDetail):
		metrics.ObserveDetail("malformed")
		d.logger.Warn("detail payload malformed", zap.Int64("job_id", int64(id)), zap.Error(err))
	default:
		metrics.ObserveDetail("error")
		d.logger.Error("detail fetch failed", zap.Int64("job_id", int64(id)), zap.Error(err))
	}
	return Record{}, false
}

func (d *DetailFetcher) fetch(ctx context.Context, id ListingID) (Record, error) {
	url := d.endpoints.Detail(id)
	var body detailResponse
	if err := d.api.getJSON(ctx, url, &body); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return Record{}, fmt.Errorf("%w: %w", ErrDetailFetch, err)
		}
		if ctx.Err() == nil && isDecodeError(err) {
			return Record{}, fmt.Errorf("%w: %w", ErrMalformedDetail, err)
		}
		return Record{}, fmt.Errorf("%w: %w", ErrDetailFetch, err)
	}
	if body.Result == nil {
		return Record{}, fmt.Errorf("%w: %s: result missing", ErrMalformedDetail, url)
	}
	res := body.Result
	if res.CompanyName == nil || res.Title == nil {
		return Record{}, fmt.Errorf("%w: %s: companyName or title missing", ErrMalformedDetail, url)
	}
	return Record{
		Platform: d.platform,
		JobID:    id,
		Company:  *res.CompanyName,
		Title:    *res.Title,
		Body:     JoinBody(res.PreferredRequirements, res.Qualifications, res.Responsibility),
		URL:      d.endpoints.PostingURL(id),
	}, nil
}
