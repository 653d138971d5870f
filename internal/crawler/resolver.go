package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/metrics"
)

type indexResponse struct {
	Result *struct {
		TotalCount *int `json:"totalCount"`
	} `json:"result"`
}

type pageResponse struct {
	Result *struct {
		Positions []struct {
			ID *ListingID `json:"id"`
		} `json:"positions"`
	} `json:"result"`
}

// Resolver discovers every listing id published upstream.
type Resolver struct {
	api       apiClient
	endpoints Endpoints
	logger    *zap.Logger
}

// NewResolver builds a Resolver. limiter may be nil.
func NewResolver(fetcher Fetcher, limiter Limiter, endpoints Endpoints, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		api:       apiClient{fetcher: fetcher, limiter: limiter},
		endpoints: endpoints,
		logger:    logger,
	}
}

// PageCountFor returns ceil(total/PageSize); non-positive totals yield zero pages.
func PageCountFor(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// PageCount reads the listing total and converts it to a page count.
// Any failure is an *UpstreamError.
func (r *Resolver) PageCount(ctx context.Context) (int, error) {
	url := r.endpoints.ListingIndex()
	var body indexResponse
	if err := r.api.getJSON(ctx, url, &body); err != nil {
		return 0, &UpstreamError{URL: url, Err: err}
	}
	if body.Result == nil || body.Result.TotalCount == nil {
		return 0, &UpstreamError{URL: url, Err: errors.New("result.totalCount missing")}
	}
	total := *body.Result.TotalCount
	pages := PageCountFor(total)
	r.logger.Info("resolved listing total", zap.Int("total", total), zap.Int("pages", pages))
	return pages, nil
}

// PageIDs returns the ids on one page. Failures degrade to an empty slice.
func (r *Resolver) PageIDs(ctx context.Context, page int) []ListingID {
	ids, err := r.fetchPage(ctx, page)
	if err != nil {
		metrics.ObservePageFetch("error")
		r.logger.Warn("page fetch failed", zap.Int("page", page), zap.Error(err))
		return []ListingID{}
	}
	metrics.ObservePageFetch("ok")
	return ids
}

func (r *Resolver) fetchPage(ctx context.Context, page int) ([]ListingID, error) {
	url := r.endpoints.ListingPage(page)
	var body pageResponse
	if err := r.api.getJSON(ctx, url, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPageFetch, err)
	}
	if body.Result == nil {
		return nil, fmt.Errorf("%w: %s: result.positions missing", ErrPageFetch, url)
	}
	ids := make([]ListingID, 0, len(body.Result.Positions))
	for i, pos := range body.Result.Positions {
		if pos.ID == nil {
			return nil, fmt.Errorf("%w: %s: position %d has no id", ErrPageFetch, url, i)
		}
		ids = append(ids, *pos.ID)
	}
	return ids, nil
}

// AllIDs fetches every page concurrently and flattens the ids. Order across
// pages is unspecified and duplicates are kept.
func (r *Resolver) AllIDs(ctx context.Context) ([]ListingID, error) {
	pages, err := r.PageCount(ctx)
	if err != nil {
		return nil, err
	}

	results := make(chan []ListingID, pages)
	var wg sync.WaitGroup
	for page := 1; page <= pages; page++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			results <- r.PageIDs(ctx, p)
		}(page)
	}
	wg.Wait()
	close(results)

	ids := make([]ListingID, 0, pages*PageSize)
	for pageIDs := range results {
		ids = append(ids, pageIDs...)
	}
	r.logger.Info("collected listing ids", zap.Int("pages", pages), zap.Int("ids", len(ids)))
	return ids, nil
}
