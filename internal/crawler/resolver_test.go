package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPageCountFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		total int
		want  int
	}{
		{0, 0},
		{-3, 0},
		{1, 1},
		{16, 1},
		{17, 2},
		{32, 2},
		{33, 3},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("total=%d", tc.total), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, PageCountFor(tc.total))
		})
	}
}

func pageBody(ids ...int) string {
	body := `{"result":{"positions":[`
	for i, id := range ids {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`{"id":%d,"title":"x"}`, id)
	}
	return body + `]}}`
}

func TestResolverAllIDsFlattensEveryPage(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.ListingIndex(), 200, `{"result":{"totalCount":40}}`)
	f.Handle(ep.ListingPage(1), 200, pageBody(1, 2))
	f.Handle(ep.ListingPage(2), 200, pageBody(3))
	f.Handle(ep.ListingPage(3), 200, pageBody(4, 5, 6))
	limiter := &fakeLimiter{}

	r := NewResolver(f, limiter, ep, zap.NewNop())
	ids, err := r.AllIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []ListingID{1, 2, 3, 4, 5, 6}, ids)
	assert.Len(t, f.Calls(), 4)
	assert.Equal(t, 4, limiter.waits)
}

func TestResolverFailedPageDegradesToEmpty(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.ListingIndex(), 200, `{"result":{"totalCount":48}}`)
	f.Handle(ep.ListingPage(1), 200, pageBody(1, 2))
	f.Handle(ep.ListingPage(2), 500, `oops`)
	f.Handle(ep.ListingPage(3), 200, pageBody(7))

	ids, err := NewResolver(f, nil, ep, nil).AllIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []ListingID{1, 2, 7}, ids)
}

func TestResolverKeepsDuplicates(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.ListingIndex(), 200, `{"result":{"totalCount":20}}`)
	f.Handle(ep.ListingPage(1), 200, pageBody(9, 10))
	f.Handle(ep.ListingPage(2), 200, pageBody(10))

	ids, err := NewResolver(f, nil, ep, nil).AllIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []ListingID{9, 10, 10}, ids)
}

func TestResolverZeroTotalFetchesNoPages(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.ListingIndex(), 200, `{"result":{"totalCount":0}}`)

	ids, err := NewResolver(f, nil, ep, nil).AllIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, []string{ep.ListingIndex()}, f.Calls())
}

func TestResolverPageCountFailuresAreUpstream(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	cases := []struct {
		name  string
		setup func(*fakeFetcher)
	}{
		{"non-200", func(f *fakeFetcher) { f.Handle(ep.ListingIndex(), 503, "") }},
		{"transport", func(f *fakeFetcher) { f.Fail(ep.ListingIndex(), errTransport) }},
		{"bad json", func(f *fakeFetcher) { f.Handle(ep.ListingIndex(), 200, "{") }},
		{"missing total", func(f *fakeFetcher) { f.Handle(ep.ListingIndex(), 200, `{"result":{}}`) }},
		{"missing result", func(f *fakeFetcher) { f.Handle(ep.ListingIndex(), 200, `{}`) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFakeFetcher()
			tc.setup(f)
			ids, err := NewResolver(f, nil, ep, nil).AllIDs(context.Background())
			require.Error(t, err)
			assert.Nil(t, ids)
			assert.True(t, errors.Is(err, ErrUpstream))
			var upErr *UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, ep.ListingIndex(), upErr.URL)
		})
	}
}

func TestResolverPageIDsRejectsEntriesWithoutID(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.ListingPage(1), 200, `{"result":{"positions":[{"id":1},{"title":"no id"}]}}`)
	f.Handle(ep.ListingPage(2), 200, `{"status":"ok"}`)

	r := NewResolver(f, nil, ep, nil)
	assert.Empty(t, r.PageIDs(context.Background(), 1))
	assert.Empty(t, r.PageIDs(context.Background(), 2))

	_, err := r.fetchPage(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPageFetch)
}

func TestResolverLimiterErrorFailsRequest(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.ListingIndex(), 200, `{"result":{"totalCount":5}}`)
	limiter := &fakeLimiter{err: context.Canceled}

	_, err := NewResolver(f, limiter, ep, nil).PageCount(context.Background())
	require.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.Calls())
}
