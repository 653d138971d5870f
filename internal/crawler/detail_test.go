package crawler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestJoinBodyKeepsEmptySegmentsInPlace(t *testing.T) {
	t.Parallel()

	body := JoinBody("A", "", "C")
	assert.Equal(t, "A\n\n\n\nC", body)
	assert.Equal(t, []string{"A", "", "C"}, strings.Split(body, "\n\n"))
	assert.Equal(t, "\n\n\n\n", JoinBody("", "", ""))
}

func TestDetailFetcherNormalizesRecord(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.Detail(42), 200, `{"result":{
		"companyName":"Acme <Korea>",
		"title":"Backend Engineer",
		"preferredRequirements":"A",
		"qualifications":"",
		"responsibility":"C",
		"techStacks":[{"stack":"Go"}]
	}}`)

	rec, ok := NewDetailFetcher(f, nil, ep, "", zap.NewNop()).FetchDetail(context.Background(), 42)
	require.True(t, ok)
	assert.Equal(t, Record{
		Platform: DefaultPlatform,
		JobID:    42,
		Company:  "Acme <Korea>",
		Title:    "Backend Engineer",
		Body:     JoinBody("A", "", "C"),
		URL:      "http://site.test/position/42",
	}, rec)
}

func TestDetailFetcherMissingSectionsAreEmpty(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.Detail(7), 200, `{"result":{"companyName":"c","title":"t","responsibility":"R"}}`)

	rec, ok := NewDetailFetcher(f, nil, ep, "jumpit", nil).FetchDetail(context.Background(), 7)
	require.True(t, ok)
	assert.Equal(t, "\n\n\n\nR", rec.Body)
}

func TestDetailFetcherAbsentOnFailure(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	cases := []struct {
		name    string
		setup   func(*fakeFetcher)
		level   zapcore.Level
		message string
	}{
		{"404", func(*fakeFetcher) {}, zapcore.ErrorLevel, "detail fetch rejected"},
		{"500", func(f *fakeFetcher) { f.Handle(ep.Detail(1), 500, "") }, zapcore.ErrorLevel, "detail fetch rejected"},
		{"transport", func(f *fakeFetcher) { f.Fail(ep.Detail(1), errTransport) }, zapcore.ErrorLevel, "detail fetch failed"},
		{"bad json", func(f *fakeFetcher) { f.Handle(ep.Detail(1), 200, `<html>`) }, zapcore.WarnLevel, "detail payload malformed"},
		{"no result", func(f *fakeFetcher) { f.Handle(ep.Detail(1), 200, `{}`) }, zapcore.WarnLevel, "detail payload malformed"},
		{"no title", func(f *fakeFetcher) {
			f.Handle(ep.Detail(1), 200, `{"result":{"companyName":"c"}}`)
		}, zapcore.WarnLevel, "detail payload malformed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFakeFetcher()
			tc.setup(f)
			core, logs := observer.New(zapcore.DebugLevel)

			rec, ok := NewDetailFetcher(f, nil, ep, "", zap.New(core)).FetchDetail(context.Background(), 1)
			assert.False(t, ok)
			assert.Equal(t, Record{}, rec)

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tc.level, entries[0].Level)
			assert.Equal(t, tc.message, entries[0].Message)
			assert.EqualValues(t, 1, entries[0].ContextMap()["job_id"])
		})
	}
}

func TestDetailFetcherClassifiesErrors(t *testing.T) {
	t.Parallel()

	ep := testEndpoints()
	f := newFakeFetcher()
	f.Handle(ep.Detail(2), 200, `{"result":null}`)
	d := NewDetailFetcher(f, nil, ep, "", nil)

	_, err := d.fetch(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDetailFetch)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.StatusCode)

	_, err = d.fetch(context.Background(), 2)
	assert.ErrorIs(t, err, ErrMalformedDetail)
	assert.NotErrorIs(t, err, ErrUpstream)
}
