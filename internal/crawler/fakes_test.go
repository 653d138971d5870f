package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/jumpit-harvester/internal/progress"
)

type fakeRoute struct {
	status int
	body   string
	err    error
}

// fakeFetcher serves canned responses by URL; unknown URLs return 404.
type fakeFetcher struct {
	mu     sync.Mutex
	routes map[string]fakeRoute
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{routes: make(map[string]fakeRoute)}
}

func (f *fakeFetcher) Handle(url string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[url] = fakeRoute{status: status, body: body}
}

func (f *fakeFetcher) Fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[url] = fakeRoute{err: err}
}

func (f *fakeFetcher) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	route, ok := f.routes[req.URL]
	f.mu.Unlock()
	if !ok {
		return FetchResponse{URL: req.URL, StatusCode: 404}, nil
	}
	if route.err != nil {
		return FetchResponse{}, route.err
	}
	return FetchResponse{URL: req.URL, StatusCode: route.status, Body: []byte(route.body)}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeLimiter struct {
	mu    sync.Mutex
	waits int
	err   error
}

func (l *fakeLimiter) Wait(context.Context, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits++
	return l.err
}

// fakeClock advances by step on every Now and records sleeps without blocking.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), step: time.Millisecond}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *fakeEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
}

func (e *fakeEmitter) Events() []progress.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]progress.Event(nil), e.events...)
}

// stubDetails returns a record for every id not listed in missing.
type stubDetails struct {
	mu      sync.Mutex
	missing map[ListingID]bool
	seen    []ListingID
}

func (s *stubDetails) FetchDetail(_ context.Context, id ListingID) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, id)
	if s.missing[id] {
		return Record{}, false
	}
	return Record{Platform: DefaultPlatform, JobID: id, Company: "c", Title: "t"}, true
}

type stubIDs struct {
	ids []ListingID
	err error
}

func (s stubIDs) AllIDs(context.Context) ([]ListingID, error) {
	return s.ids, s.err
}

type fixedIDGen struct {
	id  uuid.UUID
	err error
}

func (g fixedIDGen) NewRawID() (uuid.UUID, error) {
	return g.id, g.err
}

type recordingSink struct {
	mu      sync.Mutex
	loc     Location
	err     error
	batches [][]Record
}

func (s *recordingSink) SaveResults(_ context.Context, records []Record) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Location{}, s.err
	}
	s.batches = append(s.batches, records)
	return s.loc, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	locs []Location
	err  error
}

func (n *recordingNotifier) NotifyObject(_ context.Context, loc Location) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.locs = append(n.locs, loc)
	return "msg-1", nil
}

var errTransport = errors.New("connection reset")

func testEndpoints() Endpoints {
	return Endpoints{APIBaseURL: "http://api.test", SiteBaseURL: "http://site.test"}
}
