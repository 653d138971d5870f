package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/store"
)

type mockRunRepo struct {
	runs       []store.Run
	err        error
	lastStatus *store.RunStatus
	lastLimit  int
	lastOffset int
}

func (m *mockRunRepo) GetRun(_ context.Context, id uuid.UUID) (store.Run, error) {
	if m.err != nil {
		return store.Run{}, m.err
	}
	for _, run := range m.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return store.Run{}, store.ErrNotFound
}

func (m *mockRunRepo) ListRuns(_ context.Context, status *store.RunStatus, limit, offset int) ([]store.Run, error) {
	m.lastStatus, m.lastLimit, m.lastOffset = status, limit, offset
	if m.err != nil {
		return nil, m.err
	}
	return m.runs, nil
}

func newTestRouter(repo store.RunRepository) http.Handler {
	r := chi.NewRouter()
	NewProgressHandler(repo, zap.NewNop()).Mount(r)
	return r
}

func TestProgressHandlerListRuns(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	repo := &mockRunRepo{runs: []store.Run{{
		ID:        runID,
		StartedAt: time.Now().Add(-time.Minute),
		Status:    store.RunRunning,
		Processed: 100,
		Total:     400,
	}}}
	req := httptest.NewRequest(http.MethodGet, "/api/runs?status=running&limit=500&offset=2", nil)
	rec := httptest.NewRecorder()

	newTestRouter(repo).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs []runDTO `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, runID.String(), body.Runs[0].ID)
	assert.InDelta(t, 0.25, body.Runs[0].Progress, 1e-9)
	require.NotNil(t, repo.lastStatus)
	assert.Equal(t, store.RunRunning, *repo.lastStatus)
	assert.Equal(t, maxRunLimit, repo.lastLimit)
	assert.Equal(t, 2, repo.lastOffset)
}

func TestProgressHandlerListRunsBadRequests(t *testing.T) {
	t.Parallel()

	for _, target := range []string{
		"/api/runs?limit=-1",
		"/api/runs?offset=x",
		"/api/runs?status=paused",
	} {
		rec := httptest.NewRecorder()
		newTestRouter(&mockRunRepo{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestProgressHandlerGetRun(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	msg := "upstream unavailable"
	repo := &mockRunRepo{runs: []store.Run{{ID: runID, Status: store.RunError, ErrorMessage: &msg}}}
	router := newTestRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+runID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Run runDTO `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Run.Status)
	require.NotNil(t, body.Run.Error)
	assert.Equal(t, msg, *body.Run.Error)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressHandlerRepositoryFailures(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(&mockRunRepo{err: errors.New("boom")}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
