package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
	"github.com/ANGELCJR/stock-vision-sub000/internal/reliability"
	"github.com/ANGELCJR/stock-vision-sub000/internal/scheduler"
	testingpkg "github.com/ANGELCJR/stock-vision-sub000/internal/testing"
)

type fakeJobs struct {
	jobs []scheduler.JobInfo
	err  map[string]error
	ran  []string
}

func (f *fakeJobs) Jobs() []scheduler.JobInfo { return f.jobs }

func (f *fakeJobs) RunNow(name string) error {
	f.ran = append(f.ran, name)
	if err, ok := f.err[name]; ok {
		return err
	}
	return nil
}

type fakeBackups struct {
	enabled bool
	result  *reliability.BackupResult
	list    []reliability.BackupInfo
	err     error
}

func (f *fakeBackups) Enabled() bool { return f.enabled }

func (f *fakeBackups) Run(context.Context) (*reliability.BackupResult, error) {
	return f.result, f.err
}

func (f *fakeBackups) List(context.Context) ([]reliability.BackupInfo, error) {
	return f.list, f.err
}

func systemRouter(h *SystemHandlers) http.Handler {
	r := chi.NewRouter()
	r.Get("/status", h.HandleSystemStatus)
	r.Get("/jobs", h.HandleListJobs)
	r.Post("/jobs/{name}", h.HandleRunJob)
	r.Get("/backups", h.HandleListBackups)
	r.Post("/backups", h.HandleTriggerBackup)
	return r
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestSystemHandlers_StatusWithDatabase(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	defer cleanup()

	h := NewSystemHandlers(db, &fakeJobs{}, nil, "1.2.3", zerolog.Nop())
	h.systemStats = func() (float64, float64) { return 1, 2 }

	rec := serve(systemRouter(h), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "sqlite", status.Database.Driver)
	assert.True(t, status.Database.Healthy)
	require.NotNil(t, status.Stats)
	assert.Positive(t, status.Stats.PageCount)
}

func TestSystemHandlers_StatusDegraded(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t)
	cleanup()

	h := NewSystemHandlers(db, nil, nil, "dev", zerolog.Nop())
	h.systemStats = func() (float64, float64) { return 0, 0 }

	rec := serve(systemRouter(h), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.False(t, status.Database.Healthy)
	assert.NotEmpty(t, status.Database.Error)
}

func TestSystemHandlers_Jobs(t *testing.T) {
	next := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	jobs := &fakeJobs{
		jobs: []scheduler.JobInfo{
			{Name: "refresh_valuations", Schedule: "0 */5 * * * *", NextRun: next},
		},
		err: map[string]error{
			"broken":  errors.New("boom"),
			"missing": domain.ErrNotFound,
		},
	}
	h := NewSystemHandlers(nil, jobs, nil, "dev", zerolog.Nop())
	router := systemRouter(h)

	rec := serve(router, http.MethodGet, "/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].NextRun)
	assert.True(t, next.Equal(*listed[0].NextRun))
	assert.Nil(t, listed[0].PrevRun)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/jobs/refresh_valuations").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodPost, "/jobs/broken").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodPost, "/jobs/missing").Code)
	assert.Equal(t, []string{"refresh_valuations", "broken", "missing"}, jobs.ran)
}

func TestSystemHandlers_Backups(t *testing.T) {
	created := time.Date(2024, 3, 1, 2, 30, 0, 0, time.UTC)

	t.Run("run", func(t *testing.T) {
		backups := &fakeBackups{
			enabled: true,
			result:  &reliability.BackupResult{Key: "stock-vision/a.tar.gz", SizeBytes: 10, CreatedAt: created},
		}
		h := NewSystemHandlers(nil, nil, backups, "dev", zerolog.Nop())

		rec := serve(systemRouter(h), http.MethodPost, "/backups")
		require.Equal(t, http.StatusCreated, rec.Code)
		var result reliability.BackupResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "stock-vision/a.tar.gz", result.Key)
	})

	t.Run("failure", func(t *testing.T) {
		backups := &fakeBackups{enabled: true, err: errors.New("bucket gone")}
		h := NewSystemHandlers(nil, nil, backups, "dev", zerolog.Nop())

		assert.Equal(t, http.StatusInternalServerError, serve(systemRouter(h), http.MethodPost, "/backups").Code)
		assert.Equal(t, http.StatusInternalServerError, serve(systemRouter(h), http.MethodGet, "/backups").Code)
	})

	t.Run("list empty", func(t *testing.T) {
		h := NewSystemHandlers(nil, nil, &fakeBackups{enabled: true}, "dev", zerolog.Nop())

		rec := serve(systemRouter(h), http.MethodGet, "/backups")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("disabled", func(t *testing.T) {
		h := NewSystemHandlers(nil, nil, &fakeBackups{}, "dev", zerolog.Nop())
		assert.Equal(t, http.StatusServiceUnavailable, serve(systemRouter(h), http.MethodPost, "/backups").Code)
	})
}
