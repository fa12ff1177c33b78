package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANGELCJR/stock-vision-sub000/internal/domain"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
	ran  chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	if j.ran != nil {
		select {
		case j.ran <- struct{}{}:
		default:
		}
	}
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 */5 * * * *", &countingJob{name: "a"}))
	assert.ErrorContains(t, s.AddJob("@hourly", &countingJob{name: "a"}), "already registered")
	assert.ErrorContains(t, s.AddJob("every now and then", &countingJob{name: "b"}), "invalid schedule")
	assert.Error(t, s.AddJob("*/5 * * * *", &countingJob{name: "c"}), "five-field specs lack seconds")

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "0 */5 * * * *", jobs[0].Schedule)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "refresh", err: errors.New("boom")}
	require.NoError(t, s.AddJob("@hourly", job))

	assert.EqualError(t, s.RunNow("refresh"), "boom")
	assert.Equal(t, int32(1), job.runs.Load())
	assert.ErrorContains(t, s.RunNow("missing"), "unknown job")
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick", ran: make(chan struct{}, 1)}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.False(t, jobs[0].NextRun.IsZero())

	select {
	case <-job.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

type fakeServices struct {
	refreshed  int
	newsCalls  int
	newsID     domain.Identity
	generated  int
	purged     int64
	err        error
	sawTimeout bool
}

func (f *fakeServices) RefreshAll(ctx context.Context) (int, error) {
	_, f.sawTimeout = ctx.Deadline()
	return f.refreshed, f.err
}

func (f *fakeServices) Refresh(_ context.Context, id domain.Identity) ([]domain.NewsArticle, error) {
	f.newsCalls++
	f.newsID = id
	return nil, f.err
}

func (f *fakeServices) GenerateAll(context.Context) (int, error) {
	return f.generated, f.err
}

func (f *fakeServices) Purge(context.Context) (int64, error) {
	return f.purged, f.err
}

func TestJobs(t *testing.T) {
	f := &fakeServices{refreshed: 3, generated: 2, purged: 5}
	log := zerolog.Nop()

	jobs := []Job{
		NewRefreshValuationsJob(f, log),
		NewAppendNewsJob(f, log),
		NewGenerateInsightsJob(f, log),
		NewPurgeQuoteCacheJob(f, log),
	}
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		assert.NoError(t, j.Run(), j.Name())
		names = append(names, j.Name())
	}
	assert.Equal(t, []string{"refresh_valuations", "append_news", "generate_insights", "purge_quote_cache"}, names)
	assert.True(t, f.sawTimeout)
	assert.Equal(t, 1, f.newsCalls)
	assert.Equal(t, domain.Identity{}, f.newsID, "scheduled news is not user-focused")

	f.err = errors.New("store down")
	for _, j := range jobs {
		assert.EqualError(t, j.Run(), "store down", j.Name())
	}
}
