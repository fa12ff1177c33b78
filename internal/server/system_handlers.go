package server

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
	"github.com/ANGELCJR/stock-vision-sub000/internal/httpx"
	"github.com/ANGELCJR/stock-vision-sub000/internal/reliability"
	"github.com/ANGELCJR/stock-vision-sub000/internal/scheduler"
)

// JobRegistry is the part of the scheduler the system routes use
type JobRegistry interface {
	Jobs() []scheduler.JobInfo
	RunNow(name string) error
}

// BackupRunner creates and lists backups
type BackupRunner interface {
	Enabled() bool
	Run(ctx context.Context) (*reliability.BackupResult, error)
	List(ctx context.Context) ([]reliability.BackupInfo, error)
}

// SystemHandlers serves health, status and operational endpoints
type SystemHandlers struct {
	db        *database.DB // nil for the memory driver
	jobs      JobRegistry
	backups   BackupRunner
	version   string
	startedAt time.Time
	log       zerolog.Logger

	// sampled separately so tests do not block on a CPU window
	systemStats func() (cpuPercent, memPercent float64)
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(db *database.DB, jobs JobRegistry, backups BackupRunner, version string, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		db:        db,
		jobs:      jobs,
		backups:   backups,
		version:   version,
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
	h.systemStats = h.sampleSystemStats
	return h
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptimeSeconds"`
	Goroutines    int             `json:"goroutines"`
	CPUPercent    float64         `json:"cpuPercent"`
	MemoryPercent float64         `json:"memoryPercent"`
	Database      DatabaseStatus  `json:"database"`
	Jobs          int             `json:"jobs"`
	Backups       bool            `json:"backupsEnabled"`
	Stats         *database.Stats `json:"stats,omitempty"`
}

// DatabaseStatus reports storage reachability
type DatabaseStatus struct {
	Driver  string `json:"driver"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// JobStatus describes one scheduled job
type JobStatus struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	NextRun  *time.Time `json:"nextRun,omitempty"`
	PrevRun  *time.Time `json:"prevRun,omitempty"`
}

// HandleHealth is the liveness probe
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSystemStatus returns process, host and database status. An
// unreachable database degrades the status but still answers 200.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Database:      DatabaseStatus{Driver: "memory", Healthy: true},
		Backups:       h.backups != nil && h.backups.Enabled(),
	}
	if h.jobs != nil {
		resp.Jobs = len(h.jobs.Jobs())
	}

	if h.db != nil {
		resp.Database.Driver = string(h.db.Driver())
		if err := h.db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Database health check failed")
			resp.Status = "degraded"
			resp.Database.Healthy = false
			resp.Database.Error = err.Error()
		} else if stats, err := h.db.GetStats(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Failed to collect database stats")
		} else {
			resp.Stats = stats
		}
	}

	httpx.WriteJSON(w, h.log, http.StatusOK, resp)
}

// HandleListJobs lists scheduled jobs with their next and previous runs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	out := []JobStatus{}
	if h.jobs != nil {
		for _, j := range h.jobs.Jobs() {
			js := JobStatus{Name: j.Name, Schedule: j.Schedule}
			if !j.NextRun.IsZero() {
				next := j.NextRun
				js.NextRun = &next
			}
			if !j.PrevRun.IsZero() {
				prev := j.PrevRun
				js.PrevRun = &prev
			}
			out = append(out, js)
		}
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, out)
}

// HandleRunJob runs a registered job synchronously
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil {
		httpx.WriteError(w, h.log, http.StatusNotFound, "no jobs are registered")
		return
	}

	start := time.Now()
	if err := h.jobs.RunNow(name); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		httpx.WriteDomainError(w, h.log, err)
		return
	}

	httpx.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"job":        name,
		"status":     "completed",
		"durationMs": time.Since(start).Milliseconds(),
	})
}

// HandleTriggerBackup creates a backup now
// POST /api/system/backups
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil || !h.backups.Enabled() {
		httpx.WriteError(w, h.log, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	result, err := h.backups.Run(r.Context())
	if err != nil {
		if errors.Is(err, reliability.ErrBackupsDisabled) {
			httpx.WriteError(w, h.log, http.StatusServiceUnavailable, "backups are not configured")
			return
		}
		h.log.Error().Err(err).Msg("Manual backup failed")
		httpx.WriteError(w, h.log, http.StatusInternalServerError, "backup failed")
		return
	}
	httpx.WriteJSON(w, h.log, http.StatusCreated, result)
}

// HandleListBackups lists stored backups, newest first
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil || !h.backups.Enabled() {
		httpx.WriteError(w, h.log, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	backups, err := h.backups.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		httpx.WriteError(w, h.log, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []reliability.BackupInfo{}
	}
	httpx.WriteJSON(w, h.log, http.StatusOK, backups)
}

// sampleSystemStats measures CPU over 100ms and reads memory usage.
func (h *SystemHandlers) sampleSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}
	return cpuPercent[0], memStat.UsedPercent
}
