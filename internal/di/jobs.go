package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/reliability"
	"github.com/ANGELCJR/stock-vision-sub000/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers every background job
// that the current configuration supports. The scheduler is not started.
func RegisterJobs(container *Container, log zerolog.Logger) error {
	sc := container.Config.Scheduler
	sched := scheduler.New(log)

	register := func(spec string, job scheduler.Job) error {
		if spec == "" {
			log.Debug().Str("job", job.Name()).Msg("Job has no schedule, skipping")
			return nil
		}
		if err := sched.AddJob(spec, job); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
		return nil
	}

	if err := register(sc.RefreshSpec, scheduler.NewRefreshValuationsJob(container.PortfolioService, log)); err != nil {
		return err
	}
	if err := register(sc.NewsSpec, scheduler.NewAppendNewsJob(container.NewsService, log)); err != nil {
		return err
	}
	if err := register(sc.InsightsSpec, scheduler.NewGenerateInsightsJob(container.InsightsService, log)); err != nil {
		return err
	}

	if container.QuoteCache != nil {
		if err := register(sc.CachePurgeSpec, scheduler.NewPurgeQuoteCacheJob(container.QuoteCache, log)); err != nil {
			return err
		}
	}

	if container.BackupService.Enabled() {
		if err := register(sc.BackupSpec, reliability.NewBackupJob(container.BackupService, log)); err != nil {
			return err
		}
	}

	if container.DB != nil {
		maintenance := reliability.NewMaintenanceJob(container.DB, container.Config.Server.DataDir, log)
		if err := register(sc.MaintenanceSpec, maintenance); err != nil {
			return err
		}
	}

	container.Scheduler = sched
	return nil
}
