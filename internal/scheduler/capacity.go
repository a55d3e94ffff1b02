// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
)

type listingSource interface {
	DefaultSemester() string
	ListCourseListings(ctx context.Context, semester string) ([]models.CourseListing, error)
}

// CapacityJob refreshes the seat availability gauges of the default semester.
type CapacityJob struct {
	courses listingSource
	metrics *service.MetricsService
	logger  *zap.Logger
	timeout time.Duration
}

// NewCapacityJob constructs the job.
func NewCapacityJob(courses listingSource, metrics *service.MetricsService, logger *zap.Logger) *CapacityJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityJob{courses: courses, metrics: metrics, logger: logger, timeout: 30 * time.Second}
}

// Run takes one snapshot.
func (j *CapacityJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	semester := j.courses.DefaultSemester()
	listings, err := j.courses.ListCourseListings(ctx, semester)
	if err != nil {
		j.logger.Warn("capacity snapshot failed", zap.String("semester", semester), zap.Error(err))
		return err
	}

	j.metrics.ResetSeats()
	full := 0
	for _, listing := range listings {
		seats := listing.SeatsAvailable()
		if seats == 0 {
			full++
		}
		j.metrics.SetSeatsAvailable(listing.ID, listing.Semester, seats)
	}
	j.logger.Debug("capacity snapshot taken", zap.String("semester", semester), zap.Int("courses", len(listings)), zap.Int("full", full))
	return nil
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates an idle scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
	}
}

// Register adds job on the given cron spec.
func (s *Scheduler) Register(spec, name string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(context.Background()); err != nil {
			s.logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.logger.Info("scheduled job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
