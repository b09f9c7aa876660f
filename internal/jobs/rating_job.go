package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vedran77/covoit/pkg/logger"
)

// RatingSource recomputes stored driver ratings from their reviews.
type RatingSource interface {
	ReconcileRatings(ctx context.Context) (int, error)
}

// RatingReconciler periodically repairs drift between reviews and the
// denormalized rating on users.
type RatingReconciler struct {
	source  RatingSource
	log     *logger.Logger
	timeout time.Duration
	cron    *cron.Cron
}

func NewRatingReconciler(source RatingSource, log *logger.Logger, timeout time.Duration) *RatingReconciler {
	return &RatingReconciler{
		source:  source,
		log:     log,
		timeout: timeout,
		cron:    cron.New(),
	}
}

// Schedule registers the job with a cron expression such as "@hourly" or
// "*/15 * * * *".
func (j *RatingReconciler) Schedule(schedule string) error {
	_, err := j.cron.AddFunc(schedule, j.Run)
	return err
}

func (j *RatingReconciler) Start() {
	j.cron.Start()
	j.log.Info("rating reconciliation scheduled", "entries", len(j.cron.Entries()))
}

// Stop halts the scheduler and waits for a running reconciliation to finish.
func (j *RatingReconciler) Stop() {
	<-j.cron.Stop().Done()
}

// Run performs one reconciliation pass.
func (j *RatingReconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.source.ReconcileRatings(ctx)
	if err != nil {
		j.log.Error("rating reconciliation failed", "done", n, "err", err)
		return
	}
	j.log.Info("rating reconciliation finished", "drivers", n, "took", time.Since(start))
}
