package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Expirer moves every overdue card to EXPIRED
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ExpiryJob sweeps overdue cards on a cron schedule. It complements the
// per-operation expiry check, which catches cards between runs.
type ExpiryJob struct {
	expirer Expirer
	log     *logrus.Logger
	cron    *cron.Cron
	timeout time.Duration
	now     func() time.Time
}

// NewExpiryJob registers the sweep under schedule, e.g. "@daily" or "0 3 * * *"
func NewExpiryJob(expirer Expirer, schedule string, log *logrus.Logger) (*ExpiryJob, error) {
	j := &ExpiryJob{
		expirer: expirer,
		log:     log,
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cron.PrintfLogger(log))),
		timeout: 5 * time.Minute,
		now:     time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins running the job in the background
func (j *ExpiryJob) Start() {
	j.cron.Start()
	j.log.Info("Expiry sweep scheduled")
}

// Stop stops scheduling and waits for a running sweep to finish or ctx to end
func (j *ExpiryJob) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Run performs one sweep
func (j *ExpiryJob) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.expirer.ExpireOverdue(ctx, j.now())
	if err != nil {
		j.log.WithError(err).Error("Expiry sweep failed")
		return
	}
	j.log.WithField("expired", n).Info("Expiry sweep finished")
}
