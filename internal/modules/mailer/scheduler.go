package mailer

import (
	"context"
	"log"
	"time"
)

// Runner drives the two periodic passes over persisted schedules: a
// frequent sweep for due sends and a slower pass that retries failures.
type Runner struct {
	service       *Service
	sweepInterval time.Duration
	retryInterval time.Duration
}

func NewRunner(service *Service, sweepInterval, retryInterval time.Duration) *Runner {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	if retryInterval <= 0 {
		retryInterval = time.Hour
	}
	return &Runner{
		service:       service,
		sweepInterval: sweepInterval,
		retryInterval: retryInterval,
	}
}

// Run blocks until ctx is cancelled. Both loops fire once on startup so a
// restarted process drains overdue work immediately.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("mailer: scheduler started sweep=%s retry=%s", r.sweepInterval, r.retryInterval)

	done := make(chan struct{})
	go func() {
		r.loop(ctx, r.sweepInterval, func() {
			r.service.SweepDue(ctx, time.Now())
		})
		done <- struct{}{}
	}()
	go func() {
		r.loop(ctx, r.retryInterval, func() {
			r.service.RetryFailed(ctx)
		})
		done <- struct{}{}
	}()

	<-done
	<-done
	log.Printf("mailer: scheduler stopped")
}

func (r *Runner) loop(ctx context.Context, interval time.Duration, pass func()) {
	pass()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass()
		}
	}
}
