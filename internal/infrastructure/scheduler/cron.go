package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 10 * time.Second

// Cron runs periodic maintenance jobs such as the backend health probe.
type Cron struct {
	c      *cron.Cron
	logger *zap.Logger
}

func NewCron(logger *zap.Logger) *Cron {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	return &Cron{c: c, logger: logger}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for running jobs to finish.
func (cr *Cron) Stop() { ctx := cr.c.Stop(); <-ctx.Done() }

// AddWithCtx schedules fn under expr. Each run gets its own deadline.
func (cr *Cron) AddWithCtx(name, expr string, fn func(ctx context.Context)) (cron.EntryID, error) {
	id, err := cr.c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		fn(ctx)
	})
	if err != nil {
		return 0, err
	}
	cr.logger.Info("cron job scheduled", zap.String("job", name), zap.String("spec", expr))
	return id, nil
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }
