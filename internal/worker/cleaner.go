package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultSchedule = "@daily"

// Job is one maintenance routine. Run reports how many records it touched.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner runs maintenance jobs on a cron schedule.
type Cleaner struct {
	cron     *cron.Cron
	jobs     []Job
	schedule string
	now      func() time.Time
	log      *zap.Logger
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock handed to jobs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithLogger sets the logger used for job outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(cleaner *Cleaner) {
		if logger != nil {
			cleaner.log = logger
		}
	}
}

// NewCleaner constructs a Cleaner over jobs. Nil jobs are dropped.
func NewCleaner(jobs []Job, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		schedule: defaultSchedule,
		now:      func() time.Time { return time.Now().UTC() },
		log:      zap.NewNop(),
	}
	for _, job := range jobs {
		if job != nil {
			cleaner.jobs = append(cleaner.jobs, job)
		}
	}
	for _, opt := range opts {
		opt(cleaner)
	}
	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the jobs with the scheduler and launches it.
func (c *Cleaner) Start() error {
	if len(c.jobs) == 0 {
		return nil
	}
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	c.cron.Start()
	c.log.Info("maintenance scheduled", zap.String("schedule", c.schedule), zap.Int("jobs", len(c.jobs)))
	return nil
}

// Stop halts the scheduler; the returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce executes every job sequentially. A failing job does not stop the
// others; all failures are returned together.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	now := c.now()
	for _, job := range c.jobs {
		n, err := job.Run(ctx, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		c.log.Info("maintenance job done", zap.String("job", job.Name()), zap.Int64("affected", n))
	}
	return errs
}
