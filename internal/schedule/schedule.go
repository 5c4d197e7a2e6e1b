package schedule

import (
	"context"
	"time"

	"github.com/go-ap/errors"
	"github.com/robfig/cron/v3"

	appLog "monthcal/internal/log"
)

// Refresher re-reads the clock. The controller satisfies it.
type Refresher interface {
	RefreshToday()
}

// Scheduler runs the today rollover on a cron spec in a fixed location.
type Scheduler struct {
	cron *cron.Cron
	id   cron.EntryID
	spec string
}

// New parses spec (standard 5-field cron or a descriptor such as "@daily")
// and binds it to target. Nothing runs before Run.
func New(spec string, loc *time.Location, target Refresher) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if target == nil {
		return nil, errors.Newf("schedule: target is nil")
	}

	c := cron.New(cron.WithLocation(loc))
	id, err := c.AddFunc(spec, func() {
		appLog.Debug("today refresh")
		target.RefreshToday()
	})
	if err != nil {
		return nil, errors.Annotatef(err, "invalid today_refresh %q", spec)
	}
	return &Scheduler{cron: c, id: id, spec: spec}, nil
}

// Next is the next time the job fires after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.cron.Entry(s.id).Schedule.Next(now)
}

// Run starts the scheduler and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	appLog.Info("today refresh scheduled", "spec", s.spec, "next", s.Next(time.Now()).Format(time.RFC3339))
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
