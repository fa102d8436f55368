package orchestrator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Schedule describes the recurring trigger: every EveryDays days at the
// fixed time-of-day At (HH:MM).
type Schedule struct {
	EveryDays int
	At        string
}

// timeOfDay parses At, defaulting to 09:00 on malformed input.
func (s Schedule) timeOfDay() (int, int) {
	parts := strings.SplitN(s.At, ":", 2)
	if len(parts) != 2 {
		return 9, 0
	}
	hour, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 9, 0
	}
	return hour, min
}

// Next computes the next fire time strictly after now. When a previous
// run is known, the next slot is anchored EveryDays after it; otherwise
// the next occurrence of the time-of-day fires.
func (s Schedule) Next(now time.Time, last *time.Time) time.Time {
	every := s.EveryDays
	if every <= 0 {
		every = 14
	}
	hour, min := s.timeOfDay()

	if last != nil {
		anchored := last.In(now.Location())
		next := time.Date(anchored.Year(), anchored.Month(), anchored.Day()+every,
			hour, min, 0, 0, now.Location())
		if next.After(now) {
			return next
		}
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunEvery runs the orchestrator on the schedule until ctx is
// cancelled. The process idles between runs; a failed run is logged and
// the loop continues to the next slot.
func (o *Orchestrator) RunEvery(ctx context.Context, sched Schedule) error {
	log := zap.L().With(zap.String("component", "orchestrator.schedule"))

	var last *time.Time
	if o.log != nil {
		t, err := o.log.LastRunStart(ctx)
		if err != nil {
			log.Warn("failed to read last run, scheduling from now", zap.Error(err))
		} else {
			last = t
		}
	}

	for {
		now := o.now()
		next := sched.Next(now, last)
		log.Info("next run scheduled",
			zap.Time("at", next),
			zap.Duration("wait", next.Sub(now)),
		)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		fired := o.now()
		if _, err := o.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("scheduled run failed", zap.Error(err))
		}
		last = &fired
	}
}
