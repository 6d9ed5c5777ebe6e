package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/config"
	"github.com/Leganyst/cleaning-calendar/internal/lock"
)

type fakePurger struct {
	calls  []calendar.Date
	result int64
	err    error
}

func (p *fakePurger) PurgeBefore(_ context.Context, before calendar.Date) (int64, error) {
	p.calls = append(p.calls, before)
	return p.result, p.err
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (lock.Unlock, error) {
	return nil, lock.ErrNotAcquired
}

func newJob(p Purger, l lock.Locker) *Job {
	j := NewJob(zap.NewNop(), &config.RetentionConfig{Enabled: true, Cron: "0 3 * * *", KeepDays: 30}, p, l)
	j.now = func() time.Time { return time.Date(2025, 3, 15, 3, 0, 0, 0, time.UTC) }
	return j
}

func TestJob_RunOncePurgesBeforeCutoff(t *testing.T) {
	p := &fakePurger{result: 4}
	j := newJob(p, nil)

	j.RunOnce(context.Background())

	if len(p.calls) != 1 {
		t.Fatalf("expected one purge, got %d", len(p.calls))
	}
	if got := p.calls[0].String(); got != "2025-02-13" {
		t.Fatalf("expected cutoff 2025-02-13, got %s", got)
	}
}

func TestJob_SkipsWhenLockBusy(t *testing.T) {
	p := &fakePurger{}
	newJob(p, busyLocker{}).RunOnce(context.Background())

	if len(p.calls) != 0 {
		t.Fatalf("expected no purge without lock, got %v", p.calls)
	}
}

func TestJob_PurgeErrorIsSwallowed(t *testing.T) {
	p := &fakePurger{err: errors.New("db down")}
	newJob(p, nil).RunOnce(context.Background())

	if len(p.calls) != 1 {
		t.Fatalf("expected purge attempt, got %d", len(p.calls))
	}
}

func TestJob_StartStop(t *testing.T) {
	j := newJob(&fakePurger{}, nil)
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	j.Stop()

	bad := NewJob(zap.NewNop(), &config.RetentionConfig{Cron: "whenever"}, &fakePurger{}, nil)
	if err := bad.Start(context.Background()); err == nil {
		t.Fatalf("expected error for bad cron spec")
	}
}
