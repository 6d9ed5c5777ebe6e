package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/config"
	"github.com/Leganyst/cleaning-calendar/internal/lock"
)

// LockKey — одна очистка на все экземпляры сервиса.
const LockKey = "calendar:lock:retention"

// Purger удаляет записи строго раньше даты.
type Purger interface {
	PurgeBefore(ctx context.Context, before calendar.Date) (int64, error)
}

// Job по расписанию удаляет записи старше KeepDays дней.
type Job struct {
	log    *zap.Logger
	purger Purger
	locker lock.Locker
	spec   string
	keep   int
	now    func() time.Time

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
}

func NewJob(log *zap.Logger, cfg *config.RetentionConfig, purger Purger, locker lock.Locker) *Job {
	if locker == nil {
		locker = lock.NopLocker{}
	}
	return &Job{
		log:    log,
		purger: purger,
		locker: locker,
		spec:   cfg.Cron,
		keep:   cfg.KeepDays,
		now:    time.Now,
	}
}

// Start ставит задачу в расписание. Спецификация уже проверена в конфиге.
func (j *Job) Start(ctx context.Context) error {
	j.runCtx, j.cancel = context.WithCancel(ctx)

	c := cron.New()
	if _, err := c.AddFunc(j.spec, func() { j.RunOnce(j.runCtx) }); err != nil {
		j.cancel()
		return err
	}
	c.Start()
	j.cron = c

	j.log.Info("retention: scheduled", zap.String("cron", j.spec), zap.Int("keep_days", j.keep))
	return nil
}

// Stop останавливает расписание и ждёт текущий запуск.
func (j *Job) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Cutoff — первая дата, которая остаётся в календаре.
func (j *Job) Cutoff() calendar.Date {
	return calendar.DateOf(j.now().UTC()).AddDays(-j.keep)
}

// RunOnce — один проход очистки.
func (j *Job) RunOnce(ctx context.Context) {
	unlock, err := j.locker.Lock(ctx, LockKey)
	if err != nil {
		j.log.Info("retention: lock not acquired, skipping", zap.Error(err))
		return
	}
	defer unlock(context.WithoutCancel(ctx))

	cutoff := j.Cutoff()
	n, err := j.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		j.log.Warn("retention: purge failed", zap.Stringer("before", cutoff), zap.Error(err))
		return
	}
	j.log.Info("retention: purge done", zap.Stringer("before", cutoff), zap.Int64("removed", n))
}
