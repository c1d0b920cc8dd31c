package automation

import (
	"context"
	"log/slog"
	"time"
)

const LockKey = "parkaro:sweep"

// Guard не даёт двум экземплярам сервиса проходить по броням одновременно.
type Guard interface {
	Do(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

// local — охрана для одного процесса (режим --memory, без Redis).
type local struct{}

func (local) Do(ctx context.Context, _ string, _ time.Duration, fn func(ctx context.Context) error) (bool, error) {
	return true, fn(ctx)
}

type Runner struct {
	sweeper  *Sweeper
	guard    Guard
	log      *slog.Logger
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
}

// NewRunner без guard (nil) считает процесс единственным.
func NewRunner(s *Sweeper, guard Guard, log *slog.Logger, interval, lockTTL time.Duration) *Runner {
	if guard == nil {
		guard = local{}
	}
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &Runner{sweeper: s, guard: guard, log: log, interval: interval, lockTTL: lockTTL, now: time.Now}
}

// Tick — один проход под блокировкой. ran == false, если блокировка у другого экземпляра.
func (r *Runner) Tick(ctx context.Context) (rep Report, ran bool, err error) {
	ran, err = r.guard.Do(ctx, LockKey, r.lockTTL, func(ctx context.Context) error {
		var err error
		rep, err = r.sweeper.All(ctx, r.now())
		return err
	})
	return rep, ran, err
}

// Run выполняет Tick каждые interval до отмены ctx.
func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		r.tick(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	rep, ran, err := r.Tick(ctx)
	if err != nil {
		r.log.Error("sweep failed", "err", err)
	}
	if !ran {
		r.log.Debug("sweep skipped, lock busy")
		return
	}
	r.log.Info("sweep done", "expired", rep.Expired, "fined", rep.Fined, "reminded", rep.Reminded)
}
