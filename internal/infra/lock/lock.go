// Package lock — распределённая блокировка на Redis (SET NX PX).
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если он всё ещё наш.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

var ErrNotHeld = errors.New("lock not held")

type Locker struct {
	rdb   redis.Cmdable
	token func() string
}

func New(rdb redis.Cmdable) *Locker {
	return &Locker{rdb: rdb, token: uuid.NewString}
}

// Lease — взятая блокировка.
type Lease struct {
	l     *Locker
	key   string
	token string
}

// TryAcquire не ждёт: занятый ключ даёт (nil, nil).
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	tok := l.token()
	ok, err := l.rdb.SetNX(ctx, key, tok, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{l: l, key: key, token: tok}, nil
}

func (s *Lease) Release(ctx context.Context) error {
	n, err := s.l.rdb.Eval(ctx, releaseScript, []string{s.key}, s.token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", s.key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Connect открывает клиент по URL (redis://) или голому адресу и проверяет связь.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	opts.MaxRetries = 3

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Do выполняет fn под блокировкой key. Если ключ занят, fn не вызывается и ran == false.
func (l *Locker) Do(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (ran bool, err error) {
	lease, err := l.TryAcquire(ctx, key, ttl)
	if err != nil || lease == nil {
		return false, err
	}
	defer func() {
		if rerr := lease.Release(ctx); rerr != nil && err == nil && !errors.Is(rerr, ErrNotHeld) {
			err = rerr
		}
	}()
	return true, fn(ctx)
}
