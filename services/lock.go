package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"

	"github.com/anacarla/crm-api/apperrors"
)

// ErrLockNotObtained is returned when a lock is held elsewhere past the wait budget
var ErrLockNotObtained = errors.New("lock not obtained")

// LockOptions controls how long a lock lives and how long to wait for it.
// A zero Wait fails immediately when the lock is taken.
type LockOptions struct {
	TTL  time.Duration
	Wait time.Duration
}

// Locker hands out named mutual-exclusion locks
type Locker interface {
	Acquire(ctx context.Context, key string, opts LockOptions) (unlock func(), err error)
}

const lockRetryInterval = 50 * time.Millisecond

// RedisLocker is a Locker shared by every replica through Redis
type RedisLocker struct {
	client *redislock.Client
	prefix string
}

// NewRedisLocker creates a new RedisLocker
func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "crm:lock:"}
}

// Acquire obtains key, retrying every 50ms until opts.Wait elapses
func (l *RedisLocker) Acquire(ctx context.Context, key string, opts LockOptions) (func(), error) {
	lockOpts := &redislock.Options{}
	if opts.Wait > 0 {
		retries := int(opts.Wait / lockRetryInterval)
		lockOpts.RetryStrategy = redislock.LimitRetry(redislock.LinearBackoff(lockRetryInterval), retries)
	}

	lock, err := l.client.Obtain(ctx, l.prefix+key, opts.TTL, lockOpts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, apperrors.Transient("obtain lock "+key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the lock may already have expired; nothing left to do then
			_ = lock.Release(context.Background())
		})
	}, nil
}

// LocalLocker is an in-process keyed mutex for single-replica deployments.
// TTL is ignored; locks live until released.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates a new LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

// Acquire takes key, waiting up to opts.Wait or until ctx is done
func (l *LocalLocker) Acquire(ctx context.Context, key string, opts LockOptions) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	drop := func() {
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
	unlock := func() func() {
		var once sync.Once
		return func() {
			once.Do(func() {
				<-lk.ch
				drop()
			})
		}
	}

	select {
	case lk.ch <- struct{}{}:
		return unlock(), nil
	default:
	}
	if opts.Wait <= 0 {
		drop()
		return nil, ErrLockNotObtained
	}

	timer := time.NewTimer(opts.Wait)
	defer timer.Stop()
	select {
	case lk.ch <- struct{}{}:
		return unlock(), nil
	case <-ctx.Done():
		drop()
		return nil, ctx.Err()
	case <-timer.C:
		drop()
		return nil, ErrLockNotObtained
	}
}
