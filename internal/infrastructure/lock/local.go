package lock

import (
	"context"
	"sync"
	"time"
)

// LocalFactory 进程内锁工厂
// 单实例部署或测试时替代 Redis 锁，接口行为保持一致
type LocalFactory struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalFactory() *LocalFactory {
	return &LocalFactory{locks: make(map[string]*sync.Mutex)}
}

func (f *LocalFactory) NewLock(key, value string, expiration time.Duration) Locker {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.locks[key]
	if !ok {
		m = &sync.Mutex{}
		f.locks[key] = m
	}
	return &localLock{mu: m}
}

type localLock struct {
	mu *sync.Mutex
}

func (l *localLock) TryLock(ctx context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *localLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		if l.mu.TryLock() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

func (l *localLock) Unlock(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}
