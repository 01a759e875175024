package adapter

import (
	"context"
	"sync"
)

type localLock struct {
	ch   chan struct{}
	refs int // 持有者加等待者
}

// LocalLocker 是单实例部署时的进程内按 key 互斥锁，未配置 ZooKeeper 时使用。
// 没有持有者和等待者的 key 会被移除。
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func() error, error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() error {
		once.Do(func() {
			<-lk.ch
			l.release(key, lk)
		})
		return nil
	}, nil
}

func (l *LocalLocker) release(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
