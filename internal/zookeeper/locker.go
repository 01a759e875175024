// internal/zookeeper/locker.go
package zookeeper

import "context"

// Locker 以资源 key 为粒度提供跨实例互斥
type Locker struct {
	conn client
}

func NewLocker(conn *Conn) *Locker {
	return &Locker{conn: conn}
}

// Lock 获取 key 对应的分布式锁，返回释放函数
func (z *Locker) Lock(ctx context.Context, key string) (func() error, error) {
	lock, err := NewDistributedLock(z.conn, key)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return lock.Unlock, nil
}
