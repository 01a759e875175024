package port

import "context"

// Locker 为同一用户的结算请求提供互斥，防止重复提交。
type Locker interface {
	// Lock 阻塞直到获得 key 对应的锁，返回释放函数。
	Lock(ctx context.Context, key string) (unlock func() error, err error)
}
