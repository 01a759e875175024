// internal/pkg/redis/client.go
package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

// Options 是创建 Redis 客户端需要的参数
type Options struct {
	Addrs    []string
	Password string
	DB       int
}

// NewClient 按地址数量返回单机或集群客户端，并在返回前 PING 一次
func NewClient(ctx context.Context, opts Options) (goredis.UniversalClient, error) {
	if len(opts.Addrs) == 0 {
		return nil, errors.New("redis: no address configured")
	}
	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        opts.Addrs,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis: ping %v", opts.Addrs)
	}
	zlog.Info().Strs("addrs", opts.Addrs).Msg("Connected to Redis")
	return client, nil
}
