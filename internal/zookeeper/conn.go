// internal/zookeeper/conn.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
)

// client 是锁用到的 ZooKeeper 操作集合，*Conn 满足它
type client interface {
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	CreateProtectedEphemeralSequential(path string, data []byte, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Delete(path string, version int32) error
}

// Conn 包装 zk.Conn
type Conn struct {
	*zk.Conn
}

type zkLogger struct{}

func (zkLogger) Printf(format string, args ...interface{}) {
	zlog.Debug().Str("component", "zookeeper").Msgf(format, args...)
}

// Connect 建立连接并等待会话建立，超过 sessionTimeout 仍未建立则返回错误
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	if len(servers) == 0 {
		return nil, errors.New("zookeeper: no server configured")
	}
	conn, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{}))
	if err != nil {
		return nil, errors.Wrap(err, "zookeeper: connect")
	}

	timeout := time.After(sessionTimeout)
	for {
		select {
		case ev := <-events:
			if ev.State == zk.StateHasSession {
				zlog.Info().Strs("servers", servers).Msg("Connected to ZooKeeper")
				return &Conn{Conn: conn}, nil
			}
		case <-timeout:
			conn.Close()
			return nil, errors.Errorf("zookeeper: no session after %s", sessionTimeout)
		}
	}
}
