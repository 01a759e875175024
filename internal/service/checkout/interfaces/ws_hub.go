// internal/service/checkout/interfaces/ws_hub.go
package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"

	"storefront/internal/service/checkout/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 16
)

// ErrHubClosed 表示 Hub 已停止，不再接受新连接
var ErrHubClosed = errors.New("totals hub closed")

// TotalsMessage 是推送给前端的结算金额消息
type TotalsMessage struct {
	Type   string                `json:"type"`
	UserID string                `json:"userId"`
	Totals domain.CheckoutTotals `json:"totals"`
}

// Hub 维护所有活跃的结算页连接，并把金额变化推送给对应用户。
// 同一用户可以同时打开多个页面。
type Hub struct {
	clients    map[string]map[*wsClient]struct{}
	unregister chan *wsClient
	done       chan struct{}
	closed     bool
	lock       sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*wsClient]struct{}),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool { // 跨域由网关控制
				return true
			},
		},
	}
}

// Run 处理连接注销，ctx 结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.unregister:
			h.lock.Lock()
			h.remove(c)
			h.lock.Unlock()
			zlog.Debug().Str("user_id", c.userID).Msg("totals client unregistered")
		case <-ctx.Done():
			h.lock.Lock()
			h.closed = true
			for _, conns := range h.clients {
				for c := range conns {
					h.remove(c)
				}
			}
			h.lock.Unlock()
			return
		}
	}
}

// remove 调用方需持有写锁
func (h *Hub) remove(c *wsClient) {
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
}

// Serve 把 HTTP 请求升级为 WebSocket 并注册到 Hub。返回时连接已注册，可以立即推送。
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "upgrade websocket")
	}

	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, sendBufferSize), userID: userID}
	h.lock.Lock()
	if h.closed {
		h.lock.Unlock()
		_ = conn.Close()
		return ErrHubClosed
	}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*wsClient]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.lock.Unlock()
	zlog.Debug().Str("user_id", userID).Msg("totals client registered")

	go c.writePump()
	go c.readPump()
	return nil
}

// NotifyTotals 实现 port.TotalsNotifier。发送缓冲区满的连接会丢弃本次推送，下一次变化会带上最新金额。
func (h *Hub) NotifyTotals(userID string, totals domain.CheckoutTotals) {
	payload, err := json.Marshal(TotalsMessage{Type: "totals", UserID: userID, Totals: totals})
	if err != nil {
		zlog.Error().Err(err).Str("user_id", userID).Msg("failed to encode totals message")
		return
	}

	h.lock.RLock()
	defer h.lock.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			zlog.Warn().Str("user_id", userID).Msg("totals client is slow, dropping update")
		}
	}
}

// Connections 返回用户当前的连接数
func (h *Hub) Connections(userID string) int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients[userID])
}

// wsClient 是一个 WebSocket 连接的代表
type wsClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// writePump 负责将 send channel 中的消息写入 websocket，并定时发送心跳
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只处理心跳，连接断开后注销
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
