// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/Corphon/StoryPlanner/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 16
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = (pongTimeout * 9) / 10
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 本地单用户应用，不限制来源
		return true
	},
}

// StateMessage 推送给客户端的消息
type StateMessage struct {
	Type      string           `json:"type"`
	Data      *models.Snapshot `json:"data,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// WebSocketClient 表示一个 WebSocket 客户端连接
type WebSocketClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closed    int32 // 原子操作标志，0=开启，1=关闭
	createdAt time.Time
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// trySend 非阻塞入队，队列满时返回 false
func (client *WebSocketClient) trySend(msg []byte) bool {
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

// Hub 订阅状态存储，把每次变更后的快照广播给所有连接
// 跟不上推送速度的客户端会被直接断开
type Hub struct {
	logger  *utils.Logger
	metrics *utils.MetricsCollector

	mu          sync.RWMutex
	clients     map[*WebSocketClient]struct{}
	unsubscribe func()
	store       *store.Store
}

// NewHub 创建推送中心并订阅状态变更
func NewHub(st *store.Store, logger *utils.Logger, metrics *utils.MetricsCollector) *Hub {
	h := &Hub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[*WebSocketClient]struct{}),
		store:   st,
	}
	h.unsubscribe = st.Subscribe(h.broadcast)
	return h
}

func encodeState(snap models.Snapshot) ([]byte, error) {
	return json.Marshal(StateMessage{Type: "state", Data: &snap, Timestamp: time.Now()})
}

// broadcast 作为状态监听器被同步调用，不能阻塞
func (h *Hub) broadcast(snap models.Snapshot) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}

	msg, err := encodeState(snap)
	if err != nil {
		h.mu.RUnlock()
		h.logger.Error("序列化状态失败", map[string]interface{}{"error": err})
		return
	}

	var slow []*WebSocketClient
	for client := range h.clients {
		if !client.trySend(msg) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("客户端消息队列已满，断开连接", map[string]interface{}{"queued": len(client.send)})
		h.unregister(client)
	}
}

// Serve 升级HTTP连接，先推送一次当前状态，再持续推送变更
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &WebSocketClient{
		conn:      conn,
		send:      make(chan []byte, sendQueueSize),
		createdAt: time.Now(),
	}

	if err := h.register(client); err != nil {
		conn.Close()
		return err
	}
	go h.writePump(client)
	go h.readPump(client)
	return nil
}

// register 在持有锁时读取当前状态并入队，保证首条消息不会晚于之后的变更
func (h *Hub) register(client *WebSocketClient) error {
	h.mu.Lock()
	initial, err := encodeState(h.store.State())
	if err != nil {
		h.mu.Unlock()
		return err
	}
	client.send <- initial
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetGauge(utils.MetricWSClients, int64(n))
	h.logger.Info("WebSocket 客户端已连接", map[string]interface{}{"clients": n})
	return nil
}

// unregister 移除客户端并关闭发送队列，可重复调用
func (h *Hub) unregister(client *WebSocketClient) {
	if !atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		return
	}

	h.mu.Lock()
	delete(h.clients, client)
	n := len(h.clients)
	close(client.send)
	h.mu.Unlock()

	h.metrics.SetGauge(utils.MetricWSClients, int64(n))
	h.logger.Info("WebSocket 客户端已断开", map[string]interface{}{"clients": n})
}

// readPump 只处理 pong 与关闭帧，读取出错即注销
func (h *Hub) readPump(client *WebSocketClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *WebSocketClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(client)
				return
			}
		}
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 取消订阅并断开所有客户端
func (h *Hub) Close() {
	h.unsubscribe()

	h.mu.RLock()
	clients := make([]*WebSocketClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.unregister(client)
	}
}
