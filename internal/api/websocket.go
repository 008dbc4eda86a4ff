// internal/api/websocket.go
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/InkFlowStudio/internal/models"
	"github.com/Corphon/InkFlowStudio/internal/services"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 单用户本地应用，放开来源检查
		return true
	},
}

// WebSocketClient 表示一个工作台 WebSocket 连接
type WebSocketClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closed    int32 // 原子操作标志，0=开启，1=关闭
	createdAt time.Time
}

// Close 安全关闭客户端连接
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		// 只设置关闭标志，send 通道由写循环的 defer 负责关闭
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// SendMessage 安全发送消息到客户端，队列满时丢弃
func (client *WebSocketClient) SendMessage(message map[string]interface{}) {
	if client.IsClosed() {
		return
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return
	}

	select {
	case client.send <- msgBytes:
	default:
		log.Printf("客户端消息队列已满，消息被丢弃")
	}
}

// WebSocketManager 管理所有工作台连接并分发推送
type WebSocketManager struct {
	clients    map[*WebSocketClient]bool
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	broadcast  chan []byte
	mutex      sync.RWMutex
}

// 全局 WebSocket 管理器
var wsManager = &WebSocketManager{
	clients:    make(map[*WebSocketClient]bool),
	register:   make(chan *WebSocketClient, 16),
	unregister: make(chan *WebSocketClient, 16),
	broadcast:  make(chan []byte, 256),
}

func init() {
	go wsManager.run()
}

// run 管理器主循环
func (manager *WebSocketManager) run() {
	for {
		select {
		case client := <-manager.register:
			manager.mutex.Lock()
			manager.clients[client] = true
			manager.mutex.Unlock()

		case client := <-manager.unregister:
			manager.mutex.Lock()
			if manager.clients[client] {
				delete(manager.clients, client)
				client.Close()
			}
			manager.mutex.Unlock()

		case message := <-manager.broadcast:
			manager.mutex.RLock()
			for client := range manager.clients {
				if client.IsClosed() {
					continue
				}
				select {
				case client.send <- message:
				default:
				}
			}
			manager.mutex.RUnlock()
		}
	}
}

// Broadcast 向所有连接推送一条消息
func (manager *WebSocketManager) Broadcast(message map[string]interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return
	}
	select {
	case manager.broadcast <- msgBytes:
	default:
	}
}

// ClientCount 当前连接数
func (manager *WebSocketManager) ClientCount() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}

// BroadcastFocusStatus 推送锁定会话进度
func BroadcastFocusStatus(status *models.FocusStatus) {
	wsManager.Broadcast(map[string]interface{}{
		"type":      "focus_status",
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// BroadcastSaved 推送自动保存完成事件
func BroadcastSaved(savedAt time.Time) {
	wsManager.Broadcast(map[string]interface{}{
		"type":      "saved",
		"saved_at":  savedAt.Format(time.RFC3339),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// StartFocusRelay 把锁定会话的进度推送桥接到 WebSocket 广播
func StartFocusRelay(focus *services.FocusService) {
	ch := focus.Subscribe()
	go func() {
		for status := range ch {
			BroadcastFocusStatus(status)
		}
	}()
}

// StudioWebSocket 处理工作台 WebSocket 连接
func (h *Handler) StudioWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	client := &WebSocketClient{
		conn:      conn,
		send:      make(chan []byte, 64),
		createdAt: time.Now(),
	}
	wsManager.register <- client

	// 连上即推一次当前状态
	client.SendMessage(map[string]interface{}{
		"type":      "focus_status",
		"status":    h.Focus.Status(),
		"timestamp": time.Now().Format(time.RFC3339),
	})

	go client.writePump()
	go client.readPump()
}

// writePump 消息写循环，负责关闭 send 通道
func (client *WebSocketClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.Close()
		close(client.send)
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 消息读循环，客户端断开时注销连接
func (client *WebSocketClient) readPump() {
	defer func() {
		wsManager.unregister <- client
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
