package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端，一个连接对应一个会话
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	limiter   *rate.Limiter

	// registered 在 Hub 处理完注册 (Connect) 后关闭，之后才开始读消息
	registered chan struct{}

	mu     sync.Mutex
	send   chan []byte
	closed bool
	log    *logrus.Entry
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	opts := hub.Options()
	return &Client{
		hub:        hub,
		conn:       conn,
		sessionID:  sessionID,
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		registered: make(chan struct{}),
		send:       make(chan []byte, opts.SendBuffer),
		log:        logrus.WithField("session_id", sessionID),
	}
}

// Run 请求注册并启动读写 goroutine。注册请求无法入队时关闭连接。
func (c *Client) Run() bool {
	if !c.hub.QueueMessage(HubMessage{Type: "register", Client: c}) {
		c.CloseConn()
		return false
	}
	go c.WritePump()
	go c.ReadPump()
	return true
}

// queue 非阻塞地放入发送队列。已关闭的连接直接丢弃。
func (c *Client) queue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump 读取消息并交给 MessageHandler 同步处理，保证同一连接的消息按顺序执行。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		// 清理操作：请求 Hub 注销此客户端
		c.requestUnregister()
		c.conn.Close()
		c.log.Info("readPump exited, unregistered client")
	}()

	select {
	case <-c.registered:
	case <-c.hub.done:
		return
	}
	handler := c.hub.messageHandler()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.log.Debug("WebSocket connection closed normally or read error")
			}
			break
		}
		if messageType != websocket.TextMessage {
			c.log.Debugf("Received non-text message type: %d", messageType)
			continue
		}
		if !c.limiter.Allow() {
			c.log.Warn("Client message rate exceeded, message dropped")
			c.hub.Deliver([]domain.Notification{
				domain.ErrBadMessage.With("reason", "rate limit exceeded").Notify(c.sessionID),
			})
			continue
		}
		c.log.Debugf("Received raw message (size: %d)", len(message))
		c.hub.Deliver(handler.Handle(context.Background(), c.sessionID, message))
	}
}

// requestUnregister 阻塞直到注销请求入队或 Hub 停止。
// 丢弃注销请求会让会话一直留在房间和在线列表里。
func (c *Client) requestUnregister() {
	select {
	case c.hub.messageChan <- HubMessage{Type: "unregister", Client: c}:
	case <-c.hub.done:
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭了（通常在注销时）
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

func (c *Client) SessionID() string { return c.sessionID }
func (c *Client) CloseConn()        { c.conn.Close() }
