package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

// 包级别的 WebSocket 常量，供 hub 和 client 包内使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Connect/Disconnect 在 Hub 主循环中执行，限制其耗时
	lifecycleTimeout = 5 * time.Second
)

// MessageHandler 处理连接生命周期和入站消息，返回需要投递的通知。
// 同一个会话的 Handle 调用是串行的。
type MessageHandler interface {
	Connect(ctx context.Context, sessionID string) []domain.Notification
	Handle(ctx context.Context, sessionID string, raw []byte) []domain.Notification
	Disconnect(ctx context.Context, sessionID string) []domain.Notification
}

// Options 连接级别的限制
type Options struct {
	MaxMessageBytes int64   // 单条入站消息的最大字节数，照片以 base64 传输
	RatePerSecond   float64 // 每个连接每秒允许的消息数
	Burst           int
	SendBuffer      int // 每个连接出站队列的长度
}

// DefaultOptions 默认限制
func DefaultOptions() Options {
	return Options{
		MaxMessageBytes: 8 << 20,
		RatePerSecond:   10,
		Burst:           20,
		SendBuffer:      256,
	}
}

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type   string // "register", "unregister"
	Client *Client
}

// wireMessage 发给客户端的消息格式
type wireMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub 维护活跃连接，按会话 ID 投递通知
type Hub struct {
	// 内部通道，处理连接的注册和注销
	messageChan chan HubMessage

	// map[sessionID]*Client
	clients   map[string]*Client
	clientsMu sync.RWMutex

	handler MessageHandler
	opts    Options
	done    chan struct{}
	once    sync.Once
}

// NewHub 创建并返回一个新的 Hub 实例。消息处理器在 Run 时传入。
func NewHub(opts Options) *Hub {
	def := DefaultOptions()
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = def.MaxMessageBytes
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = def.RatePerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = def.Burst
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = def.SendBuffer
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		clients:     make(map[string]*Client),
		opts:        opts,
		done:        make(chan struct{}),
	}
}

// Run 启动 Hub 的主事件处理循环，直到 Stop 被调用。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run(handler MessageHandler) {
	if handler == nil {
		panic("MessageHandler cannot be nil for Hub")
	}
	log := logrus.WithField("component", "hub")
	h.clientsMu.Lock()
	h.handler = handler
	h.clientsMu.Unlock()
	log.Info("Hub is running...")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			default:
				log.Warnf("Hub: Received unknown message type: %s", msg.Type)
			}
		case <-h.done:
			h.closeAll()
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop 停止主循环并关闭所有连接，可重复调用
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *Hub) messageHandler() MessageHandler {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return h.handler
}

// registerClient 登记连接，调用 Connect，随后放行该连接的读循环
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": client.SessionID(),
		"action":     "registerClient",
	})

	h.clientsMu.Lock()
	if old, exists := h.clients[client.SessionID()]; exists && old != client {
		// 同一会话重复连接时只保留最新的连接
		logCtx.Warn("Session already connected, replacing previous connection")
		old.CloseConn()
	}
	h.clients[client.SessionID()] = client
	h.clientsMu.Unlock()
	logCtx.Info("Client registered to Hub")

	ctx, cancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	h.Deliver(h.handler.Connect(ctx, client.SessionID()))
	cancel()
	close(client.registered)
}

// unregisterClient 调用 Disconnect 并关闭连接的 send 通道
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"session_id": client.SessionID(),
		"action":     "unregisterClient",
	})

	h.clientsMu.Lock()
	current, exists := h.clients[client.SessionID()]
	if exists && current == client {
		delete(h.clients, client.SessionID())
	}
	h.clientsMu.Unlock()
	client.closeSend()

	if !exists || current != client {
		// 已被新连接替换，会话仍然有效
		logCtx.Debug("Stale client unregistered")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer cancel()
	h.Deliver(h.handler.Disconnect(ctx, client.SessionID()))
	logCtx.Info("Client unregistered from Hub")
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.clientsMu.Unlock()
	for _, c := range clients {
		c.closeSend()
	}
}

// Deliver 把通知序列化后放入接收者的发送队列。非阻塞，可以在持有房间锁时调用。
func (h *Hub) Deliver(notifications []domain.Notification) {
	for _, n := range notifications {
		message, err := json.Marshal(wireMessage{Type: n.Event, Data: n.Payload})
		if err != nil {
			logrus.WithError(err).WithField("event", n.Event).Error("Failed to marshal notification")
			continue
		}

		h.clientsMu.RLock()
		var targets []*Client
		if n.Scope == domain.ScopeAll {
			targets = make([]*Client, 0, len(h.clients))
			for _, c := range h.clients {
				targets = append(targets, c)
			}
		} else {
			targets = make([]*Client, 0, len(n.Recipients))
			for _, sid := range n.Recipients {
				if c, ok := h.clients[sid]; ok {
					targets = append(targets, c)
				}
			}
		}
		h.clientsMu.RUnlock()

		for _, c := range targets {
			if !c.queue(message) {
				logrus.WithFields(logrus.Fields{
					"session_id": c.SessionID(),
					"event":      n.Event,
				}).Warn("Client send channel full, message dropped")
			}
		}
	}
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 true 如果消息成功入队，false 如果队列已满。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Options 当前的连接限制
func (h *Hub) Options() Options { return h.opts }
