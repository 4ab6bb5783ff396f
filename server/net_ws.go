package server

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// ClientConn 单个连接的发送端包装：带缓冲队列与独立写协程
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Enqueue 非阻塞投递；连接不可写（已关闭或队列满）时丢弃并返回 false。
// 慢消费者只会丢自己的消息，绝不拖慢共享的定时循环
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 幂等关闭：结束写协程并断开底层连接
func (c *ClientConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	if c.ws != nil {
		_ = c.ws.Close()
	}
}

// Closed 连接是否已不可写
func (c *ClientConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// writePump 独立协程，把 send 队列写出到 WebSocket；写失败即关闭连接
func (c *ClientConn) writePump() {
	defer c.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：放开跨域（生产环境需收紧）
		return true
	},
}

// HandleWS WebSocket 接入：升级连接、注册实体、
// 向本人发一次 welcome，再向其余玩家通告 player_join
func (w *World) HandleWS(rw http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warnf("upgrade: %v", err)
		return
	}

	ip := remoteIP(r)
	client := NewClientConn(ws)
	p, announce := w.Join(client, ip)
	w.log.Infow("player joined", "id", p.ID, "ip", ip)

	// 通告载荷来自注册前的值快照，不回读已发布实体的坐标
	if b, err := json.Marshal(WelcomeMessage{Type: MsgTypeWelcome, ID: string(p.ID), IP: ip}); err == nil {
		client.Enqueue(b)
	}
	if b, err := json.Marshal(announce); err == nil {
		w.BroadcastExcept(p.ID, b)
	}

	go client.writePump()
	go w.readPump(client, p.ID)
}

// readPump 逐条读取入站消息并分派；读错误（含对端关闭）即移除实体。
// 注意：不设读超时——当前没有闲置剔除策略，断开是唯一的取消信号
func (w *World) readPump(c *ClientConn, id PlayerID) {
	defer w.Leave(id)
	c.ws.SetReadLimit(1 << 20) // 1MB

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		w.handleMessage(c, id, payload)
	}
}

// handleMessage 按消息类型分派。任何畸形或未知消息只丢弃本条并告警，
// 既不关闭连接，也不向上层传播
func (w *World) handleMessage(c *ClientConn, id PlayerID, payload []byte) {
	msg, err := ParseClientMessage(payload)
	if err != nil {
		w.log.Warnf("malformed message from %s: %v", id, err)
		w.metrics.Dropped(DropMalformed)
		return
	}

	switch msg.Type {
	case MsgTypeInput:
		var in InputState
		if msg.Input != nil {
			in = *msg.Input
		}
		if w.ApplyInput(id, in) {
			w.metrics.InputsTotal.Inc()
		} else {
			w.metrics.Dropped(DropStaleID)
		}
	case MsgTypePing:
		if b, err := json.Marshal(PongMessage{Type: MsgTypePong, Ts: msg.Ts}); err == nil {
			c.Enqueue(b)
		}
	default:
		w.log.Warnf("unknown message type %q from %s", msg.Type, id)
		w.metrics.Dropped(DropUnknownType)
	}
}

// remoteIP 取对端地址的主机部分，仅作诊断字段
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
