package server

import "encoding/json"

// 线协议消息类型（封闭集合，未知取值仅告警丢弃）
const (
	MsgTypeInput      = "input"
	MsgTypePing       = "ping"
	MsgTypeWelcome    = "welcome"
	MsgTypePlayerJoin = "player_join"
	MsgTypeSnapshot   = "snapshot"
	MsgTypeRemove     = "remove"
	MsgTypePong       = "pong"
)

// ClientMessage 入站消息的统一外壳（文本 JSON，逐条解析后按 Type 分派）
// 示例：{"type":"input","input":{"up":true,"left":true}}
type ClientMessage struct {
	Type  string      `json:"type"`
	Input *InputState `json:"input,omitempty"`
	Ts    int64       `json:"ts,omitempty"`
}

// ParseClientMessage 解析一条入站消息；解析失败只影响这一条，连接保持
func ParseClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}

// WelcomeMessage 连接建立后仅向本人发送一次，携带分配的 ID 与对端地址
type WelcomeMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	IP   string `json:"ip"`
}

// JoinMessage 新玩家入场通告，广播给除本人外的所有连接
type JoinMessage struct {
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

// SnapshotMessage 周期性全量快照信封
type SnapshotMessage struct {
	Type    string        `json:"type"`
	Ts      int64         `json:"ts"`
	Players []PlayerState `json:"players"`
}

// RemoveMessage 玩家离场通告，广播给剩余连接
type RemoveMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// PongMessage 对 ping 的应答，仅发给请求方，原样带回客户端时间戳
type PongMessage struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts"`
}

// Protocol 汇总全部线协议消息，供 cmd/schema 反射生成 JSON Schema 文档
type Protocol struct {
	Welcome    WelcomeMessage  `json:"welcome"`
	PlayerJoin JoinMessage     `json:"player_join"`
	Snapshot   SnapshotMessage `json:"snapshot"`
	Remove     RemoveMessage   `json:"remove"`
	Pong       PongMessage     `json:"pong"`
	Client     ClientMessage   `json:"client"`
}
