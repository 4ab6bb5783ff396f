package server

import (
	"math"
	"time"
)

// PlayerID 玩家唯一标识（入场时生成的 UUID，存活期间不会复用）
type PlayerID string

// InputState 客户端四向按键状态；每次上报整体覆盖，缺省字段即 false
type InputState struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Direction 由按键状态求方向向量：
// 对向键按代数和相互抵消；两轴同时生效时除以 √2，保证斜向速度与直线一致
func (in InputState) Direction() (dx, dy float64) {
	if in.Left {
		dx--
	}
	if in.Right {
		dx++
	}
	if in.Up {
		dy--
	}
	if in.Down {
		dy++
	}
	if dx != 0 && dy != 0 {
		dx /= math.Sqrt2
		dy /= math.Sqrt2
	}
	return dx, dy
}

// Player 世界内的玩家实体（服务端权威状态，每连接仅此一份正本）
type Player struct {
	ID     PlayerID
	X, Y   float64 // 世界坐标，Tick 之后始终落在边界内
	VX, VY float64 // 每个 Tick 由输入重新推导，从不累积
	Speed  float64 // 像素/秒
	Input  InputState
	Color  string // 入场时随机分配，之后不变

	// IP 仅作诊断用途，随 welcome 回显给本人
	IP string
	// LastSeen 最近一条入站消息的时间；只记录不剔除（当前无闲置超时策略）
	LastSeen time.Time

	Conn *ClientConn
}

// PlayerState 广播给客户端的轻量快照；坐标与速度取整以压缩体积
type PlayerState struct {
	ID    string `json:"id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	VX    int    `json:"vx"`
	VY    int    `json:"vy"`
	Color string `json:"color"`
}

// snapshot 在持锁状态下产出对外快照
func (p *Player) snapshot() PlayerState {
	return PlayerState{
		ID:    string(p.ID),
		X:     int(math.Round(p.X)),
		Y:     int(math.Round(p.Y)),
		VX:    int(math.Round(p.VX)),
		VY:    int(math.Round(p.VY)),
		Color: p.Color,
	}
}
