package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 世界边界与出生区域（像素坐标，y 轴向下）
const (
	WorldMinX = 20.0
	WorldMaxX = 980.0
	WorldMinY = 20.0
	WorldMaxY = 580.0

	spawnMinX = 100.0
	spawnMaxX = 900.0
	spawnMinY = 100.0
	spawnMaxY = 500.0

	// DefaultSpeed 实体默认移动速率（像素/秒）
	DefaultSpeed = 180.0
)

// Config 运行参数：监听端口、仿真频率与广播频率（两者刻意解耦）
type Config struct {
	Port        int
	TickHz      int
	BroadcastHz int
}

// DefaultConfig 默认参数：3000 端口、60Hz 仿真、10Hz 广播
func DefaultConfig() Config {
	return Config{Port: 3000, TickHz: 60, BroadcastHz: 10}
}

// World 权威世界：玩家注册表是进程内唯一的共享可变状态，
// 所有读写（输入、Tick、广播、会话增删）都经同一把粗粒度互斥锁，
// 保证快照读到的永远是一组内部一致、完整写入的实体
type World struct {
	mu      sync.Mutex
	players map[PlayerID]*Player
	speed   float64 // 新入场实体的速率，可经 /admin/config 热更

	cfg     Config
	metrics *Metrics
	log     *zap.SugaredLogger
}

// NewWorld 构建空世界；注册表由调用方显式持有，不做包级单例。
// 非正的频率参数回退到默认值，定时循环不因配置错误而崩溃
func NewWorld(cfg Config, m *Metrics, log *zap.SugaredLogger) *World {
	def := DefaultConfig()
	if cfg.TickHz <= 0 {
		cfg.TickHz = def.TickHz
	}
	if cfg.BroadcastHz <= 0 {
		cfg.BroadcastHz = def.BroadcastHz
	}
	return &World{
		players: make(map[PlayerID]*Player),
		speed:   DefaultSpeed,
		cfg:     cfg,
		metrics: m,
		log:     log,
	}
}

// Join 创建实体并注册：全新 UUID、出生区域内随机落点、随机颜色。
// 返回的入场通告是注册前取好的值快照——实体一经发布就可能被 Tick 协程改写，
// 之后对坐标的任何读取都必须持锁
func (w *World) Join(conn *ClientConn, ip string) (*Player, JoinMessage) {
	p := &Player{
		ID:       PlayerID(uuid.NewString()),
		X:        spawnMinX + rand.Float64()*(spawnMaxX-spawnMinX),
		Y:        spawnMinY + rand.Float64()*(spawnMaxY-spawnMinY),
		Color:    randomColor(),
		IP:       ip,
		LastSeen: time.Now(),
		Conn:     conn,
	}
	announce := JoinMessage{
		Type:  MsgTypePlayerJoin,
		ID:    string(p.ID),
		X:     p.X,
		Y:     p.Y,
		Color: p.Color,
	}

	w.mu.Lock()
	p.Speed = w.speed
	w.players[p.ID] = p
	w.mu.Unlock()

	w.metrics.PlayersOnline.Inc()
	return p, announce
}

// Leave 将实体移出注册表并向剩余连接广播 remove；幂等，重复移除是空操作
func (w *World) Leave(id PlayerID) {
	w.mu.Lock()
	p, ok := w.players[id]
	if ok {
		delete(w.players, id)
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	if p.Conn != nil {
		p.Conn.Close()
	}
	w.metrics.PlayersOnline.Dec()
	w.log.Infow("player left", "id", id)

	b, err := json.Marshal(RemoveMessage{Type: MsgTypeRemove, ID: string(id)})
	if err != nil {
		w.log.Errorf("marshal remove: %v", err)
		return
	}
	w.Broadcast(b)
}

// ApplyInput 整体覆盖实体的输入状态（last-write-wins，不排队不合并），
// 同时刷新 LastSeen；未知 ID 视为与断开竞争的迟到消息，静默丢弃
func (w *World) ApplyInput(id PlayerID, in InputState) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	if !ok {
		return false
	}
	p.Input = in
	p.LastSeen = time.Now()
	return true
}

// Step 推进一个仿真步：速度恒等于 方向 × 速率（无加速度、无惯性），
// 按实测 dt 积分位置，随后裁剪进世界边界
func (w *World) Step(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.players {
		dx, dy := p.Input.Direction()
		p.VX = dx * p.Speed
		p.VY = dy * p.Speed
		p.X = clamp(p.X+p.VX*dt, WorldMinX, WorldMaxX)
		p.Y = clamp(p.Y+p.VY*dt, WorldMinY, WorldMaxY)
	}
}

// Snapshot 拷贝式读取全部实体状态；持锁期间只做拷贝，序列化在锁外进行
func (w *World) Snapshot() []PlayerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]PlayerState, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p.snapshot())
	}
	return out
}

// BroadcastSnapshot 序列化一次快照信封，把同一份字节载荷广播给全员
func (w *World) BroadcastSnapshot() {
	msg := SnapshotMessage{
		Type:    MsgTypeSnapshot,
		Ts:      time.Now().UnixMilli(),
		Players: w.Snapshot(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		w.log.Errorf("marshal snapshot: %v", err)
		return
	}
	w.Broadcast(b)
	w.metrics.BroadcastsTotal.Inc()
}

// Broadcast 尽力投递：不可写的连接直接跳过，不排队不重试，
// 错过的快照由下一次广播天然取代
func (w *World) Broadcast(b []byte) {
	w.BroadcastExcept("", b)
}

// BroadcastExcept 除指定玩家外广播（player_join 不回发给本人）
func (w *World) BroadcastExcept(skip PlayerID, b []byte) {
	w.mu.Lock()
	conns := make([]*ClientConn, 0, len(w.players))
	for id, p := range w.players {
		if id == skip || p.Conn == nil {
			continue
		}
		conns = append(conns, p.Conn)
	}
	w.mu.Unlock()

	for _, c := range conns {
		if !c.Enqueue(b) && !c.Closed() {
			// 只有活连接的队列打满才算背压；已关闭的连接在等断开回调清理
			w.metrics.Dropped(DropBackpressure)
		}
	}
}

// Count 当前注册的实体数量
func (w *World) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players)
}

// Get 按 ID 查询实体
func (w *World) Get(id PlayerID) (*Player, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.players[id]
	return p, ok
}

// SpeedSetting 读取当前速率设定
func (w *World) SpeedSetting() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.speed
}

// SetSpeed 热更速率：同时作用于已在场与后续入场的实体
func (w *World) SetSpeed(v float64) {
	if v <= 0 {
		return
	}
	w.mu.Lock()
	w.speed = v
	for _, p := range w.players {
		p.Speed = v
	}
	w.mu.Unlock()
}

// Rates 返回仿真/广播频率（只读，供管理端点输出）
func (w *World) Rates() (tickHz, broadcastHz int) {
	return w.cfg.TickHz, w.cfg.BroadcastHz
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// randomColor 随机 HSL 颜色，仅作展示属性
func randomColor() string {
	return fmt.Sprintf("hsl(%d, 70%%, 55%%)", rand.Intn(360))
}
