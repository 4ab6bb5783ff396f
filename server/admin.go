package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// adminConfig 管理端点的读写载荷；指针字段缺省即不更新
type adminConfig struct {
	Speed       *float64 `json:"speed,omitempty"`
	TickHz      int      `json:"tickHz"`
	BroadcastHz int      `json:"broadcastHz"`
	Players     int      `json:"players"`
}

// HandleAdminConfig 运行参数的读取与热更新
// GET /admin/config 返回当前配置；POST 以 JSON 载荷局部更新（当前仅 speed 可写）
func (w *World) HandleAdminConfig(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		speed := w.SpeedSetting()
		tickHz, broadcastHz := w.Rates()
		cur := adminConfig{
			Speed:       &speed,
			TickHz:      tickHz,
			BroadcastHz: broadcastHz,
			Players:     w.Count(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(cur)
	case http.MethodPost:
		var body adminConfig
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(rw, "invalid json", http.StatusBadRequest)
			return
		}
		if body.Speed != nil {
			w.SetSpeed(*body.Speed)
			w.log.Infof("config updated: speed=%.1f", *body.Speed)
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
	default:
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// NewRouter 组装 HTTP 路由：静态页、WebSocket 接入、管理与监控端点
func NewRouter(w *World, reg *prometheus.Registry, webDir string) http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", w.HandleWS)
	r.Get("/admin/config", w.HandleAdminConfig)
	r.Post("/admin/config", w.HandleAdminConfig)
	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	// 前后端分离：/ 映射到 web 目录的静态占位页
	r.Handle("/*", http.FileServer(http.Dir(webDir)))
	return r
}
