package server

import "time"

// Run 启动两路互不依赖的定时协程：固定频率仿真与解耦的快照广播。
// 二者没有直接依赖，只通过世界的互斥纪律共享状态；stop 关闭后一并退出
func (w *World) Run(stop <-chan struct{}) {
	go w.runSimulation(stop)
	go w.runBroadcast(stop)
}

// runSimulation 以 TickHz 推进世界。
// dt 取相邻两次触发的实测墙钟间隔而非固定常量，位移对调度抖动不敏感
func (w *World) runSimulation(stop <-chan struct{}) {
	interval := time.Second / time.Duration(w.cfg.TickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(w.cfg.TickHz)
			}
			last = now

			start := time.Now()
			w.Step(dt)
			w.metrics.TicksTotal.Inc()
			w.metrics.TickDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// runBroadcast 以 BroadcastHz 发送全量快照。
// 频率刻意低于仿真：带宽受控，而仿真手感不受影响
func (w *World) runBroadcast(stop <-chan struct{}) {
	interval := time.Second / time.Duration(w.cfg.BroadcastHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.BroadcastSnapshot()
		}
	}
}
