package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pixelarena/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pixelarena",
		Short:         "Authoritative realtime multiplayer state-sync server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// serveCmd 启动 HTTP + WebSocket 服务并运行仿真/广播双循环
func serveCmd() *cobra.Command {
	var (
		port        int
		tickHz      int
		broadcastHz int
		logFile     string
		webDir      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP + WebSocket server and the simulation loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, tickHz, broadcastHz, logFile, webDir)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default 3000, PORT env overrides)")
	cmd.Flags().IntVar(&tickHz, "tick-hz", 60, "simulation rate (ticks per second)")
	cmd.Flags().IntVar(&broadcastHz, "broadcast-hz", 10, "snapshot broadcast rate (per second)")
	cmd.Flags().StringVar(&logFile, "log", "app.log", "log file path")
	cmd.Flags().StringVar(&webDir, "web", "web", "static assets directory")

	return cmd
}

func runServe(port, tickHz, broadcastHz int, logFile, webDir string) error {
	if port == 0 {
		port = server.DefaultConfig().Port
		if env := os.Getenv("PORT"); env != "" {
			if v, err := strconv.Atoi(env); err == nil {
				port = v
			}
		}
	}

	if err := server.InitLogger(logFile); err != nil {
		return err
	}
	defer server.SyncLogger()

	cfg := server.Config{Port: port, TickHz: tickHz, BroadcastHz: broadcastHz}
	reg := prometheus.NewRegistry()
	world := server.NewWorld(cfg, server.NewMetrics(reg), server.Log)

	// 两路定时循环随进程生命周期运行，stop 关闭即退出
	stop := make(chan struct{})
	world.Run(stop)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: server.NewRouter(world, reg, webDir),
	}

	errCh := make(chan error, 1)
	go func() {
		server.Log.Infof("pixelarena listening on :%d (tick %dHz, broadcast %dHz)", port, tickHz, broadcastHz)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		close(stop)
		return err
	case <-quit:
	}

	server.Log.Info("Shutting down...")
	close(stop)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
