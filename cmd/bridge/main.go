// Package main 提供 Service Bridge 独立运行入口
//
// 以自驱动模式运行总线，导出 Prometheus 指标与诊断端点，
// 可选启动演示插件观察消息流。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bridge "github.com/dep2p/go-bridge"
	"github.com/dep2p/go-bridge/pkg/lib/log"
)

var logger = log.Logger("bridge/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile = flag.String("config", "", "配置文件路径（.json / .yaml）")
	preset     = flag.String("preset", "desktop", "预设配置 (minimal/desktop/server)")
	addr       = flag.String("addr", "", "诊断与指标监听地址（覆盖配置 metrics.listen_addr）")
	demo       = flag.Bool("demo", false, "启动演示插件")
	logLevel   = flag.String("log-level", "", "默认日志级别 (debug/info/warn/error)")
	logJSON    = flag.Bool("log-json", false, "JSON 格式日志")

	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(bridge.VersionInfo())
		return nil
	}

	if err := setupLogging(); err != nil {
		return err
	}

	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("启动 Service Bridge", "version", bridge.Version, "commit", bridge.GitCommit, "buildDate", bridge.BuildDate)
	b, err := bridge.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = b.Close() }()

	// ═══════════════════════════════════════════════════════════════════
	// 诊断与指标端点
	// ═══════════════════════════════════════════════════════════════════
	listen := b.Config().Metrics.ListenAddr
	if *addr != "" {
		listen = *addr
	}
	srv, err := startHTTP(b, listen)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if *demo {
		if err := startDemo(ctx, b); err != nil {
			return fmt.Errorf("演示插件启动失败: %w", err)
		}
	}

	fmt.Printf("Service Bridge %s 已启动，诊断端点 http://%s ，按 Ctrl+C 退出\n", bridge.Version, listen)
	<-ctx.Done()

	fmt.Println("\n正在关闭总线...")
	stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return b.Stop(stopCtx)
}

// setupLogging 应用命令行日志参数（环境变量已在 log 包初始化时解析）
func setupLogging() error {
	if *logLevel != "" {
		level, ok := log.ParseLevel(*logLevel)
		if !ok {
			return fmt.Errorf("未知日志级别 %q", *logLevel)
		}
		log.SetLevel(level)
	}
	if *logJSON {
		log.SetJSON(true)
	}
	return nil
}

// startHTTP 启动 /metrics、/debug/states、/debug/stats、/debug/routes、/healthz
func startHTTP(b *bridge.Bridge, listen string) (*http.Server, error) {
	mux := http.NewServeMux()

	if b.Config().Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if err := reg.Register(b.Collector()); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/debug/states", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.States())
	})
	mux.HandleFunc("/debug/routes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Routes())
	})
	mux.HandleFunc("/debug/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Stats())
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		h := b.Health()
		code := http.StatusOK
		if !h.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":     h.Status.String(),
			"reasons":    h.Reasons,
			"checked_at": h.CheckedAt,
		})
	})

	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("诊断端点异常退出", "addr", listen, "err", err)
		}
	}()
	return srv, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
