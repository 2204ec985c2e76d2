// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/api"
	"github.com/BaSui01/lumenflow/config"
	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/flow"
	"github.com/BaSui01/lumenflow/history"
	"github.com/BaSui01/lumenflow/internal/metrics"
	"github.com/BaSui01/lumenflow/internal/server"
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// Server 是 LumenFlow 的主服务器，承载一条示例会话管线：
// HTTP 请求经 api 元素进入图，转成用户消息写入 history，
// 当前窗口快照回流到 api 元素完成响应。
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	collector *metrics.Collector
	loop      *flow.Loop
	apiElem   *api.Element

	rateLimiterCancel context.CancelFunc
}

// NewServer 创建服务器并搭建会话图
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector("lumenflow", prometheus.DefaultRegisterer, logger),
		loop:      flow.NewLoop(logger),
	}
	if err := s.buildGraph(); err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return s, nil
}

// buildGraph 搭建示例会话管线
func (s *Server) buildGraph() error {
	opts := []element.Option{
		element.WithLogger(s.logger),
		element.WithMetrics(s.collector),
	}

	var counter history.TokenCounter = history.EstimateCounter{}
	if model := s.cfg.History.TokenizerModel; model != "" {
		counter = history.NewFallbackCounter(history.NewTiktokenCounter(model), s.logger)
	}

	hist, err := history.New("history", history.Config{
		TokenLimit: s.cfg.History.TokenLimit,
		Counter:    counter,
		EmitOnLoad: true,
	}, opts...)
	if err != nil {
		return err
	}

	apiElem, err := api.New("chat", api.Config{
		Endpoint: strings.TrimPrefix(s.cfg.API.Endpoint, "/"),
		Inputs: map[string]flow.PortSpec{
			"history_input": {Kind: types.KindMessageList},
		},
		ResponseMap: map[string]map[string]api.Extract{
			"history_input": {
				"reply": api.Content(),
			},
		},
		RequestSchema: types.NewObjectSchema().
			AddProperty("message", types.NewStringSchema(), true),
		Timeout: s.cfg.API.Timeout,
		Loop:    s.loop,
		Metrics: s.collector,
	}, opts...)
	if err != nil {
		return err
	}

	// 请求体转为用户消息后进入历史窗口
	ingest := element.NewPipe("ingest", element.PipeConfig{
		OnPayload: func(p *types.Payload) *types.Payload {
			var body map[string]any
			if raw, ok := p.Value.(json.RawMessage); ok {
				if err := json.Unmarshal(raw, &body); err != nil {
					return nil
				}
			}
			text, _ := body["message"].(string)
			return types.FromMessage(types.NewUserMessage(text))
		},
	}, opts...)

	if err := ports.Connect(apiElem.RequestOutput(), ingest.Input("pipe_input")); err != nil {
		return err
	}
	if err := ports.Connect(ingest.Output("pipe_output"), hist.Input("message_input")); err != nil {
		return err
	}
	if err := apiElem.ConnectInput("history_input", hist.Output()); err != nil {
		return err
	}

	s.apiElem = apiElem
	return nil
}

// Start 启动所有服务
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})
	mux.Handle(s.cfg.API.Endpoint, s.apiElem)

	rlCtx, rlCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rlCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		Tracing(),
		Metrics(s.collector),
		RateLimiter(rlCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.metricsManager.Start()
}

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	ctx := context.Background()
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}
	s.loop.Close()

	s.logger.Info("Graceful shutdown completed")
}
