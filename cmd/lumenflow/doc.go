// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 LumenFlow 服务端程序入口。

# 概述

cmd/lumenflow 是 LumenFlow 的可执行入口，提供 HTTP API 服务、
健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、结构化
日志（zap）与 Prometheus 指标采集。

# 主要能力

  - 子命令：serve（启动服务）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    Tracing、Metrics、RateLimiter（基于 IP）
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
