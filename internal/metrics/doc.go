// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖端口发射、
API 请求与 HTTP 服务三个维度。

Collector 通过 promauto.With 绑定到调用方提供的 Registerer，
所有指标按 namespace 隔离并支持多维度 label 分组。它同时实现
ports.EmitObserver 与 api.Observer，可直接挂到图的节点上。
*/
package metrics
