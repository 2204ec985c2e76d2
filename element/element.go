// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package element

import (
	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/ports"
)

// Element 是所有图节点的公共底座：名称 + 端口登记表 + 日志器。
// 上层节点通过嵌入 Element 获得统一的端口管理。
type Element struct {
	name   string
	ports  *ports.Registry
	logger *zap.Logger
}

// Option 配置 New 的可选参数。
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics ports.EmitObserver
}

// WithLogger 指定节点日志器，缺省为 nop。
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics 安装发射观测器，节点随后创建的输出端口将继承它。
func WithMetrics(obs ports.EmitObserver) Option {
	return func(o *options) { o.metrics = obs }
}

// New creates a named element base.
func New(name string, opts ...Option) *Element {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("element", name))
	reg := ports.NewRegistry(name, logger)
	if o.metrics != nil {
		reg.SetMetrics(o.metrics)
	}
	return &Element{name: name, ports: reg, logger: logger}
}

// Name returns the element name.
func (e *Element) Name() string { return e.name }

// Ports returns the element's port registry.
func (e *Element) Ports() *ports.Registry { return e.ports }

// Logger returns the element's logger.
func (e *Element) Logger() *zap.Logger { return e.logger }

// Input is a lookup shortcut panicking on a missing port.
func (e *Element) Input(name string) *ports.InputPort { return e.ports.MustInput(name) }

// Output is a lookup shortcut panicking on a missing port.
func (e *Element) Output(name string) *ports.OutputPort { return e.ports.MustOutput(name) }
