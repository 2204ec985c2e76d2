// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package element

import (
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// PipeConfig configures a Pipe element.
type PipeConfig struct {
	// Kind constrains what the pipe carries. Defaults to types.KindAny.
	Kind types.Kind

	// OnPayload, when set, observes or rewrites each payload before it is
	// forwarded. Returning nil forwards the original payload unchanged.
	OnPayload func(p *types.Payload) *types.Payload
}

// Pipe 透传节点：pipe_input 收到的 Payload 原样（或经 OnPayload 改写后）
// 从 pipe_output 发出。用于图的接缝处观察、注入或改写数据。
type Pipe struct {
	*Element

	received []*types.Payload
	rewrite  func(*types.Payload) *types.Payload
}

// NewPipe creates a pass-through element.
func NewPipe(name string, cfg PipeConfig, opts ...Option) *Pipe {
	kind := cfg.Kind
	if kind == "" {
		kind = types.KindAny
	}
	p := &Pipe{Element: New(name, opts...), rewrite: cfg.OnPayload}

	out := p.Ports().AddOutput("pipe_output", ports.OutputConfig{Kind: kind})
	p.Ports().AddInput("pipe_input", ports.InputConfig{
		Kind: kind,
		OnReceive: func(payload *types.Payload) error {
			if p.rewrite != nil {
				if replaced := p.rewrite(payload); replaced != nil {
					payload = replaced
				}
			}
			p.received = append(p.received, payload)
			return out.Emit(payload)
		},
	})
	return p
}

// Send injects a payload into the pipe as if it had arrived at pipe_input.
func (p *Pipe) Send(payload *types.Payload) error {
	return p.Input("pipe_input").Receive(payload)
}

// Received returns every payload the pipe has forwarded, oldest first.
func (p *Pipe) Received() []*types.Payload {
	out := make([]*types.Payload, len(p.received))
	copy(out, p.received)
	return out
}

// LastReceived returns the most recently forwarded payload, or nil.
func (p *Pipe) LastReceived() *types.Payload {
	if len(p.received) == 0 {
		return nil
	}
	return p.received[len(p.received)-1]
}
