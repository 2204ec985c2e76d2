// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package flow

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// MultiPrefix marks an alias whose ports are created per connection rather
// than once. Each connection to a multi alias grows a numbered port
// (alias_0, alias_1, ...).
const MultiPrefix = "multi_"

// PortSpec declares a flow port: its payload kind and whether the flow-port
// view retains the payload across callback invocations.
type PortSpec struct {
	Kind    types.Kind
	Persist bool
}

// Map declares the controller's aliased flow ports.
type Map struct {
	Input  map[string]PortSpec
	Output map[string]PortSpec
}

// InPort is the flow-side view of an input port. It holds the most recent
// payload that arrived; for persist=false specs the payload is removed after
// the flow callback consumed it.
type InPort struct {
	alias   string
	name    string
	spec    PortSpec
	port    *ports.InputPort
	payload *types.Payload
}

// Alias returns the flow-map alias this port belongs to.
func (p *InPort) Alias() string { return p.alias }

// Name returns the concrete port name (equal to the alias except for
// numbered multi ports).
func (p *InPort) Name() string { return p.name }

// Persist reports whether the view retains payloads across invocations.
func (p *InPort) Persist() bool { return p.spec.Persist }

// Payload returns the currently held payload, or nil.
func (p *InPort) Payload() *types.Payload { return p.payload }

// HasPayload reports whether the flow port currently holds data.
func (p *InPort) HasPayload() bool { return p.payload != nil }

// Clear drops the held payload.
func (p *InPort) Clear() { p.payload = nil }

// Port returns the wrapped input port.
func (p *InPort) Port() *ports.InputPort { return p.port }

// OutPort is the flow-side view of an output port.
type OutPort struct {
	alias string
	name  string
	port  *ports.OutputPort
}

// Alias returns the flow-map alias this port belongs to.
func (p *OutPort) Alias() string { return p.alias }

// Name returns the concrete port name.
func (p *OutPort) Name() string { return p.name }

// Emit sends the payload out through the wrapped port.
func (p *OutPort) Emit(payload *types.Payload) error { return p.port.Emit(payload) }

// Port returns the wrapped output port.
func (p *OutPort) Port() *ports.OutputPort { return p.port }

// Event carries one arrival into the flow callback: the just-arrived port,
// the controller's persistent state store, and the full flow-port table.
type Event struct {
	// Active is the flow port that just received a payload.
	Active *InPort

	// State is a store owned by the controller and handed to every
	// invocation; the callback manages its contents.
	State map[string]any

	ctrl *Controller
}

// In returns the flow input port registered under alias, or nil.
func (e *Event) In(alias string) *InPort { return e.ctrl.inputs[alias] }

// MultiIn returns the numbered ports of a multi input alias in connection
// order.
func (e *Event) MultiIn(alias string) []*InPort {
	out := make([]*InPort, len(e.ctrl.multiIn[alias]))
	copy(out, e.ctrl.multiIn[alias])
	return out
}

// Out returns the flow output port registered under alias, or nil.
func (e *Event) Out(alias string) *OutPort { return e.ctrl.outputs[alias] }

// MultiOut returns the numbered ports of a multi output alias in connection
// order.
func (e *Event) MultiOut(alias string) []*OutPort {
	out := make([]*OutPort, len(e.ctrl.multiOut[alias]))
	copy(out, e.ctrl.multiOut[alias])
	return out
}

// Func is the user callback run on every arrival at any flow input port.
type Func func(ev *Event) error

// Controller routes payloads between elements through aliased flow ports,
// invoking Func on every arrival. Multi aliases (multi_ prefix) grow one
// numbered port per connection.
type Controller struct {
	*element.Element

	spec  Map
	fn    Func
	state map[string]any

	inputs   map[string]*InPort
	multiIn  map[string][]*InPort
	outputs  map[string]*OutPort
	multiOut map[string][]*OutPort
}

// NewController builds a controller from the flow map. Non-multi aliases get
// their port immediately; multi aliases get ports as connections arrive.
func NewController(name string, m Map, fn Func, opts ...element.Option) (*Controller, error) {
	if fn == nil {
		return nil, types.Errorf(types.ErrConfigInvalid, "controller %q: flow callback is required", name)
	}
	c := &Controller{
		Element:  element.New(name, opts...),
		spec:     m,
		fn:       fn,
		state:    make(map[string]any),
		inputs:   make(map[string]*InPort),
		multiIn:  make(map[string][]*InPort),
		outputs:  make(map[string]*OutPort),
		multiOut: make(map[string][]*OutPort),
	}
	for alias, spec := range m.Input {
		if spec.Kind == "" {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"controller %q: input alias %q has no kind", name, alias)
		}
		if strings.HasPrefix(alias, MultiPrefix) {
			continue
		}
		c.addInput(alias, alias, spec)
	}
	for alias, spec := range m.Output {
		if spec.Kind == "" {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"controller %q: output alias %q has no kind", name, alias)
		}
		if strings.HasPrefix(alias, MultiPrefix) {
			continue
		}
		c.addOutput(alias, alias, spec)
	}
	return c, nil
}

// State returns the controller-owned store handed to every callback
// invocation.
func (c *Controller) State() map[string]any { return c.state }

// In returns the flow input port registered under alias, or nil.
func (c *Controller) In(alias string) *InPort { return c.inputs[alias] }

// Out returns the flow output port registered under alias, or nil.
func (c *Controller) Out(alias string) *OutPort { return c.outputs[alias] }

func (c *Controller) addInput(alias, name string, spec PortSpec) *InPort {
	fp := &InPort{alias: alias, name: name, spec: spec}
	fp.port = c.Ports().AddInput(name, ports.InputConfig{
		Kind: spec.Kind,
		OnReceive: func(payload *types.Payload) error {
			return c.dispatch(fp, payload)
		},
	})
	if strings.HasPrefix(alias, MultiPrefix) {
		c.multiIn[alias] = append(c.multiIn[alias], fp)
	} else {
		c.inputs[alias] = fp
	}
	return fp
}

func (c *Controller) addOutput(alias, name string, spec PortSpec) *OutPort {
	fp := &OutPort{alias: alias, name: name}
	fp.port = c.Ports().AddOutput(name, ports.OutputConfig{Kind: spec.Kind})
	if strings.HasPrefix(alias, MultiPrefix) {
		c.multiOut[alias] = append(c.multiOut[alias], fp)
	} else {
		c.outputs[alias] = fp
	}
	return fp
}

// ConnectInput connects an external output port to the aliased flow input.
// For a multi alias a fresh numbered port is created first; the new flow
// port is returned either way.
func (c *Controller) ConnectInput(alias string, from *ports.OutputPort) (*InPort, error) {
	spec, ok := c.spec.Input[alias]
	if !ok {
		return nil, types.Errorf(types.ErrPortNotFound,
			"controller %q has no input alias %q", c.Name(), alias)
	}
	fp := c.inputs[alias]
	if strings.HasPrefix(alias, MultiPrefix) {
		name := fmt.Sprintf("%s_%d", alias, len(c.multiIn[alias]))
		fp = c.addInput(alias, name, spec)
	}
	if err := ports.Connect(from, fp.port); err != nil {
		return nil, err
	}
	return fp, nil
}

// ConnectOutput connects the aliased flow output to an external input port.
// For a multi alias a fresh numbered port is created first.
func (c *Controller) ConnectOutput(alias string, to *ports.InputPort) (*OutPort, error) {
	spec, ok := c.spec.Output[alias]
	if !ok {
		return nil, types.Errorf(types.ErrPortNotFound,
			"controller %q has no output alias %q", c.Name(), alias)
	}
	fp := c.outputs[alias]
	if strings.HasPrefix(alias, MultiPrefix) {
		name := fmt.Sprintf("%s_%d", alias, len(c.multiOut[alias]))
		fp = c.addOutput(alias, name, spec)
	}
	if err := ports.Connect(fp.port, to); err != nil {
		return nil, err
	}
	return fp, nil
}

// Inject delivers a payload straight to the aliased flow input, bypassing
// any upstream connection. Intended for external boundaries and tests.
func (c *Controller) Inject(alias string, payload *types.Payload) error {
	fp, ok := c.inputs[alias]
	if !ok {
		return types.Errorf(types.ErrPortNotFound,
			"controller %q has no input alias %q", c.Name(), alias)
	}
	return fp.port.Receive(payload)
}

// dispatch runs the flow callback for one arrival. The active flow port
// holds the payload for the duration of the call; persist=false views are
// cleared once the callback returns.
func (c *Controller) dispatch(fp *InPort, payload *types.Payload) error {
	fp.payload = payload
	c.Logger().Debug("flow dispatch",
		zap.String("alias", fp.alias),
		zap.String("port", fp.name),
		zap.String("kind", string(payload.Kind)))

	err := c.fn(&Event{Active: fp, State: c.state, ctrl: c})
	if !fp.spec.Persist {
		fp.payload = nil
	}
	if err != nil {
		return fmt.Errorf("flow %q at %q: %w", c.Name(), fp.name, err)
	}
	return nil
}
