package ports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/types"
)

// PackFunc synthesizes the outgoing payload from the staged items.
type PackFunc func(staged map[string]any) (*types.Payload, error)

// EmitObserver receives a notification for every successful emission.
// Satisfied by internal/metrics.Collector; nil disables observation.
type EmitObserver interface {
	ObserveEmit(port string, fanout int)
}

// OutputConfig configures an output port.
type OutputConfig struct {
	// Kind is the produced payload kind. Defaults to types.KindAny.
	Kind types.Kind

	// Required names the items that must be staged before the port can
	// pack and emit. Empty means a single implicit "payload" item.
	Required []string

	// Pack synthesizes the payload from staged items. When nil, the
	// implicit "payload" item must already be a *types.Payload.
	Pack PackFunc

	// DisableAutoEmit turns off emission on the staging call that
	// completes the required set; EmitStaged must then be called.
	DisableAutoEmit bool

	// Logger defaults to a nop logger.
	Logger *zap.Logger

	// Metrics optionally records emissions.
	Metrics EmitObserver
}

// OutputPort is a named, typed endpoint fanning payloads out to its
// connected input ports in registration order.
type OutputPort struct {
	id      string
	name    string
	element string
	kind    types.Kind

	inputs   []*InputPort
	required []string
	staged   map[string]any
	pack     PackFunc
	autoEmit bool

	logger  *zap.Logger
	metrics EmitObserver
}

// NewOutput creates an output port.
func NewOutput(name string, cfg OutputConfig) *OutputPort {
	kind := cfg.Kind
	if kind == "" {
		kind = types.KindAny
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	required := cfg.Required
	if len(required) == 0 {
		required = []string{"payload"}
	}
	return &OutputPort{
		id:       uuid.NewString(),
		name:     name,
		kind:     kind,
		required: required,
		staged:   make(map[string]any, len(required)),
		pack:     cfg.Pack,
		autoEmit: !cfg.DisableAutoEmit,
		logger:   logger.With(zap.String("port", name)),
		metrics:  cfg.Metrics,
	}
}

// ID returns the port's unique identifier.
func (o *OutputPort) ID() string { return o.id }

// Name returns the port name.
func (o *OutputPort) Name() string { return o.name }

// Kind returns the produced payload kind.
func (o *OutputPort) Kind() types.Kind { return o.kind }

// Element returns the name of the containing element, when registered.
func (o *OutputPort) Element() string { return o.element }

// Inputs returns the connected input ports in registration order.
func (o *OutputPort) Inputs() []*InputPort {
	out := make([]*InputPort, len(o.inputs))
	copy(out, o.inputs)
	return out
}

// Connect registers in as a fan-out target. Purely structural: no data
// moves. Fails with TYPE_MISMATCH when the input's accepted kind is not
// compatible with this port's produced kind.
func (o *OutputPort) Connect(in *InputPort) error {
	if in == nil {
		return types.Errorf(types.ErrInternalError, "nil input port").WithPort(o.name)
	}
	if !types.Compatible(o.kind, in.kind) {
		return types.NewTypeMismatchError(o.name, o.kind, in.name, in.kind)
	}
	o.inputs = append(o.inputs, in)
	in.upstreams = append(in.upstreams, o)
	o.logger.Debug("connect",
		zap.String("input", in.name),
		zap.String("output_kind", string(o.kind)),
		zap.String("input_kind", string(in.kind)))
	return nil
}

// Connect establishes a fan-out edge from out to in. Equivalent to
// out.Connect(in); provided as the binary connection operator.
func Connect(out *OutputPort, in *InputPort) error {
	if out == nil {
		return types.Errorf(types.ErrInternalError, "nil output port")
	}
	return out.Connect(in)
}

var tracer = otel.Tracer("github.com/BaSui01/lumenflow/ports")

// Emit validates the payload's kind tag and delivers it synchronously to
// every connected input port in registration order. The first downstream
// failure is returned with the identity of the offending input port;
// deliveries already made are not rolled back.
func (o *OutputPort) Emit(payload *types.Payload) error {
	return o.EmitContext(context.Background(), payload)
}

// EmitContext is Emit carrying a context for trace propagation.
func (o *OutputPort) EmitContext(ctx context.Context, payload *types.Payload) error {
	if payload == nil {
		return types.Errorf(types.ErrInternalError, "nil payload").WithPort(o.name)
	}
	if !types.Compatible(payload.Kind, o.kind) {
		return types.Errorf(types.ErrTypeMismatch,
			"payload kind %s is not emittable from output %q (kind %s)",
			payload.Kind, o.name, o.kind).WithPort(o.name)
	}

	_, span := tracer.Start(ctx, "port.emit")
	span.SetAttributes(
		attribute.String("port.name", o.name),
		attribute.String("payload.kind", string(payload.Kind)),
		attribute.Int("fanout", len(o.inputs)),
	)
	defer span.End()

	o.logger.Debug("emit",
		zap.String("kind", string(payload.Kind)),
		zap.Int("fanout", len(o.inputs)))

	for _, in := range o.inputs {
		if err := in.Receive(payload); err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
			return fmt.Errorf("emit from %q failed at input %q: %w", o.name, in.name, err)
		}
	}
	if o.metrics != nil {
		o.metrics.ObserveEmit(o.name, len(o.inputs))
	}
	return nil
}

// Stage stores a named item awaiting emission. When the staged set becomes
// complete and auto-emit is enabled, the payload is packed and emitted.
func (o *OutputPort) Stage(name string, value any) error {
	if !o.isRequired(name) {
		return types.Errorf(types.ErrConfigInvalid,
			"%q is not a required item for output %q (required: %v)",
			name, o.name, o.required).WithPort(o.name)
	}
	o.staged[name] = value
	o.logger.Debug("stage", zap.String("item", name))

	if o.autoEmit && o.emitReady() {
		return o.EmitStaged()
	}
	return nil
}

// StageEmit stages every entry of values and emits. With auto-emit enabled
// the emission happens on the staging call completing the set.
func (o *OutputPort) StageEmit(values map[string]any) error {
	for name, value := range values {
		if err := o.Stage(name, value); err != nil {
			return err
		}
	}
	if !o.autoEmit {
		return o.EmitStaged()
	}
	return nil
}

// EmitStaged packs the staged items into a payload, emits it, and resets
// the staging area. Fails with NOT_READY when items are missing.
func (o *OutputPort) EmitStaged() error {
	if !o.emitReady() {
		return types.Errorf(types.ErrNotReady,
			"output %q: staged %v of required %v", o.name, o.stagedNames(), o.required).
			WithPort(o.name)
	}
	payload, err := o.packStaged()
	if err != nil {
		return fmt.Errorf("output %q: pack: %w", o.name, err)
	}
	o.resetStaged()
	return o.Emit(payload)
}

func (o *OutputPort) packStaged() (*types.Payload, error) {
	if o.pack != nil {
		return o.pack(o.staged)
	}
	// Implicit single-item mode: the staged value must already be a payload.
	v, ok := o.staged["payload"]
	if !ok {
		return nil, types.Errorf(types.ErrNotReady, "implicit payload item not staged")
	}
	p, ok := v.(*types.Payload)
	if !ok {
		return nil, types.Errorf(types.ErrTypeMismatch,
			"implicit payload item must be *types.Payload, got %T", v)
	}
	return p, nil
}

func (o *OutputPort) isRequired(name string) bool {
	for _, r := range o.required {
		if r == name {
			return true
		}
	}
	return false
}

func (o *OutputPort) emitReady() bool {
	for _, r := range o.required {
		if _, ok := o.staged[r]; !ok {
			return false
		}
	}
	return true
}

func (o *OutputPort) stagedNames() []string {
	names := make([]string, 0, len(o.staged))
	for _, r := range o.required {
		if _, ok := o.staged[r]; ok {
			names = append(names, r)
		}
	}
	return names
}

func (o *OutputPort) resetStaged() {
	o.staged = make(map[string]any, len(o.required))
}
