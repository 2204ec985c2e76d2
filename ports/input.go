package ports

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/types"
)

// ReceiveFunc is the node-supplied unpack callback invoked for every payload
// that arrives at an input port.
type ReceiveFunc func(payload *types.Payload) error

// InputConfig configures an input port.
type InputConfig struct {
	// Kind is the accepted payload kind. Defaults to types.KindAny.
	Kind types.Kind

	// Persist keeps the stored payload across reactions until explicitly
	// cleared. When false (default) the payload is cleared after the
	// unpack callback returns.
	Persist bool

	// OnReceive is the unpack callback. May be nil for pure-storage ports.
	OnReceive ReceiveFunc

	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// InputPort is a named, typed endpoint receiving payloads from exactly one
// family of compatible upstream output ports.
type InputPort struct {
	id        string
	name      string
	element   string
	kind      types.Kind
	persist   bool
	onReceive ReceiveFunc

	payload   *types.Payload
	upstreams []*OutputPort

	logger *zap.Logger
}

// NewInput creates an input port.
func NewInput(name string, cfg InputConfig) *InputPort {
	kind := cfg.Kind
	if kind == "" {
		kind = types.KindAny
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InputPort{
		id:        uuid.NewString(),
		name:      name,
		kind:      kind,
		persist:   cfg.Persist,
		onReceive: cfg.OnReceive,
		logger:    logger.With(zap.String("port", name)),
	}
}

// ID returns the port's unique identifier.
func (p *InputPort) ID() string { return p.id }

// Name returns the port name.
func (p *InputPort) Name() string { return p.name }

// Kind returns the accepted payload kind.
func (p *InputPort) Kind() types.Kind { return p.kind }

// Persist reports whether the port retains payloads across reactions.
func (p *InputPort) Persist() bool { return p.persist }

// Element returns the name of the containing element, when registered.
func (p *InputPort) Element() string { return p.element }

// Payload returns the currently stored payload, or nil.
func (p *InputPort) Payload() *types.Payload { return p.payload }

// HasPayload reports whether the port currently holds data.
func (p *InputPort) HasPayload() bool { return p.payload != nil }

// Clear drops the stored payload.
func (p *InputPort) Clear() { p.payload = nil }

// SetOnReceive replaces the unpack callback. Intended for element wiring
// before the graph starts moving data.
func (p *InputPort) SetOnReceive(fn ReceiveFunc) { p.onReceive = fn }

// Receive stores the payload (respecting the persist flag), invokes the
// unpack callback, and clears the stored payload afterwards when the port
// does not persist. Scalar payloads arriving at sequence ports are promoted
// to one-element sequences.
func (p *InputPort) Receive(payload *types.Payload) error {
	if payload == nil {
		return types.Errorf(types.ErrInternalError, "nil payload").WithPort(p.name)
	}
	if !types.Compatible(payload.Kind, p.kind) {
		return types.NewTypeMismatchError("", payload.Kind, p.name, p.kind)
	}
	stored := payload
	if p.kind.IsList() && !payload.Kind.IsList() {
		stored = payload.PromoteToList()
	}

	p.payload = stored
	p.logger.Debug("receive",
		zap.String("kind", string(stored.Kind)),
		zap.String("role", string(stored.Role)))

	if p.onReceive != nil {
		if err := p.onReceive(stored); err != nil {
			return fmt.Errorf("input %q: %w", p.name, err)
		}
	}
	if !p.persist {
		p.payload = nil
	}
	return nil
}
