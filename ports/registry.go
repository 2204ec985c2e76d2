package ports

import (
	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/types"
)

// Registry tracks the input and output ports of a single element and
// handles their creation. Lookup order is registration order.
type Registry struct {
	element string
	logger  *zap.Logger
	metrics EmitObserver

	inputs      map[string]*InputPort
	inputOrder  []string
	outputs     map[string]*OutputPort
	outputOrder []string
}

// NewRegistry creates a port registry for the named element.
func NewRegistry(element string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		element: element,
		logger:  logger.With(zap.String("element", element)),
		inputs:  make(map[string]*InputPort),
		outputs: make(map[string]*OutputPort),
	}
}

// SetMetrics installs an emission observer inherited by ports added later.
func (r *Registry) SetMetrics(obs EmitObserver) { r.metrics = obs }

// Element returns the owning element name.
func (r *Registry) Element() string { return r.element }

// AddInput creates and registers an input port. A port registered under an
// existing name replaces the previous one.
func (r *Registry) AddInput(name string, cfg InputConfig) *InputPort {
	if cfg.Logger == nil {
		cfg.Logger = r.logger
	}
	p := NewInput(name, cfg)
	p.element = r.element
	if _, exists := r.inputs[name]; !exists {
		r.inputOrder = append(r.inputOrder, name)
	}
	r.inputs[name] = p
	return p
}

// AddOutput creates and registers an output port.
func (r *Registry) AddOutput(name string, cfg OutputConfig) *OutputPort {
	if cfg.Logger == nil {
		cfg.Logger = r.logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = r.metrics
	}
	p := NewOutput(name, cfg)
	p.element = r.element
	if _, exists := r.outputs[name]; !exists {
		r.outputOrder = append(r.outputOrder, name)
	}
	r.outputs[name] = p
	return p
}

// Input returns the named input port.
func (r *Registry) Input(name string) (*InputPort, error) {
	p, ok := r.inputs[name]
	if !ok {
		return nil, types.Errorf(types.ErrPortNotFound,
			"element %q has no input port %q (available: %v)",
			r.element, name, r.inputOrder)
	}
	return p, nil
}

// Output returns the named output port.
func (r *Registry) Output(name string) (*OutputPort, error) {
	p, ok := r.outputs[name]
	if !ok {
		return nil, types.Errorf(types.ErrPortNotFound,
			"element %q has no output port %q (available: %v)",
			r.element, name, r.outputOrder)
	}
	return p, nil
}

// MustInput is Input panicking on a missing port. For graph assembly code
// where a missing port is a programming error.
func (r *Registry) MustInput(name string) *InputPort {
	p, err := r.Input(name)
	if err != nil {
		panic(err)
	}
	return p
}

// MustOutput is Output panicking on a missing port.
func (r *Registry) MustOutput(name string) *OutputPort {
	p, err := r.Output(name)
	if err != nil {
		panic(err)
	}
	return p
}

// HasInput reports whether the named input port exists.
func (r *Registry) HasInput(name string) bool {
	_, ok := r.inputs[name]
	return ok
}

// HasOutput reports whether the named output port exists.
func (r *Registry) HasOutput(name string) bool {
	_, ok := r.outputs[name]
	return ok
}

// InputNames returns input port names in registration order.
func (r *Registry) InputNames() []string {
	out := make([]string, len(r.inputOrder))
	copy(out, r.inputOrder)
	return out
}

// OutputNames returns output port names in registration order.
func (r *Registry) OutputNames() []string {
	out := make([]string, len(r.outputOrder))
	copy(out, r.outputOrder)
	return out
}
