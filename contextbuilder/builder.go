// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package contextbuilder

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// OutputPortName is the builder's single output, carrying the synthesized
// message sequence.
const OutputPortName = "messages_output"

// BuildFunc takes full control of the emission decision. It is called on
// every arrival with the just-arrived slot's name, the current port-slot
// values, and a state store owned by the builder. Returning a non-empty
// list of slot names emits them in that order; returning nil means not yet.
type BuildFunc func(active string, values map[string]*types.Payload, state map[string]any) ([]string, error)

// Config configures a Builder.
type Config struct {
	// Slots declares the aggregation inputs in declaration order.
	Slots []Slot

	// EmitOrder is strategy 3: a fixed emission order. Entries may be
	// marked optional with [name] brackets.
	EmitOrder []string

	// TriggerMap is strategy 2: per trigger slot, the ordered list emitted
	// once all its non-optional entries are populated.
	TriggerMap map[string][]string

	// Build is strategy 1 and wins over the other two when set.
	Build BuildFunc

	// RetainTrigger keeps the triggering slot's value after an emission
	// instead of clearing it with the other included non-persist slots.
	RetainTrigger bool

	// Connect optionally wires messages_output to downstream inputs.
	Connect []*ports.InputPort
}

// Builder synthesizes ordered message sequences from independently-arriving
// slots, emitting exactly once per qualifying arrival and then resetting.
// Arrivals are processed one at a time to completion.
type Builder struct {
	*element.Element

	slots     map[string]Slot
	declOrder []string
	values    map[string]*types.Payload
	state     map[string]any

	build          BuildFunc
	triggerMap     map[string][]string
	emitOrder      []string
	retainTrigger  bool
	pendingTrigger string

	out *ports.OutputPort
}

// New builds an aggregation engine from the slot declarations, validating
// the whole configuration up front.
func New(name string, cfg Config, opts ...element.Option) (*Builder, error) {
	b := &Builder{
		Element:       element.New(name, opts...),
		slots:         make(map[string]Slot, len(cfg.Slots)),
		values:        make(map[string]*types.Payload),
		state:         make(map[string]any),
		build:         cfg.Build,
		triggerMap:    cfg.TriggerMap,
		emitOrder:     cfg.EmitOrder,
		retainTrigger: cfg.RetainTrigger,
	}
	if err := b.load(cfg); err != nil {
		return nil, err
	}
	b.out = b.Ports().AddOutput(OutputPortName, ports.OutputConfig{Kind: types.KindMessageList})
	for _, slot := range cfg.Slots {
		if !slot.isPort() {
			continue
		}
		slot := slot
		b.Ports().AddInput(slot.Name, ports.InputConfig{
			Kind: slot.Kind,
			OnReceive: func(payload *types.Payload) error {
				return b.arrival(slot.Name, payload)
			},
		})
	}
	for _, in := range cfg.Connect {
		if err := ports.Connect(b.out, in); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Builder) load(cfg Config) error {
	if len(cfg.Slots) == 0 {
		return types.Errorf(types.ErrConfigInvalid, "builder %q: no slots declared", b.Name())
	}
	for _, slot := range cfg.Slots {
		if slot.Name == "" {
			return types.Errorf(types.ErrConfigInvalid, "builder %q: slot with empty name", b.Name())
		}
		if _, dup := b.slots[slot.Name]; dup {
			return types.Errorf(types.ErrConfigInvalid,
				"builder %q: duplicate slot %q", b.Name(), slot.Name)
		}
		kinds := 0
		for _, set := range []bool{slot.isPort(), slot.isConstant(), slot.isTemplate()} {
			if set {
				kinds++
			}
		}
		if kinds != 1 {
			return types.Errorf(types.ErrConfigInvalid,
				"builder %q: slot %q must be exactly one of port, constant, template", b.Name(), slot.Name)
		}
		if !slot.isPort() && (slot.Callback != nil || slot.Persist) {
			return types.Errorf(types.ErrConfigInvalid,
				"builder %q: slot %q: callback and persist apply to port slots only", b.Name(), slot.Name)
		}
		b.slots[slot.Name] = slot
		b.declOrder = append(b.declOrder, slot.Name)
	}

	for _, slot := range cfg.Slots {
		for _, dep := range slot.DependsOn {
			if _, ok := b.slots[dep]; !ok {
				return types.Errorf(types.ErrMissingDependency,
					"builder %q: slot %q depends on undeclared slot %q", b.Name(), slot.Name, dep)
			}
		}
		if slot.isTemplate() {
			for _, ref := range placeholders(slot.Template) {
				target, ok := b.slots[ref]
				if !ok {
					return types.Errorf(types.ErrMissingDependency,
						"builder %q: template %q references undeclared slot %q", b.Name(), slot.Name, ref)
				}
				if target.isTemplate() {
					return types.Errorf(types.ErrConfigInvalid,
						"builder %q: template %q references template slot %q", b.Name(), slot.Name, ref)
				}
			}
		}
	}

	if err := b.checkOrder(cfg.EmitOrder, "emit order"); err != nil {
		return err
	}
	for trigger, list := range cfg.TriggerMap {
		slot, ok := b.slots[trigger]
		if !ok || !slot.isPort() {
			return types.Errorf(types.ErrConfigInvalid,
				"builder %q: trigger %q is not a declared port slot", b.Name(), trigger)
		}
		if err := b.checkOrder(list, fmt.Sprintf("trigger %q", trigger)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) checkOrder(entries []string, what string) error {
	for _, entry := range entries {
		name, _ := optionalName(entry)
		if _, ok := b.slots[name]; !ok {
			return types.Errorf(types.ErrConfigInvalid,
				"builder %q: %s references undeclared slot %q", b.Name(), what, name)
		}
	}
	return nil
}

// Output returns the messages_output port for graph wiring.
func (b *Builder) Output() *ports.OutputPort { return b.out }

// ConnectOutput wires messages_output to a downstream input.
func (b *Builder) ConnectOutput(in *ports.InputPort) error {
	return ports.Connect(b.out, in)
}

// Populated reports whether the named slot currently counts as populated.
// Constants and templates always do; port slots once a value is held.
func (b *Builder) Populated(name string) bool {
	slot, ok := b.slots[name]
	if !ok {
		return false
	}
	if !slot.isPort() {
		return true
	}
	_, held := b.values[name]
	return held
}

func (b *Builder) arrival(name string, payload *types.Payload) error {
	slot := b.slots[name]
	if slot.Callback != nil {
		transformed, err := slot.Callback(payload)
		if err != nil {
			return fmt.Errorf("slot %q callback: %w", name, err)
		}
		payload = transformed
	}
	b.values[name] = payload
	b.Logger().Debug("slot arrival", zap.String("slot", name))
	return b.evaluate(name)
}

// evaluate walks the strategy ladder for one arrival. Strategies are
// mutually exclusive: a configured build function silences the trigger map
// and emit order entirely.
func (b *Builder) evaluate(active string) error {
	switch {
	case b.build != nil:
		order, err := b.build(active, b.snapshot(), b.state)
		if err != nil {
			return fmt.Errorf("builder %q build: %w", b.Name(), err)
		}
		if len(order) == 0 {
			return nil
		}
		return b.emit(order, active)

	case len(b.triggerMap) > 0:
		if _, ok := b.triggerMap[active]; ok {
			b.pendingTrigger = active
		}
		if b.pendingTrigger == "" {
			return nil
		}
		list := b.triggerMap[b.pendingTrigger]
		if !b.ready(list) {
			return nil
		}
		trigger := b.pendingTrigger
		// Trigger state clears on firing.
		b.pendingTrigger = ""
		return b.emit(list, trigger)

	case len(b.emitOrder) > 0:
		if !b.ready(b.emitOrder) {
			return nil
		}
		return b.emit(b.emitOrder, active)

	default:
		for _, name := range b.declOrder {
			if b.slots[name].isPort() && !b.Populated(name) {
				return nil
			}
		}
		return b.emit(b.declOrder, active)
	}
}

// ready reports whether every non-optional entry is populated.
func (b *Builder) ready(entries []string) bool {
	for _, entry := range entries {
		name, optional := optionalName(entry)
		if !optional && !b.Populated(name) {
			return false
		}
	}
	return true
}

// emit materializes the decided order into one message-list payload, sends
// it downstream, then clears the included non-persist port slots. The
// triggering slot is cleared too unless RetainTrigger is set.
func (b *Builder) emit(entries []string, active string) error {
	var msgs []types.Message
	var included []string

	for _, entry := range entries {
		name, optional := optionalName(entry)
		slot, ok := b.slots[name]
		if !ok {
			return types.Errorf(types.ErrConfigInvalid,
				"builder %q: emission names undeclared slot %q", b.Name(), name)
		}
		if !b.dependsSatisfied(slot) {
			continue
		}
		switch {
		case slot.isConstant():
			msgs = append(msgs, types.NewMessage(slot.role(types.RoleSystem), slot.Message))
		case slot.isTemplate():
			text, err := renderTemplate(slot.Template, b.resolveText)
			if err != nil {
				return fmt.Errorf("builder %q: template slot %q: %w", b.Name(), name, err)
			}
			msgs = append(msgs, types.NewMessage(slot.role(types.RoleSystem), text))
		default:
			payload, held := b.values[name]
			if !held {
				if optional {
					continue
				}
				return types.Errorf(types.ErrMissingDependency,
					"builder %q: slot %q named in emission but not populated", b.Name(), name)
			}
			part := payload.AsMessages()
			if slot.Role != "" {
				// Copy before retagging: payloads are immutable by convention.
				retagged := make([]types.Message, len(part))
				copy(retagged, part)
				for i := range retagged {
					retagged[i].Role = slot.Role
				}
				part = retagged
			}
			msgs = append(msgs, part...)
			included = append(included, name)
		}
	}

	b.Logger().Debug("emit",
		zap.Strings("order", entries),
		zap.Int("messages", len(msgs)),
		zap.String("active", active))

	if err := b.out.Emit(types.FromMessages(msgs)); err != nil {
		return err
	}
	for _, name := range included {
		if b.slots[name].Persist {
			continue
		}
		if name == active && b.retainTrigger {
			continue
		}
		delete(b.values, name)
	}
	return nil
}

func (b *Builder) dependsSatisfied(slot Slot) bool {
	for _, dep := range slot.DependsOn {
		if !b.Populated(dep) {
			return false
		}
	}
	return true
}

// resolveText resolves a template reference to its current textual value.
func (b *Builder) resolveText(name string) (string, bool) {
	slot, ok := b.slots[name]
	if !ok {
		return "", false
	}
	if slot.isConstant() {
		return slot.Message, true
	}
	payload, held := b.values[name]
	if !held {
		return "", false
	}
	return payload.Text(), true
}

func (b *Builder) snapshot() map[string]*types.Payload {
	out := make(map[string]*types.Payload, len(b.values))
	for name, payload := range b.values {
		out[name] = payload
	}
	return out
}
