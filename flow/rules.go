// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package flow

import (
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/types"
)

// Callback computes the routing result from the current port values. The
// map is keyed by flow alias and always contains the trigger's payload.
type Callback func(values map[string]*types.Payload) (map[string]*types.Payload, error)

// Rule binds a trigger alias to a callback and the set of other ports that
// must hold data before the callback may fire.
type Rule struct {
	Required []string
	Callback Callback
}

// ResultFunc observes every routing result the rules produce.
type ResultFunc func(result map[string]*types.Payload) error

// Router dispatches on the joint state of several ports: a rule fires only
// when its trigger alias just received a payload and every required alias
// currently holds data. Events failing the readiness check are absorbed.
// The router never clears port data itself.
type Router struct {
	ctrl     *Controller
	rules    map[string]Rule
	onResult ResultFunc
}

// NewRouter builds a rule router over a flow map. Trigger and required
// aliases must exist in the map's inputs. Result entries whose key matches
// an output alias are emitted on that output; OnResult sees the full result.
func NewRouter(name string, m Map, rules map[string]Rule, opts ...element.Option) (*Router, error) {
	r := &Router{rules: rules}
	ctrl, err := NewController(name, m, r.dispatch, opts...)
	if err != nil {
		return nil, err
	}
	r.ctrl = ctrl

	for trigger, rule := range rules {
		if _, ok := m.Input[trigger]; !ok {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"router %q: trigger %q is not a flow input", name, trigger)
		}
		for _, req := range rule.Required {
			if _, ok := m.Input[req]; !ok {
				return nil, types.Errorf(types.ErrConfigInvalid,
					"router %q: rule %q requires unknown port %q", name, trigger, req)
			}
		}
		if rule.Callback == nil {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"router %q: rule %q has no callback", name, trigger)
		}
	}
	return r, nil
}

// Controller exposes the underlying flow controller for graph wiring.
func (r *Router) Controller() *Controller { return r.ctrl }

// SetOnResult installs the result observer.
func (r *Router) SetOnResult(fn ResultFunc) { r.onResult = fn }

func (r *Router) dispatch(ev *Event) error {
	rule, ok := r.rules[ev.Active.Alias()]
	if !ok {
		return nil
	}
	values := map[string]*types.Payload{ev.Active.Alias(): ev.Active.Payload()}
	for _, req := range rule.Required {
		fp := ev.In(req)
		if fp == nil || !fp.HasPayload() {
			// Not ready: the arrival is absorbed with no effect.
			r.ctrl.Logger().Debug("rule not ready",
				zap.String("trigger", ev.Active.Alias()),
				zap.String("missing", req))
			return nil
		}
		values[req] = fp.Payload()
	}

	result, err := rule.Callback(values)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if out := ev.Out(key); out != nil {
			if err := out.Emit(result[key]); err != nil {
				return err
			}
		}
	}
	if r.onResult != nil {
		return r.onResult(result)
	}
	return nil
}
