// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/flow"
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// DefaultTimeout bounds how long a pending request waits for resolution.
const DefaultTimeout = 30 * time.Second

// Observer records request outcomes. Satisfied by the metrics collector.
type Observer interface {
	ObserveAPIRequest(endpoint, status string, seconds float64)
}

// PackFunc packages a validated request body into the payload emitted into
// the graph. The default wraps the body as a structured JSON payload.
type PackFunc func(body map[string]any) (*types.Payload, error)

// Config configures an api Element.
type Config struct {
	// Endpoint names the HTTP route. Defaults to "api".
	Endpoint string

	// Inputs declares the response-feeding ports (flow aliases).
	Inputs map[string]flow.PortSpec

	// ResponseMap is resolution strategy 3: per feeding port, the response
	// aliases and their extractors. The response is built once every listed
	// port holds data.
	ResponseMap map[string]map[string]Extract

	// Rules is resolution strategy 2: trigger port to builder + required
	// set, latched on the trigger's arrival.
	Rules map[string]Rule

	// Build is resolution strategy 1 and silences the other two when set.
	Build BuildFunc

	// RequestSchema validates incoming bodies. Nil accepts any JSON object.
	RequestSchema *types.JSONSchema

	// Pack packages the request body for emission. Defaults to a
	// structured JSON payload.
	Pack PackFunc

	// Timeout for a pending request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Loop, when set, serializes graph emissions with the rest of the
	// graph's reactions.
	Loop *flow.Loop

	// Metrics optionally records request outcomes.
	Metrics Observer
}

// Element bridges a synchronous HTTP request/response cycle onto the graph.
// At most one pending request exists per instance: concurrent calls fail
// fast with TOO_MANY_REQUESTS and never disturb the in-flight request.
type Element struct {
	*element.Element

	endpoint string
	ctrl     *flow.Controller
	out      *ports.OutputPort
	schema   *jsonschema.Schema
	pack     PackFunc
	timeout  time.Duration
	loop     *flow.Loop
	metrics  Observer

	build       BuildFunc
	rules       map[string]Rule
	responseMap map[string]map[string]Extract

	held  map[string]*types.Payload
	state map[string]any
	// latched rule while strategy 2 waits for its required set
	armed *armedRule

	mu      sync.Mutex
	pending chan map[string]any
}

type armedRule struct {
	trigger string
	rule    Rule
}

// New builds an api element. The request payload leaves through the
// "request_output" port; response-feeding ports are wired with ConnectInput.
func New(name string, cfg Config, opts ...element.Option) (*Element, error) {
	if cfg.Build == nil && len(cfg.Rules) == 0 && len(cfg.ResponseMap) == 0 {
		return nil, types.Errorf(types.ErrConfigInvalid,
			"api %q: one of Build, Rules, ResponseMap is required", name)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "api"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	pack := cfg.Pack
	if pack == nil {
		pack = func(body map[string]any) (*types.Payload, error) {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			return types.NewStructured(raw), nil
		}
	}
	schema, err := compileSchema(cfg.RequestSchema)
	if err != nil {
		return nil, types.Errorf(types.ErrConfigInvalid, "api %q: request schema: %v", name, err)
	}

	e := &Element{
		Element:     element.New(name, opts...),
		endpoint:    endpoint,
		schema:      schema,
		pack:        pack,
		timeout:     timeout,
		loop:        cfg.Loop,
		metrics:     cfg.Metrics,
		build:       cfg.Build,
		rules:       cfg.Rules,
		responseMap: cfg.ResponseMap,
		held:        make(map[string]*types.Payload),
		state:       make(map[string]any),
	}
	for trigger, rule := range cfg.Rules {
		if _, ok := cfg.Inputs[trigger]; !ok {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"api %q: rule trigger %q is not a declared input", name, trigger)
		}
		for _, req := range rule.Required {
			if _, ok := cfg.Inputs[req]; !ok {
				return nil, types.Errorf(types.ErrConfigInvalid,
					"api %q: rule %q requires unknown input %q", name, trigger, req)
			}
		}
	}
	for alias := range cfg.ResponseMap {
		if _, ok := cfg.Inputs[alias]; !ok {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"api %q: response map lists unknown input %q", name, alias)
		}
	}

	ctrl, err := flow.NewController(name+"_flow", flow.Map{Input: cfg.Inputs}, e.onArrival,
		element.WithLogger(e.Logger()))
	if err != nil {
		return nil, err
	}
	e.ctrl = ctrl
	e.out = e.Ports().AddOutput("request_output", ports.OutputConfig{Kind: types.KindStructured})
	return e, nil
}

// Endpoint returns the element's route name.
func (e *Element) Endpoint() string { return e.endpoint }

// RequestOutput returns the port emitting validated request payloads.
func (e *Element) RequestOutput() *ports.OutputPort { return e.out }

// ConnectInput wires an upstream output into the named response-feeding
// port.
func (e *Element) ConnectInput(alias string, from *ports.OutputPort) error {
	_, err := e.ctrl.ConnectInput(alias, from)
	return err
}

// onArrival walks the resolution ladder for one feeding-port arrival and
// resolves the pending request when a strategy produces a response.
func (e *Element) onArrival(ev *flow.Event) error {
	alias := ev.Active.Alias()
	e.held[alias] = ev.Active.Payload()

	result, used, err := e.resolveArrival(alias)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	for _, name := range used {
		fp := e.ctrl.In(name)
		if fp == nil || fp.Persist() {
			continue
		}
		fp.Clear()
		delete(e.held, name)
	}
	e.resolve(result)
	return nil
}

func (e *Element) resolveArrival(active string) (map[string]any, []string, error) {
	switch {
	case e.build != nil:
		result, err := e.build(active, e.snapshot(), e.state)
		if err != nil {
			return nil, nil, fmt.Errorf("api %q build: %w", e.Name(), err)
		}
		if len(result) == 0 {
			return nil, nil, nil
		}
		return result, e.heldNames(), nil

	case len(e.rules) > 0:
		if e.armed == nil {
			rule, ok := e.rules[active]
			if !ok {
				return nil, nil, nil
			}
			e.armed = &armedRule{trigger: active, rule: rule}
		}
		needed := append([]string{e.armed.trigger}, e.armed.rule.Required...)
		values := make(map[string]*types.Payload, len(needed))
		for _, name := range needed {
			payload, ok := e.held[name]
			if !ok {
				return nil, nil, nil
			}
			values[name] = payload
		}
		result, err := e.armed.rule.Build(values)
		if err != nil {
			return nil, nil, fmt.Errorf("api %q rule %q: %w", e.Name(), e.armed.trigger, err)
		}
		e.armed = nil
		return result, needed, nil

	default:
		values := make(map[string]*types.Payload, len(e.responseMap))
		for alias := range e.responseMap {
			payload, ok := e.held[alias]
			if !ok {
				return nil, nil, nil
			}
			values[alias] = payload
		}
		result := make(map[string]any)
		var used []string
		for alias, fields := range e.responseMap {
			for key, extract := range fields {
				v, err := extract(values[alias])
				if err != nil {
					return nil, nil, fmt.Errorf("api %q: extract %q from %q: %w", e.Name(), key, alias, err)
				}
				result[key] = v
			}
			used = append(used, alias)
		}
		return result, used, nil
	}
}

func (e *Element) heldNames() []string {
	names := make([]string, 0, len(e.held))
	for name := range e.held {
		names = append(names, name)
	}
	return names
}

func (e *Element) snapshot() map[string]*types.Payload {
	out := make(map[string]*types.Payload, len(e.held))
	for name, payload := range e.held {
		out[name] = payload
	}
	return out
}

func (e *Element) resolve(result map[string]any) {
	e.mu.Lock()
	ch := e.pending
	e.mu.Unlock()
	if ch == nil {
		e.Logger().Warn("response produced with no pending request")
		return
	}
	select {
	case ch <- result:
	default:
		e.Logger().Warn("pending request already resolved")
	}
}

// Handle validates the request body, emits it into the graph, and waits for
// resolution, timeout, or context cancellation. The single-flight invariant
// lives here.
func (e *Element) Handle(ctx context.Context, body map[string]any) (map[string]any, error) {
	if err := e.schema.Validate(map[string]any(body)); err != nil {
		return nil, types.Errorf(types.ErrSchemaViolation, "request body: %v", err)
	}

	e.mu.Lock()
	if e.pending != nil {
		e.mu.Unlock()
		return nil, types.NewTooManyRequestsError(e.endpoint)
	}
	ch := make(chan map[string]any, 1)
	e.pending = ch
	e.mu.Unlock()

	release := func() {
		e.mu.Lock()
		e.pending = nil
		e.mu.Unlock()
	}

	payload, err := e.pack(body)
	if err != nil {
		release()
		return nil, fmt.Errorf("api %q: pack request: %w", e.Name(), err)
	}
	emit := func() error { return e.out.EmitContext(ctx, payload) }
	if e.loop != nil {
		err = e.loop.Do(ctx, emit)
	} else {
		err = emit()
	}
	if err != nil {
		release()
		return nil, err
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	select {
	case result := <-ch:
		release()
		return result, nil
	case <-timer.C:
		// Free the slot so a retried call can proceed.
		release()
		return nil, types.NewTimeoutError(e.endpoint)
	case <-ctx.Done():
		release()
		return nil, ctx.Err()
	}
}

// ServeHTTP exposes Handle as a POST endpoint with the serializer's status
// mapping: 429 while a request is in flight, 408 on timeout, 422 on request
// schema violations.
func (e *Element) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		e.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		e.observe(strconv.Itoa(http.StatusMethodNotAllowed), start)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		e.writeError(w, http.StatusUnprocessableEntity, "request body is not a JSON object")
		e.observe(strconv.Itoa(http.StatusUnprocessableEntity), start)
		return
	}

	result, err := e.Handle(r.Context(), body)
	if err != nil {
		status := http.StatusInternalServerError
		if te, ok := types.AsError(err); ok {
			status = te.HTTPStatus
		}
		e.writeError(w, status, err.Error())
		e.observe(strconv.Itoa(status), start)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		e.Logger().Error("write response", zap.Error(err))
	}
	e.observe(strconv.Itoa(http.StatusOK), start)
}

func (e *Element) observe(status string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveAPIRequest(e.endpoint, status, time.Since(start).Seconds())
	}
}

func (e *Element) writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"detail": detail})
}

func compileSchema(s *types.JSONSchema) (*jsonschema.Schema, error) {
	if s == nil {
		s = types.NewObjectSchema()
	}
	doc, err := s.MarshalString()
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", strings.NewReader(doc)); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}
