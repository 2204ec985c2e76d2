// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// DefaultDiscriminator is the wire field selecting the route.
const DefaultDiscriminator = "route"

// Route declares one branch of a discriminated union: the schema its value
// must satisfy, the kind of the branch's output port, and an optional
// transform applied before emission.
type Route struct {
	// Schema validates the value carried under the route's field.
	Schema *types.JSONSchema

	// Kind of the branch output port. Defaults to types.KindStructured.
	Kind types.Kind

	// Transform optionally rewrites the routed payload before emission.
	Transform func(p *types.Payload) (*types.Payload, error)
}

// StructuredConfig configures a StructuredRouter.
type StructuredConfig struct {
	// Discriminator is the field naming the route. Defaults to "route".
	Discriminator string

	// Routes maps discriminator values to branches. The routed value is
	// carried under the field named after the route.
	Routes map[string]Route
}

type compiledRoute struct {
	schema    *jsonschema.Schema
	transform func(*types.Payload) (*types.Payload, error)
	out       *ports.OutputPort
}

// StructuredRouter dispatches JSON objects by a string discriminator field.
// The input is an object {<discriminator>: <route>, <route>: <value>}; the
// value is validated against the route's schema and emitted on the route's
// output port. Unknown routes and schema failures are SCHEMA_VIOLATION.
type StructuredRouter struct {
	*element.Element

	disc   string
	routes map[string]*compiledRoute
}

// NewStructured builds a structured router, compiling every route schema
// up front. Route output ports are named "<route>_output"; the input port
// is "route_input".
func NewStructured(name string, cfg StructuredConfig, opts ...element.Option) (*StructuredRouter, error) {
	disc := cfg.Discriminator
	if disc == "" {
		disc = DefaultDiscriminator
	}
	if len(cfg.Routes) == 0 {
		return nil, types.Errorf(types.ErrConfigInvalid, "structured router %q: no routes", name)
	}
	r := &StructuredRouter{
		Element: element.New(name, opts...),
		disc:    disc,
		routes:  make(map[string]*compiledRoute, len(cfg.Routes)),
	}
	for route, branch := range cfg.Routes {
		if route == disc {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"structured router %q: route %q collides with the discriminator field", name, route)
		}
		schema, err := compileSchema(branch.Schema)
		if err != nil {
			return nil, types.Errorf(types.ErrConfigInvalid,
				"structured router %q: route %q schema: %v", name, route, err)
		}
		kind := branch.Kind
		if kind == "" {
			kind = types.KindStructured
		}
		out := r.Ports().AddOutput(route+"_output", ports.OutputConfig{Kind: kind})
		r.routes[route] = &compiledRoute{schema: schema, transform: branch.Transform, out: out}
	}
	r.Ports().AddInput("route_input", ports.InputConfig{
		Kind:      types.KindStructured,
		OnReceive: r.route,
	})
	return r, nil
}

// RouteOutput returns the output port of the named route, or nil.
func (r *StructuredRouter) RouteOutput(route string) *ports.OutputPort {
	if cr, ok := r.routes[route]; ok {
		return cr.out
	}
	return nil
}

// Dispatch routes a payload as if it arrived at route_input.
func (r *StructuredRouter) Dispatch(payload *types.Payload) error {
	return r.Input("route_input").Receive(payload)
}

func (r *StructuredRouter) route(payload *types.Payload) error {
	raw, err := rawJSON(payload)
	if err != nil {
		return types.Errorf(types.ErrSchemaViolation, "routed payload is not JSON: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return types.Errorf(types.ErrSchemaViolation, "routed payload is not a JSON object: %v", err)
	}
	route, ok := body[r.disc].(string)
	if !ok {
		return types.Errorf(types.ErrSchemaViolation,
			"discriminator field %q missing or not a string", r.disc)
	}
	cr, ok := r.routes[route]
	if !ok {
		return types.Errorf(types.ErrSchemaViolation,
			"unknown route %q (known: %s)", route, strings.Join(r.routeNames(), ", "))
	}
	value, ok := body[route]
	if !ok {
		return types.Errorf(types.ErrSchemaViolation,
			"route %q selected but field %q is absent", route, route)
	}
	if err := cr.schema.Validate(value); err != nil {
		return types.Errorf(types.ErrSchemaViolation, "route %q: %v", route, err)
	}

	valueRaw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("route %q: %w", route, err)
	}
	routed := types.NewStructured(valueRaw)
	if cr.transform != nil {
		routed, err = cr.transform(routed)
		if err != nil {
			return fmt.Errorf("route %q transform: %w", route, err)
		}
	}
	r.Logger().Debug("route", zap.String("route", route))
	return cr.out.Emit(routed)
}

func (r *StructuredRouter) routeNames() []string {
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}

// compileSchema compiles a schema model into a validator.
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

// rawJSON extracts the JSON document a payload carries.
func rawJSON(p *types.Payload) ([]byte, error) {
	switch v := p.Value.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}
