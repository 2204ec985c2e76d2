// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package api

import (
	"encoding/json"

	"github.com/BaSui01/lumenflow/types"
)

// Extract pulls one response field out of a payload.
type Extract func(p *types.Payload) (any, error)

// Content extracts the payload's textual content.
func Content() Extract {
	return func(p *types.Payload) (any, error) { return p.Text(), nil }
}

// Role extracts the payload's role tag.
func Role() Extract {
	return func(p *types.Payload) (any, error) { return string(p.Role), nil }
}

// MetaField extracts a metadata entry, nil when absent.
func MetaField(key string) Extract {
	return func(p *types.Payload) (any, error) { return p.Meta[key], nil }
}

// JSONField extracts a top-level field from a structured JSON payload.
func JSONField(key string) Extract {
	return func(p *types.Payload) (any, error) {
		raw, ok := p.Value.(json.RawMessage)
		if !ok {
			return nil, types.Errorf(types.ErrTypeMismatch,
				"payload value is %T, not structured JSON", p.Value)
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		return body[key], nil
	}
}

// Rule binds a trigger port to a response builder and the ports that must
// hold data before the builder runs.
type Rule struct {
	Required []string
	Build    func(values map[string]*types.Payload) (map[string]any, error)
}

// BuildFunc takes full control of response construction. Called on every
// arrival with the active port, the held payloads, and a persistent state
// store; a non-empty result resolves the pending request.
type BuildFunc func(active string, values map[string]*types.Payload, state map[string]any) (map[string]any, error)
