// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package contextbuilder

import (
	"regexp"
	"strings"

	"github.com/BaSui01/lumenflow/types"
)

// SlotCallback transforms a raw received payload before it is stored.
type SlotCallback func(p *types.Payload) (*types.Payload, error)

// Slot declares one named aggregation input. Exactly one of the three kinds
// must be configured: a port slot (Kind set), a constant slot (Message set),
// or a template slot (Template set).
type Slot struct {
	Name string

	// Kind makes this a port slot backed by a live input port of that kind.
	Kind types.Kind

	// Persist keeps the port slot's value across emissions.
	Persist bool

	// Callback optionally transforms arriving payloads before storage.
	// Port slots only.
	Callback SlotCallback

	// Message makes this a constant slot: a fixed role-tagged message
	// materialized at configuration time.
	Message string

	// Template makes this a template slot: a string with {{ name }}
	// references to other slots, rendered lazily at emission time.
	Template string

	// Role tags the materialized content. Constants and templates default
	// to system; for port slots a non-empty role overrides the payload's.
	Role types.Role

	// DependsOn names slots that must be populated for this slot to be
	// included in an emission.
	DependsOn []string
}

func (s Slot) isPort() bool     { return s.Kind != "" }
func (s Slot) isConstant() bool { return s.Message != "" }
func (s Slot) isTemplate() bool { return s.Template != "" }

func (s Slot) role(fallback types.Role) types.Role {
	if s.Role != "" {
		return s.Role
	}
	return fallback
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// placeholders returns the slot names a template references.
func placeholders(template string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	return names
}

// renderTemplate substitutes {{ name }} references with resolve(name).
// Substitution only; no expressions, no scripting.
func renderTemplate(template string, resolve func(name string) (string, bool)) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		text, ok := resolve(name)
		if !ok {
			missing = append(missing, name)
			return m
		}
		return text
	})
	if len(missing) > 0 {
		return "", types.Errorf(types.ErrMissingDependency,
			"template references unpopulated slot(s): %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// optionalName strips the [name] bracket notation, reporting whether the
// entry was marked optional.
func optionalName(entry string) (string, bool) {
	if strings.HasPrefix(entry, "[") && strings.HasSuffix(entry, "]") {
		return entry[1 : len(entry)-1], true
	}
	return entry, false
}
