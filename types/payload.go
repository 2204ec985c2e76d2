package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload is the typed data envelope exchanged between graph nodes. Payloads
// are immutable by convention: mutating helpers return copies, and ports pass
// payloads by reference without ever writing to them.
type Payload struct {
	Kind      Kind           `json:"kind"`
	Role      Role           `json:"role,omitempty"`
	Value     any            `json:"value,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// New creates a payload with the given kind and value.
func New(kind Kind, value any) *Payload {
	return &Payload{
		Kind:      kind,
		Value:     value,
		CreatedAt: time.Now(),
	}
}

// NewText creates a text payload.
func NewText(text string) *Payload {
	return New(KindText, text)
}

// FromMessage creates a message payload. The payload role mirrors the
// message role so aggregation logic can dispatch without unwrapping.
func FromMessage(msg Message) *Payload {
	p := New(KindMessage, msg)
	p.Role = msg.Role
	return p
}

// FromMessages creates a message-sequence payload.
func FromMessages(msgs []Message) *Payload {
	return New(KindMessageList, msgs)
}

// NewStructured creates a structured payload from raw JSON.
func NewStructured(raw json.RawMessage) *Payload {
	return New(KindStructured, raw)
}

// WithRole returns a copy of the payload tagged with the given role.
func (p *Payload) WithRole(role Role) *Payload {
	cp := *p
	cp.Role = role
	return &cp
}

// WithMeta returns a copy of the payload with an added metadata entry.
func (p *Payload) WithMeta(key string, value any) *Payload {
	cp := *p
	cp.Meta = make(map[string]any, len(p.Meta)+1)
	for k, v := range p.Meta {
		cp.Meta[k] = v
	}
	cp.Meta[key] = value
	return &cp
}

// Text returns a best-effort string view of the payload content. Message
// sequences are joined with newlines; structured values are rendered as JSON.
func (p *Payload) Text() string {
	switch v := p.Value.(type) {
	case string:
		return v
	case Message:
		return v.Content
	case []Message:
		parts := make([]string, 0, len(v))
		for _, m := range v {
			parts = append(parts, m.Content)
		}
		return strings.Join(parts, "\n")
	case json.RawMessage:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// AsMessages returns the payload content as a message slice. Non-message
// payloads are coerced into a single message carrying the payload role
// (RoleUser when untagged), mirroring the text view.
func (p *Payload) AsMessages() []Message {
	switch v := p.Value.(type) {
	case Message:
		return []Message{v}
	case []Message:
		return v
	default:
		role := p.Role
		if role == "" {
			role = RoleUser
		}
		return []Message{{Role: role, Content: p.Text(), Timestamp: p.CreatedAt}}
	}
}

// PromoteToList returns a sequence payload wrapping p. Message payloads
// become message sequences; other kinds wrap their value into a one-element
// slice. Already-sequence payloads are returned unchanged.
func (p *Payload) PromoteToList() *Payload {
	if p.Kind.IsList() {
		return p
	}
	if p.Kind == KindMessage {
		lp := FromMessages(p.AsMessages())
		lp.Meta = p.Meta
		lp.CreatedAt = p.CreatedAt
		return lp
	}
	lp := New(ListOf(p.Kind), []any{p.Value})
	lp.Role = p.Role
	lp.Meta = p.Meta
	lp.CreatedAt = p.CreatedAt
	return lp
}
