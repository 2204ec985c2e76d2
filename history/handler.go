// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package history

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

// DefaultTokenLimit bounds the rolling window when none is configured.
const DefaultTokenLimit = 32000

// Config configures a Handler.
type Config struct {
	// TokenLimit is the window budget. Defaults to DefaultTokenLimit.
	TokenLimit int

	// Counter estimates message cost. Defaults to the character estimate.
	Counter TokenCounter

	// EmitOnLoad emits the window snapshot after every accepted message.
	// Disabled, the window is only readable through Messages.
	EmitOnLoad bool
}

type entry struct {
	msg    types.Message
	tokens int
}

// Handler keeps conversation history inside a rolling token budget. Messages
// arrive one at a time (message_input) or in batches (messages_input);
// oldest messages are evicted until the newcomer fits. The current window
// leaves through history_output as a message sequence.
type Handler struct {
	*element.Element

	limit   int
	counter TokenCounter
	emit    bool

	window []entry
	total  int

	out *ports.OutputPort
}

// New creates a history handler.
func New(name string, cfg Config, opts ...element.Option) (*Handler, error) {
	limit := cfg.TokenLimit
	if limit <= 0 {
		limit = DefaultTokenLimit
	}
	counter := cfg.Counter
	if counter == nil {
		counter = EstimateCounter{}
	}
	h := &Handler{
		Element: element.New(name, opts...),
		limit:   limit,
		counter: counter,
		emit:    cfg.EmitOnLoad,
	}
	h.out = h.Ports().AddOutput("history_output", ports.OutputConfig{Kind: types.KindMessageList})
	h.Ports().AddInput("message_input", ports.InputConfig{
		Kind: types.KindMessage,
		OnReceive: func(p *types.Payload) error {
			return h.load(p.AsMessages())
		},
	})
	h.Ports().AddInput("messages_input", ports.InputConfig{
		Kind: types.KindMessageList,
		OnReceive: func(p *types.Payload) error {
			return h.load(p.AsMessages())
		},
	})
	return h, nil
}

// Output returns the history_output port for graph wiring.
func (h *Handler) Output() *ports.OutputPort { return h.out }

// ConnectOutput wires history_output to a downstream input.
func (h *Handler) ConnectOutput(in *ports.InputPort) error {
	return ports.Connect(h.out, in)
}

// Messages returns a snapshot of the current window, oldest first.
func (h *Handler) Messages() []types.Message {
	out := make([]types.Message, len(h.window))
	for i, e := range h.window {
		out[i] = e.msg
	}
	return out
}

// TokenCount returns the window's current token total.
func (h *Handler) TokenCount() int { return h.total }

// load admits messages into the window, evicting from the front until each
// newcomer fits, then emits the snapshot once for the whole batch.
func (h *Handler) load(msgs []types.Message) error {
	for _, msg := range msgs {
		tokens, err := h.counter.CountTokens(msg.Content)
		if err != nil {
			return fmt.Errorf("count tokens: %w", err)
		}
		if tokens > h.limit {
			return types.Errorf(types.ErrContextOverflow,
				"message of %d tokens exceeds the history limit of %d", tokens, h.limit)
		}
		for h.total+tokens > h.limit {
			evicted := h.window[0]
			h.window = h.window[1:]
			h.total -= evicted.tokens
		}
		h.window = append(h.window, entry{msg: msg, tokens: tokens})
		h.total += tokens
	}
	h.Logger().Debug("history updated",
		zap.Int("messages", len(h.window)),
		zap.Int("tokens", h.total))

	if !h.emit || len(h.window) == 0 {
		return nil
	}
	return h.out.Emit(types.FromMessages(h.Messages()))
}
