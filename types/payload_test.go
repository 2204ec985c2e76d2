package types

import (
	"encoding/json"
	"testing"
)

func TestPayload_TextViews(t *testing.T) {
	if got := NewText("hello").Text(); got != "hello" {
		t.Fatalf("text payload: %q", got)
	}
	mp := FromMessage(NewUserMessage("hi"))
	if got := mp.Text(); got != "hi" {
		t.Fatalf("message payload: %q", got)
	}
	lp := FromMessages([]Message{
		NewSystemMessage("a"),
		NewUserMessage("b"),
	})
	if got := lp.Text(); got != "a\nb" {
		t.Fatalf("message list payload: %q", got)
	}
	sp := NewStructured(json.RawMessage(`{"route":"reply"}`))
	if got := sp.Text(); got != `{"route":"reply"}` {
		t.Fatalf("structured payload: %q", got)
	}
}

func TestPayload_AsMessages(t *testing.T) {
	msgs := FromMessage(NewAssistantMessage("ok")).AsMessages()
	if len(msgs) != 1 || msgs[0].Role != RoleAssistant {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	// Non-message payloads coerce to a single message carrying the payload role.
	p := NewText("raw").WithRole(RoleSystem)
	msgs = p.AsMessages()
	if len(msgs) != 1 || msgs[0].Role != RoleSystem || msgs[0].Content != "raw" {
		t.Fatalf("unexpected coerced messages: %+v", msgs)
	}
}

func TestPayload_PromoteToList(t *testing.T) {
	p := FromMessage(NewUserMessage("hi"))
	lp := p.PromoteToList()
	if lp.Kind != KindMessageList {
		t.Fatalf("expected %s, got %s", KindMessageList, lp.Kind)
	}
	if msgs := lp.AsMessages(); len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("unexpected promoted content: %+v", msgs)
	}
	if again := lp.PromoteToList(); again != lp {
		t.Fatal("promoting a list must be identity")
	}
}

func TestPayload_WithRoleDoesNotMutate(t *testing.T) {
	p := NewText("x")
	q := p.WithRole(RoleTool)
	if p.Role != "" {
		t.Fatal("WithRole mutated the original payload")
	}
	if q.Role != RoleTool {
		t.Fatalf("expected tool role, got %s", q.Role)
	}
}
