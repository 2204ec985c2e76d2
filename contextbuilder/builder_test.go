package contextbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/lumenflow/element"
	"github.com/BaSui01/lumenflow/ports"
	"github.com/BaSui01/lumenflow/types"
)

func newSink(t *testing.T) *element.Pipe {
	t.Helper()
	return element.NewPipe("sink", element.PipeConfig{Kind: types.KindMessageList})
}

func sinkMessages(t *testing.T, sink *element.Pipe) []types.Message {
	t.Helper()
	p := sink.LastReceived()
	require.NotNil(t, p)
	return p.AsMessages()
}

func contents(msgs []types.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func send(t *testing.T, b *Builder, slot, text string) {
	t.Helper()
	require.NoError(t, b.Input(slot).Receive(types.NewText(text)))
}

func TestEmitOrder_OptionalBracketSemantics(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "S", Message: "sys", Role: types.RoleSystem},
			{Name: "A", Kind: types.KindText, Role: types.RoleUser},
			{Name: "B", Kind: types.KindText, Role: types.RoleAssistant},
		},
		EmitOrder: []string{"S", "A", "[B]"},
		Connect:   []*ports.InputPort{sink.Input("pipe_input")},
	})
	require.NoError(t, err)

	// A alone satisfies the order; optional B is omitted.
	send(t, b, "A", "hello")
	require.Len(t, sink.Received(), 1)
	assert.Equal(t, []string{"sys", "hello"}, contents(sinkMessages(t, sink)))

	// A was cleared by the emission; B alone must not re-trigger.
	send(t, b, "B", "late")
	assert.Len(t, sink.Received(), 1, "optional B alone must not re-trigger")

	// A arrives again; held B is now included.
	send(t, b, "A", "again")
	require.Len(t, sink.Received(), 2)
	assert.Equal(t, []string{"sys", "again", "late"}, contents(sinkMessages(t, sink)))
}

func TestStrategyPriority_BuildWins(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "a", Kind: types.KindText},
			{Name: "b", Kind: types.KindText},
		},
		Build: func(active string, values map[string]*types.Payload, state map[string]any) ([]string, error) {
			if active != "b" {
				return nil, nil
			}
			return []string{"b", "[a]"}, nil
		},
		// Both configured but silenced by the build function.
		TriggerMap: map[string][]string{"a": {"a"}},
		EmitOrder:  []string{"a"},
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	// The trigger map and emit order would both fire on a's arrival;
	// the build function says not yet.
	send(t, b, "a", "first")
	assert.Empty(t, sink.Received())

	send(t, b, "b", "second")
	require.Len(t, sink.Received(), 1)
	assert.Equal(t, []string{"second", "first"}, contents(sinkMessages(t, sink)))
}

func TestTriggerMap_FiresWhenRequiredPopulated(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "sys", Message: "You are helpful."},
			{Name: "query", Kind: types.KindText, Role: types.RoleUser},
			{Name: "history", Kind: types.KindMessageList},
		},
		TriggerMap: map[string][]string{
			"query":   {"sys", "[history]", "query"},
			"history": {"sys", "history"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	send(t, b, "query", "hi")
	require.Len(t, sink.Received(), 1)
	assert.Equal(t, []string{"You are helpful.", "hi"}, contents(sinkMessages(t, sink)))
}

func TestTriggerMap_PendingAccumulatesThenResets(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "query", Kind: types.KindText},
			{Name: "context", Kind: types.KindText},
		},
		TriggerMap: map[string][]string{
			"query": {"context", "query"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	// Trigger arrives first: pending, waiting on context.
	send(t, b, "query", "q1")
	assert.Empty(t, sink.Received())

	// Requirement arrives while pending: fires.
	send(t, b, "context", "c1")
	require.Len(t, sink.Received(), 1)
	assert.Equal(t, []string{"c1", "q1"}, contents(sinkMessages(t, sink)))

	// Trigger state is idle again: a partial arrival must not re-fire.
	send(t, b, "context", "c2")
	assert.Len(t, sink.Received(), 1)
}

func TestDefaultStrategy_AllPortsInDeclarationOrder(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "sys", Message: "be brief"},
			{Name: "a", Kind: types.KindText},
			{Name: "b", Kind: types.KindText},
		},
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	// Arrival order b, a; emission uses declaration order.
	send(t, b, "b", "two")
	assert.Empty(t, sink.Received(), "waits for every port slot")
	send(t, b, "a", "one")
	require.Len(t, sink.Received(), 1)
	assert.Equal(t, []string{"be brief", "one", "two"}, contents(sinkMessages(t, sink)))
}

func TestTemplate_RendersFromCurrentValues(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "schema", Kind: types.KindText, Persist: true},
			{Name: "schema_note", Template: "Comply with: {{ schema }}"},
			{Name: "query", Kind: types.KindText, Role: types.RoleUser},
		},
		EmitOrder: []string{"schema_note", "query"},
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	send(t, b, "schema", `{"type":"object"}`)
	send(t, b, "query", "go")
	require.Len(t, sink.Received(), 1)
	msgs := sinkMessages(t, sink)
	assert.Equal(t, `Comply with: {"type":"object"}`, msgs[0].Content)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)

	// Persist keeps schema for the next round.
	send(t, b, "query", "again")
	assert.Len(t, sink.Received(), 2)
}

func TestTemplate_UnpopulatedReferenceIsMissingDependency(t *testing.T) {
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "schema", Kind: types.KindText},
			{Name: "note", Template: "Schema: {{ schema }}"},
			{Name: "query", Kind: types.KindText},
		},
		EmitOrder: []string{"note", "query"},
	})
	require.NoError(t, err)

	err = b.Input("query").Receive(types.NewText("go"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrMissingDependency))
}

func TestDependsOn_GatesInclusion(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "history_note", Message: "History follows.", DependsOn: []string{"history"}},
			{Name: "history", Kind: types.KindMessageList},
			{Name: "query", Kind: types.KindText, Role: types.RoleUser},
		},
		TriggerMap: map[string][]string{
			"query": {"history_note", "[history]", "query"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	// No history: the dependent constant is omitted.
	send(t, b, "query", "hi")
	assert.Equal(t, []string{"hi"}, contents(sinkMessages(t, sink)))

	// With history populated the note appears.
	msg := types.FromMessages([]types.Message{types.NewUserMessage("earlier")})
	require.NoError(t, b.Input("history").Receive(msg))
	send(t, b, "query", "next")
	assert.Equal(t, []string{"History follows.", "earlier", "next"},
		contents(sinkMessages(t, sink)))
}

func TestRetainTrigger_KeepsActiveSlot(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{Name: "a", Kind: types.KindText},
		},
		EmitOrder:     []string{"a"},
		RetainTrigger: true,
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	send(t, b, "a", "kept")
	assert.True(t, b.Populated("a"), "retain-trigger leaves the active slot populated")
}

func TestSlotCallback_TransformsBeforeStorage(t *testing.T) {
	sink := newSink(t)
	b, err := New("ctx", Config{
		Slots: []Slot{
			{
				Name: "a",
				Kind: types.KindText,
				Callback: func(p *types.Payload) (*types.Payload, error) {
					return types.NewText(p.Text() + "?"), nil
				},
			},
		},
		EmitOrder: []string{"a"},
	})
	require.NoError(t, err)
	require.NoError(t, b.ConnectOutput(sink.Input("pipe_input")))

	send(t, b, "a", "really")
	assert.Equal(t, []string{"really?"}, contents(sinkMessages(t, sink)))
}

func TestConfigValidation(t *testing.T) {
	port := Slot{Name: "a", Kind: types.KindText}

	cases := []struct {
		name string
		cfg  Config
		code types.ErrorCode
	}{
		{"no slots", Config{}, types.ErrConfigInvalid},
		{"duplicate slot", Config{Slots: []Slot{port, port}}, types.ErrConfigInvalid},
		{"both port and constant", Config{Slots: []Slot{
			{Name: "x", Kind: types.KindText, Message: "m"},
		}}, types.ErrConfigInvalid},
		{"emit order unknown slot", Config{
			Slots:     []Slot{port},
			EmitOrder: []string{"ghost"},
		}, types.ErrConfigInvalid},
		{"trigger on constant", Config{
			Slots:      []Slot{port, {Name: "c", Message: "m"}},
			TriggerMap: map[string][]string{"c": {"a"}},
		}, types.ErrConfigInvalid},
		{"template references undeclared slot", Config{
			Slots: []Slot{port, {Name: "t", Template: "{{ nope }}"}},
		}, types.ErrMissingDependency},
		{"depends_on undeclared slot", Config{
			Slots: []Slot{{Name: "x", Kind: types.KindText, DependsOn: []string{"nope"}}},
		}, types.ErrMissingDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("ctx", tc.cfg)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, tc.code), "got %v", err)
		})
	}
}
