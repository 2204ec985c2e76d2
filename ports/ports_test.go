package ports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/lumenflow/types"
)

func TestConnect_TypeMismatch(t *testing.T) {
	out := NewOutput("message_output", OutputConfig{Kind: types.KindMessage})
	in := NewInput("text_input", InputConfig{Kind: types.KindText})

	err := Connect(out, in)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrTypeMismatch))
	assert.Empty(t, out.Inputs(), "failed connect must not register an edge")
}

func TestConnect_ScalarToSequence(t *testing.T) {
	out := NewOutput("message_output", OutputConfig{Kind: types.KindMessage})
	in := NewInput("history", InputConfig{Kind: types.KindMessageList, Persist: true})
	require.NoError(t, Connect(out, in))

	require.NoError(t, out.Emit(types.FromMessage(types.NewUserMessage("hi"))))
	require.True(t, in.HasPayload())
	assert.Equal(t, types.KindMessageList, in.Payload().Kind, "scalar must be promoted at a sequence port")
}

func TestConnect_SequenceToScalarRejected(t *testing.T) {
	out := NewOutput("history_output", OutputConfig{Kind: types.KindMessageList})
	in := NewInput("message_input", InputConfig{Kind: types.KindMessage})

	err := Connect(out, in)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrTypeMismatch))
}

func TestEmit_FanOutOrderAndCompleteness(t *testing.T) {
	out := NewOutput("out", OutputConfig{Kind: types.KindText})

	var order []string
	mkInput := func(name string) *InputPort {
		return NewInput(name, InputConfig{
			Kind: types.KindText,
			OnReceive: func(p *types.Payload) error {
				order = append(order, name)
				return nil
			},
		})
	}
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, out.Connect(mkInput(name)))
	}

	require.NoError(t, out.Emit(types.NewText("x")))
	assert.Equal(t, []string{"a", "b", "c"}, order, "fan-out must follow registration order")

	order = nil
	require.NoError(t, out.Emit(types.NewText("y")))
	assert.Equal(t, []string{"a", "b", "c"}, order, "each emission notifies every input exactly once")
}

func TestEmit_KindValidated(t *testing.T) {
	out := NewOutput("out", OutputConfig{Kind: types.KindMessage})
	err := out.Emit(types.NewText("nope"))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrTypeMismatch))
}

func TestEmit_DownstreamFailureIdentifiesPort(t *testing.T) {
	out := NewOutput("out", OutputConfig{Kind: types.KindText})

	var delivered []string
	boom := errors.New("boom")
	ok := func(name string) *InputPort {
		return NewInput(name, InputConfig{Kind: types.KindText, OnReceive: func(*types.Payload) error {
			delivered = append(delivered, name)
			return nil
		}})
	}
	bad := NewInput("bad", InputConfig{Kind: types.KindText, OnReceive: func(*types.Payload) error {
		delivered = append(delivered, "bad")
		return boom
	}})

	require.NoError(t, out.Connect(ok("first")))
	require.NoError(t, out.Connect(bad))
	require.NoError(t, out.Connect(ok("after")))

	err := out.Emit(types.NewText("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`, "error must carry the offending input's identity")
	assert.ErrorIs(t, err, boom)
	// first was notified before the failure and is not rolled back;
	// inputs after the failing edge are not reached.
	assert.Equal(t, []string{"first", "bad"}, delivered)
}

func TestReceive_PersistInvariant(t *testing.T) {
	transient := NewInput("transient", InputConfig{Kind: types.KindText, OnReceive: func(*types.Payload) error { return nil }})
	persistent := NewInput("persistent", InputConfig{Kind: types.KindText, Persist: true})

	p := types.NewText("v")
	require.NoError(t, transient.Receive(p))
	assert.False(t, transient.HasPayload(), "persist=false clears after the reaction returns")

	require.NoError(t, persistent.Receive(p))
	assert.True(t, persistent.HasPayload(), "persist=true retains until the next arrival or Clear")
	assert.Same(t, p, persistent.Payload())

	q := types.NewText("w")
	require.NoError(t, persistent.Receive(q))
	assert.Same(t, q, persistent.Payload())
}

func TestReceive_CallbackSeesStoredPayload(t *testing.T) {
	var seen *types.Payload
	in := NewInput("in", InputConfig{Kind: types.KindText})
	in.SetOnReceive(func(p *types.Payload) error {
		seen = in.Payload()
		return nil
	})
	p := types.NewText("v")
	require.NoError(t, in.Receive(p))
	assert.Same(t, p, seen, "payload is stored before the unpack callback runs")
}

func TestEmit_SynchronousCascade(t *testing.T) {
	// a -> b -> c: emitting into a cascades depth-first to c before
	// the outer Emit returns.
	outA := NewOutput("a_out", OutputConfig{Kind: types.KindText})
	outB := NewOutput("b_out", OutputConfig{Kind: types.KindText})

	var got string
	inC := NewInput("c_in", InputConfig{Kind: types.KindText, OnReceive: func(p *types.Payload) error {
		got = p.Text()
		return nil
	}})
	inB := NewInput("b_in", InputConfig{Kind: types.KindText, OnReceive: func(p *types.Payload) error {
		return outB.Emit(types.NewText(p.Text() + "!"))
	}})

	require.NoError(t, Connect(outA, inB))
	require.NoError(t, Connect(outB, inC))

	require.NoError(t, outA.Emit(types.NewText("ping")))
	assert.Equal(t, "ping!", got)
}

func TestStage_AutoEmitWhenReady(t *testing.T) {
	out := NewOutput("combined", OutputConfig{
		Kind:     types.KindMessage,
		Required: []string{"role", "content"},
		Pack: func(staged map[string]any) (*types.Payload, error) {
			return types.FromMessage(types.NewMessage(
				staged["role"].(types.Role), staged["content"].(string))), nil
		},
	})
	var received *types.Payload
	in := NewInput("in", InputConfig{Kind: types.KindMessage, OnReceive: func(p *types.Payload) error {
		received = p
		return nil
	}})
	require.NoError(t, Connect(out, in))

	require.NoError(t, out.Stage("role", types.RoleUser))
	assert.Nil(t, received, "partial staging must not emit")

	require.NoError(t, out.Stage("content", "hello"))
	require.NotNil(t, received)
	assert.Equal(t, "hello", received.Text())

	// Staging area resets after emission.
	err := out.EmitStaged()
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrNotReady))
}

func TestStage_UnknownItemRejected(t *testing.T) {
	out := NewOutput("out", OutputConfig{Kind: types.KindText, Required: []string{"text"}})
	err := out.Stage("bogus", 1)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfigInvalid))
}

func TestStageEmit_ImplicitPayloadItem(t *testing.T) {
	out := NewOutput("pipe_output", OutputConfig{Kind: types.KindText})
	var got string
	in := NewInput("pipe_input", InputConfig{Kind: types.KindText, OnReceive: func(p *types.Payload) error {
		got = p.Text()
		return nil
	}})
	require.NoError(t, Connect(out, in))

	require.NoError(t, out.StageEmit(map[string]any{"payload": types.NewText("through")}))
	assert.Equal(t, "through", got)
}

func TestRegistry_LookupAndOrder(t *testing.T) {
	reg := NewRegistry("chat", nil)
	reg.AddInput("user_message_input", InputConfig{Kind: types.KindMessage})
	reg.AddInput("assistant_message_input", InputConfig{Kind: types.KindMessage})
	reg.AddOutput("message_output", OutputConfig{Kind: types.KindMessage})

	assert.Equal(t, []string{"user_message_input", "assistant_message_input"}, reg.InputNames())

	in, err := reg.Input("user_message_input")
	require.NoError(t, err)
	assert.Equal(t, "chat", in.Element())

	_, err = reg.Output("missing")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrPortNotFound))
}
