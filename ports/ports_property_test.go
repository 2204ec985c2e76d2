package ports

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/BaSui01/lumenflow/types"
)

// Property: for any number of connected inputs and any emission count, every
// input's reaction runs exactly once per emission, in registration order.
func TestProperty_FanOutCompleteness(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 16).Draw(rt, "inputs")
		emissions := rapid.IntRange(1, 8).Draw(rt, "emissions")

		out := NewOutput("out", OutputConfig{Kind: types.KindText})
		counts := make([]int, n)
		var order []int

		for i := 0; i < n; i++ {
			i := i
			in := NewInput(fmt.Sprintf("in_%d", i), InputConfig{
				Kind: types.KindText,
				OnReceive: func(*types.Payload) error {
					counts[i]++
					order = append(order, i)
					return nil
				},
			})
			if err := out.Connect(in); err != nil {
				rt.Fatalf("connect: %v", err)
			}
		}

		for e := 0; e < emissions; e++ {
			order = order[:0]
			if err := out.Emit(types.NewText("x")); err != nil {
				rt.Fatalf("emit: %v", err)
			}
			for i, got := range order {
				if got != i {
					rt.Fatalf("delivery order broken: position %d got input %d", i, got)
				}
			}
			if len(order) != n {
				rt.Fatalf("expected %d deliveries, got %d", n, len(order))
			}
		}
		for i, c := range counts {
			if c != emissions {
				rt.Fatalf("input %d reacted %d times, want %d", i, c, emissions)
			}
		}
	})
}

// Property: persist=false ports never hold data after a reaction,
// persist=true ports always hold the most recent payload.
func TestProperty_PersistInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		persist := rapid.Bool().Draw(rt, "persist")
		arrivals := rapid.IntRange(1, 10).Draw(rt, "arrivals")

		in := NewInput("in", InputConfig{
			Kind:      types.KindText,
			Persist:   persist,
			OnReceive: func(*types.Payload) error { return nil },
		})

		var last *types.Payload
		for a := 0; a < arrivals; a++ {
			last = types.NewText(fmt.Sprintf("v%d", a))
			if err := in.Receive(last); err != nil {
				rt.Fatalf("receive: %v", err)
			}
		}
		if persist && in.Payload() != last {
			rt.Fatalf("persistent port lost the most recent payload")
		}
		if !persist && in.HasPayload() {
			rt.Fatalf("transient port retained a payload after reaction")
		}
	})
}
