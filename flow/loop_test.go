package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_SerializesTasks(t *testing.T) {
	l := NewLoop(nil)
	defer l.Close()

	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		require.NoError(t, l.Submit(func() error {
			order = append(order, i)
			wg.Done()
			return nil
		}))
	}
	wg.Wait()

	require.Len(t, order, 20)
	for i, got := range order {
		assert.Equal(t, i, got, "tasks run in submission order")
	}
}

func TestLoop_DoReturnsTaskError(t *testing.T) {
	l := NewLoop(nil)
	defer l.Close()

	boom := errors.New("boom")
	err := l.Do(context.Background(), func() error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, l.Do(context.Background(), func() error { return nil }))
}

func TestLoop_ClosedRejectsTasks(t *testing.T) {
	l := NewLoop(nil)
	l.Close()

	err := l.Submit(func() error { return nil })
	assert.Error(t, err)
}
