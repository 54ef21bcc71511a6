package syncgw

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSendsValue(t *testing.T) {
	got := make(chan int, 1)
	g := New("cart", func(_ context.Context, v int) error {
		got <- v
		return nil
	}, nil)

	g.Push(7)
	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for send")
	}
	require.NoError(t, g.Flush(context.Background()))
	assert.NoError(t, g.LastError())
}

func TestPushesCoalesceAndNeverOverlap(t *testing.T) {
	release := make(chan struct{})
	var inFlight, maxInFlight atomic.Int32
	var mu sync.Mutex
	var sent []int

	g := New("cart", func(_ context.Context, v int) error {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		if v == 1 {
			<-release
		}
		mu.Lock()
		sent = append(sent, v)
		mu.Unlock()
		inFlight.Add(-1)
		return nil
	}, nil)

	g.Push(1)
	require.Eventually(t, func() bool { return inFlight.Load() == 1 }, time.Second, time.Millisecond)
	g.Push(2)
	g.Push(3)
	g.Push(4)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.Flush(ctx))

	assert.Equal(t, []int{1, 4}, sent, "intermediate states are dropped, the latest wins")
	assert.EqualValues(t, 1, maxInFlight.Load())
}

func TestFailuresAreSwallowed(t *testing.T) {
	g := New("wishlist", func(context.Context, []string) error {
		return errors.New("503")
	}, nil)

	g.Push([]string{"1"})
	require.NoError(t, g.Flush(context.Background()))
	assert.EqualError(t, g.LastError(), "503")

	g.Push([]string{"1", "2"})
	require.NoError(t, g.Flush(context.Background()))
}

func TestFlushHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	g := New("cart", func(context.Context, int) error {
		<-block
		return nil
	}, nil)
	g.Push(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Flush(ctx), context.DeadlineExceeded)
}
