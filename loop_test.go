package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Do(func() { got = append(got, i) })
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	require.NoError(t, l.DoSync(ctx, func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopDoFromManyGoroutines(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Do(func() { count++ })
		}()
	}
	wg.Wait()
	require.NoError(t, l.DoSync(ctx, func() {}))
	assert.Equal(t, 50, count)
}

func TestLoopReentrantDo(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []string
	done := make(chan struct{})
	l.Do(func() {
		got = append(got, "outer")
		l.Do(func() {
			got = append(got, "inner")
			close(done)
		})
		got = append(got, "outer-end")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("inner function never ran")
	}
	assert.Equal(t, []string{"outer", "outer-end", "inner"}, got)
}

func TestLoopDoSyncCancelled(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.DoSync(ctx, func() {}), context.Canceled)
	assert.Equal(t, 1, l.Pending())
}

func TestLoopStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
