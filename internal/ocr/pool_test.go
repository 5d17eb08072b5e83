package ocr

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engine struct {
	id     int
	closed atomic.Bool
}

func newTestPool(t *testing.T, engines ...*engine) *clientPool[*engine] {
	t.Helper()
	p := newClientPool(len(engines), func(e *engine) error {
		assert.False(t, e.closed.Swap(true), "engine %d released twice", e.id)
		return nil
	})
	for _, e := range engines {
		p.add(e)
	}
	return p
}

func TestClientPoolCloseWaitsForLentClients(t *testing.T) {
	t.Parallel()

	a, b := &engine{id: 1}, &engine{id: 2}
	p := newTestPool(t, a, b)

	lent, err := p.get(t.Context())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Close() }()

	select {
	case <-done:
		t.Fatal("Close returned while a client was lent")
	case <-time.After(20 * time.Millisecond):
	}

	_, err = p.get(t.Context())
	require.ErrorIs(t, err, ErrRecognizerClosed)

	p.put(lent)
	require.NoError(t, <-done)
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())

	assert.NoError(t, p.Close())
}

func TestClientPoolGetHonoursContext(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, &engine{id: 1})
	held, err := p.get(t.Context())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err = p.get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.put(held)
	require.NoError(t, p.Close())
	assert.True(t, held.closed.Load())
}

func TestClientPoolCloseWithoutClients(t *testing.T) {
	t.Parallel()

	p := newTestPool(t)
	assert.NoError(t, p.Close())
	_, err := p.get(t.Context())
	assert.ErrorIs(t, err, ErrRecognizerClosed)
}
