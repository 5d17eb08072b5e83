package ocr

import (
	"context"
	"sync"

	"github.com/blinkbus/blink-go/internal/errors"
)

// ErrRecognizerClosed is returned by Recognize after Close.
var ErrRecognizerClosed = errors.NewStd("recognizer closed")

// clientPool lends a fixed set of engine clients. Close waits until every lent
// client is back before releasing them all.
type clientPool[T any] struct {
	idle    chan T
	size    int
	closed  chan struct{}
	once    sync.Once
	release func(T) error
}

func newClientPool[T any](capacity int, release func(T) error) *clientPool[T] {
	return &clientPool[T]{
		idle:    make(chan T, capacity),
		closed:  make(chan struct{}),
		release: release,
	}
}

// add hands a new client to the pool. Only called during construction.
func (p *clientPool[T]) add(client T) {
	p.idle <- client
	p.size++
}

func (p *clientPool[T]) get(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-p.closed:
		return zero, ErrRecognizerClosed
	default:
	}

	select {
	case client := <-p.idle:
		select {
		case <-p.closed:
			p.put(client)
			return zero, ErrRecognizerClosed
		default:
		}
		return client, nil
	case <-p.closed:
		return zero, ErrRecognizerClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (p *clientPool[T]) put(client T) {
	p.idle <- client
}

// Close blocks until lent clients are returned, then releases every client.
// Later calls return nil.
func (p *clientPool[T]) Close() error {
	var err error
	p.once.Do(func() {
		close(p.closed)
		errs := make([]error, 0, p.size)
		for range p.size {
			errs = append(errs, p.release(<-p.idle))
		}
		err = errors.Join(errs...)
	})
	return err
}
