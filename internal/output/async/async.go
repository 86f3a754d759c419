package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output: closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately, dropping the record, when
// the buffer is full instead of blocking the request that produced it.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Async) { a.logger = l }
}

// Async decouples record production (HTTP handlers, batch runs) from slow
// destinations. A background goroutine drains a buffered channel into the
// wrapped output; inner write errors go to the error callback.
type Async struct {
	inner      output.Output
	ch         chan model.Record
	done       chan struct{}
	quit       chan struct{} // closed first by Close to release blocked writers
	quitOnce   sync.Once
	errFunc    func(error)
	logger     *slog.Logger
	bufSize    int
	dropOnFull bool

	mu     sync.RWMutex // guards closed against sends on a closed channel
	closed bool
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		bufSize: defaultBufferSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.errFunc == nil {
		a.errFunc = func(err error) { a.logger.Warn("async output write error", "error", err) }
	}
	a.ch = make(chan model.Record, a.bufSize)
	a.done = make(chan struct{})
	a.quit = make(chan struct{})
	go a.drain()
	return a
}

// Write queues the record. By default it blocks while the buffer is full
// until ctx is done; with WithDropOnFull it drops instead.
func (a *Async) Write(ctx context.Context, rec model.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	if a.dropOnFull {
		select {
		case a.ch <- rec:
		default:
			a.logger.Warn("async output buffer full, dropping record", "id", rec.ID, "source", rec.Source)
		}
		return nil
	}

	select {
	case a.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-a.quit:
		return ErrClosed
	}
}

// Close stops accepting records, waits for the drain (bounded by a timeout)
// and closes the inner output. Safe to call more than once. Writers blocked
// on a full buffer return ErrClosed.
func (a *Async) Close() error {
	// Writers hold the read lock while blocked, so they must be woken
	// before the write lock can be taken.
	a.quitOnce.Do(func() { close(a.quit) })
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(defaultDrainTimeout):
		a.logger.Warn("async output drain timed out")
	}
	return a.inner.Close()
}

func (a *Async) drain() {
	defer close(a.done)
	for rec := range a.ch {
		if err := a.inner.Write(context.Background(), rec); err != nil {
			a.errFunc(err)
		}
	}
	if err := output.Flush(a.inner); err != nil {
		a.errFunc(err)
	}
}
