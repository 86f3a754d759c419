package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crimson-sun/leaf/internal/model"
)

type mockOutput struct {
	mu      sync.Mutex
	records []model.Record
	closed  bool
	flushed bool
	err     error         // if set, Write returns this
	delay   time.Duration // if >0, Write sleeps first
	block   chan struct{} // if set, Write waits on it
}

func (m *mockOutput) Write(_ context.Context, rec model.Record) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Flush() error {
	m.mu.Lock()
	m.flushed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func testRecord(source string) model.Record {
	p := model.Prediction{Label: model.Healthy, Distribution: model.Distribution{0.8, 0.1, 0.1}}
	return model.NewRecord(source, "", model.DefaultVector(), p, time.Now())
}

func TestRecordsFlowThrough(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	for i := 0; i < 10; i++ {
		if err := a.Write(context.Background(), testRecord("http")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if inner.count() != 10 {
		t.Errorf("got %d records, want 10", inner.count())
	}
	if !inner.closed || !inner.flushed {
		t.Errorf("inner closed=%v flushed=%v, want both", inner.closed, inner.flushed)
	}
}

func TestBackpressureBlocks(t *testing.T) {
	inner := &mockOutput{delay: 50 * time.Millisecond}
	a := New(inner, WithBufferSize(1))

	a.Write(context.Background(), testRecord("first"))

	done := make(chan struct{})
	go func() {
		a.Write(context.Background(), testRecord("second"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked indefinitely (expected eventual unblock via drain)")
	}

	a.Close()
}

func TestWriteHonoursContext(t *testing.T) {
	inner := &mockOutput{block: make(chan struct{})}
	a := New(inner, WithBufferSize(1))

	// One record is held by the drain goroutine, one fills the buffer.
	a.Write(context.Background(), testRecord("a"))
	a.Write(context.Background(), testRecord("b"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Write(ctx, testRecord("c")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Write error = %v, want DeadlineExceeded", err)
	}

	close(inner.block)
	a.Close()
}

func TestDropOnFull(t *testing.T) {
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())

	for i := 0; i < 20; i++ {
		a.Write(context.Background(), testRecord("burst"))
	}

	a.Close()

	if inner.count() == 20 {
		t.Error("expected some records to be dropped in drop-on-full mode")
	}
	if inner.count() == 0 {
		t.Error("expected at least some records to be delivered")
	}
}

func TestCloseDrainsRemaining(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(100))

	for i := 0; i < 50; i++ {
		a.Write(context.Background(), testRecord("drain"))
	}

	a.Close()

	if inner.count() != 50 {
		t.Errorf("after Close, got %d records, want 50 (drain incomplete)", inner.count())
	}
}

func TestErrorCallbackInvoked(t *testing.T) {
	inner := &mockOutput{err: errors.New("write failed")}
	var errorCount atomic.Int64
	a := New(inner, WithBufferSize(16), WithOnError(func(err error) {
		errorCount.Add(1)
	}))

	for i := 0; i < 5; i++ {
		a.Write(context.Background(), testRecord("failing"))
	}

	a.Close()

	if errorCount.Load() != 5 {
		t.Errorf("error callback called %d times, want 5", errorCount.Load())
	}
}

func TestWriteAfterClose(t *testing.T) {
	a := New(&mockOutput{}, WithBufferSize(16))
	a.Close()

	if err := a.Write(context.Background(), testRecord("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	a.Write(context.Background(), testRecord("idempotent"))

	if err := a.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}

func TestCloseReleasesBlockedWriter(t *testing.T) {
	inner := &mockOutput{block: make(chan struct{})}
	a := New(inner, WithBufferSize(1))

	// One record is held by the drain goroutine, one fills the buffer.
	a.Write(context.Background(), testRecord("a"))
	a.Write(context.Background(), testRecord("b"))

	writeErr := make(chan error, 1)
	go func() { writeErr <- a.Write(context.Background(), testRecord("c")) }()
	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- a.Close() }()

	select {
	case err := <-writeErr:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("blocked Write error = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not release the blocked Write")
	}

	close(inner.block)
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the drain unblocked")
	}
	if got := inner.count(); got != 2 {
		t.Errorf("inner received %d records, want 2", got)
	}
}
