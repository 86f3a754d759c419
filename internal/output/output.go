// Package output delivers prediction records to their destinations.
package output

import (
	"context"

	"github.com/crimson-sun/leaf/internal/model"
)

// Output defines the interface for prediction record destinations.
type Output interface {
	Write(ctx context.Context, rec model.Record) error
	Close() error
}

// Flusher is implemented by buffered outputs.
type Flusher interface {
	Flush() error
}

// Flush flushes o if it buffers, and is a no-op otherwise.
func Flush(o Output) error {
	if f, ok := o.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
