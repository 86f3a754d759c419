package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/output"
)

// Multi fans out records to several outputs. One failing output does not
// stop delivery to the rest; errors are joined.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

func (m *Multi) Write(ctx context.Context, rec model.Record) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every buffered output.
func (m *Multi) Flush() error {
	var errs []error
	for _, o := range m.outputs {
		if err := output.Flush(o); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
