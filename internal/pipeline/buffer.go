package pipeline

import "github.com/crimson-sun/leaf/internal/source"

// batch accumulates readings until it reaches size.
type batch struct {
	size    int
	pending []source.Reading
}

func newBatch(size int) *batch {
	return &batch{size: size, pending: make([]source.Reading, 0, size)}
}

// add appends a reading and reports whether the batch is full.
func (b *batch) add(rd source.Reading) bool {
	b.pending = append(b.pending, rd)
	return len(b.pending) >= b.size
}

// take returns the pending readings and starts a new batch.
func (b *batch) take() []source.Reading {
	out := b.pending
	b.pending = make([]source.Reading, 0, b.size)
	return out
}
