package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
)

// Snapshot is one loaded artifact. It never changes after construction.
// Reference counting lets a retired snapshot stay usable until every call
// that acquired it has released it; only then is the artifact closed.
type Snapshot struct {
	Artifact artifact.Artifact
	Info     artifact.Info
	LoadedAt time.Time

	refs      atomic.Int64
	retired   atomic.Bool
	closeOnce sync.Once
	closeErr  error
	onClose   func(error)
}

func newSnapshot(a artifact.Artifact, info artifact.Info, at time.Time) *Snapshot {
	return &Snapshot{Artifact: a, Info: info, LoadedAt: at}
}

func (s *Snapshot) release() {
	if s.refs.Add(-1) == 0 && s.retired.Load() {
		s.close()
	}
}

// retire marks the snapshot as replaced. The artifact is closed now if idle,
// otherwise by the last release.
func (s *Snapshot) retire() {
	s.retired.Store(true)
	if s.refs.Load() == 0 {
		s.close()
	}
}

func (s *Snapshot) close() {
	s.closeOnce.Do(func() {
		s.closeErr = s.Artifact.Close()
		if s.onClose != nil {
			s.onClose(s.closeErr)
		}
	})
}
