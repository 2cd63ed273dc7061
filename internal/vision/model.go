package vision

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Model is an immutable trained-recognizer snapshot.
type Model struct {
	Bytes     []byte
	Version   int64
	TrainedAt time.Time
}

// ModelStore owns the shared trained model. Readers take the current
// snapshot; retraining writes the new model to a temp file, renames it over
// the old one, and only then swaps the published pointer. A snapshot handed
// to a concurrent recognition call stays valid for its whole request.
type ModelStore struct {
	path    string
	current atomic.Pointer[Model]
	version atomic.Int64
}

// NewModelStore returns a store persisting the model at path.
func NewModelStore(path string) (*ModelStore, error) {
	if path == "" {
		return nil, fmt.Errorf("model path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	return &ModelStore{path: path}, nil
}

// Load reads a previously persisted model, if one exists. A missing file is
// not an error: a fresh process simply cannot recognize anyone until the
// first enrollment trains a model.
func (s *ModelStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load model: %w", err)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat model: %w", err)
	}
	s.publish(data, info.ModTime())
	return nil
}

// Current returns the published snapshot, or nil before the first training.
func (s *ModelStore) Current() *Model {
	return s.current.Load()
}

// Publish persists the retrained model and atomically swaps the snapshot.
func (s *ModelStore) Publish(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to publish an empty model")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish model: %w", err)
	}
	s.publish(data, time.Now().UTC())
	return nil
}

// Path exposes the persistence location.
func (s *ModelStore) Path() string {
	return s.path
}

func (s *ModelStore) publish(data []byte, trainedAt time.Time) {
	s.current.Store(&Model{
		Bytes:     data,
		Version:   s.version.Add(1),
		TrainedAt: trainedAt,
	})
}
