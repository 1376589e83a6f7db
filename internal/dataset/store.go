// Package dataset persists conversation batches in the formats downstream
// training pipelines consume: line-delimited JSON, Parquet, CSV, and a
// paired question/answer view.
package dataset

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// PersistenceError reports a failed save or load. It is fatal to that
// single operation and propagates to the caller; already-written files are
// never left half-valid (writes go through a temp file + rename).
type PersistenceError struct {
	Op    string
	Path  string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Store writes and reads conversation datasets under one output directory.
type Store struct {
	outputDir string
	logger    zerolog.Logger
}

// NewStore creates a store rooted at outputDir, creating it if needed.
func NewStore(outputDir string) (*Store, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &PersistenceError{Op: "create output dir", Path: outputDir, Cause: err}
	}
	return &Store{
		outputDir: outputDir,
		logger:    logging.GetLogger("dataset"),
	}, nil
}

// OutputDir returns the store's root directory.
func (s *Store) OutputDir() string {
	return s.outputDir
}

// atomicWrite writes data-producing fn output to path via a temp file and
// rename, so a failed write never leaves a truncated file behind.
func (s *Store) atomicWrite(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(s.outputDir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
