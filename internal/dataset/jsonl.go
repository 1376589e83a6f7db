package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
)

// maxLineBytes bounds a single JSONL line. Conversations are chunked text,
// not whole documents, so 16MB is generous.
const maxLineBytes = 16 * 1024 * 1024

// SaveJSONL writes one JSON-encoded conversation per line and returns the
// output path. The file is UTF-8, newline-terminated, with the external
// {"from","value"} field names.
func (s *Store) SaveJSONL(batch conversation.Batch, name string) (string, error) {
	path := filepath.Join(s.outputDir, name+".jsonl")

	err := s.atomicWrite(path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		for _, conv := range batch {
			// Encode appends the trailing newline itself.
			if err := enc.Encode(conv); err != nil {
				return err
			}
		}
		return w.Flush()
	})
	if err != nil {
		return "", &PersistenceError{Op: "save jsonl", Path: path, Cause: err}
	}

	s.logger.Info().Int("conversations", len(batch)).Str("path", path).Msg("Saved JSONL dataset")
	return path, nil
}

// LoadJSONL reads a line-delimited dataset back, preserving conversation
// order. A trailing newline is tolerated; a malformed line fails loudly
// rather than being skipped.
func (s *Store) LoadJSONL(path string) (conversation.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PersistenceError{Op: "load jsonl", Path: path, Cause: err}
	}
	defer f.Close()

	var batch conversation.Batch

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var conv conversation.Conversation
		if err := json.Unmarshal([]byte(line), &conv); err != nil {
			return nil, &PersistenceError{
				Op:    "load jsonl",
				Path:  path,
				Cause: fmt.Errorf("malformed line %d: %w", lineNo, err),
			}
		}
		batch = append(batch, conv)
	}
	if err := scanner.Err(); err != nil {
		return nil, &PersistenceError{Op: "load jsonl", Path: path, Cause: err}
	}

	s.logger.Info().Int("conversations", len(batch)).Str("path", path).Msg("Loaded JSONL dataset")
	return batch, nil
}
