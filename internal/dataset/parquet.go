package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
)

// conversationRecord is the columnar export schema: the 0-based batch
// position and the JSON-encoded conversation in the external wire format.
type conversationRecord struct {
	ConversationID int64  `parquet:"conversation_id"`
	Conversation   string `parquet:"conversation"`
}

// SaveParquet writes one record per conversation to a Parquet file and
// returns the output path.
func (s *Store) SaveParquet(batch conversation.Batch, name string) (string, error) {
	path := filepath.Join(s.outputDir, name+".parquet")

	records := make([]conversationRecord, 0, len(batch))
	for i, conv := range batch {
		encoded, err := json.Marshal(conv)
		if err != nil {
			return "", &PersistenceError{Op: "save parquet", Path: path, Cause: err}
		}
		records = append(records, conversationRecord{
			ConversationID: int64(i),
			Conversation:   string(encoded),
		})
	}

	err := s.atomicWrite(path, func(f *os.File) error {
		w := parquet.NewGenericWriter[conversationRecord](f)
		if _, err := w.Write(records); err != nil {
			return err
		}
		return w.Close()
	})
	if err != nil {
		return "", &PersistenceError{Op: "save parquet", Path: path, Cause: err}
	}

	s.logger.Info().Int("conversations", len(batch)).Str("path", path).Msg("Saved Parquet dataset")
	return path, nil
}

// LoadParquet reads a columnar dataset back in conversation_id order.
func (s *Store) LoadParquet(path string) (conversation.Batch, error) {
	records, err := parquet.ReadFile[conversationRecord](path)
	if err != nil {
		return nil, &PersistenceError{Op: "load parquet", Path: path, Cause: err}
	}

	batch := make(conversation.Batch, len(records))
	for _, rec := range records {
		var conv conversation.Conversation
		if err := json.Unmarshal([]byte(rec.Conversation), &conv); err != nil {
			return nil, &PersistenceError{Op: "load parquet", Path: path, Cause: err}
		}
		if rec.ConversationID < 0 || rec.ConversationID >= int64(len(records)) {
			return nil, &PersistenceError{
				Op:    "load parquet",
				Path:  path,
				Cause: fmt.Errorf("conversation_id %d out of range", rec.ConversationID),
			}
		}
		batch[rec.ConversationID] = conv
	}
	return batch, nil
}
