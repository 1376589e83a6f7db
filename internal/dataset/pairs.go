package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/Caia-Tech/caia-datachef/pkg/conversation"
)

// PairInstruction is the fixed instruction column of the paired-QA export.
const PairInstruction = "Answer the user's question about the research paper."

// PairedRow is one row of the flat instruction/input/output view.
type PairedRow struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// PairedRows scans each conversation in non-overlapping adjacent pairs and
// emits a row only when the first turn is human and the second is gpt.
// Pairs not matching that pattern, and odd trailing turns, are silently
// skipped. This is a deliberate lossy simplification for paired-QA export:
// a conversation that does not start with a human turn can lose all its
// content.
func PairedRows(batch conversation.Batch) []PairedRow {
	var rows []PairedRow
	for _, conv := range batch {
		for i := 0; i+1 < len(conv); i += 2 {
			if conv[i].From != conversation.RoleHuman || conv[i+1].From != conversation.RoleGPT {
				continue
			}
			rows = append(rows, PairedRow{
				Instruction: PairInstruction,
				Input:       conv[i].Value,
				Output:      conv[i+1].Value,
			})
		}
	}
	return rows
}

// SaveCSV writes the paired-QA view as a CSV with a header row and returns
// the output path.
func (s *Store) SaveCSV(batch conversation.Batch, name string) (string, error) {
	path := filepath.Join(s.outputDir, name+".csv")
	rows := PairedRows(batch)

	err := s.atomicWrite(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write([]string{"instruction", "input", "output"}); err != nil {
			return err
		}
		for _, row := range rows {
			if err := w.Write([]string{row.Instruction, row.Input, row.Output}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
	if err != nil {
		return "", &PersistenceError{Op: "save csv", Path: path, Cause: err}
	}

	s.logger.Info().Int("rows", len(rows)).Str("path", path).Msg("Saved paired CSV dataset")
	return path, nil
}
