package dataset

import "github.com/Caia-Tech/caia-datachef/pkg/conversation"

// Format names accepted by SaveAll.
const (
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
	FormatCSV     = "csv"
	FormatDF      = "df" // in-memory paired view, no file written
)

// Outputs collects everything SaveAll produced from one batch.
type Outputs struct {
	// Files maps format name to written path.
	Files map[string]string

	// Pairs is the paired-QA view, populated when "df" or "csv" was
	// requested. Both derive from the same scan; the batch is not
	// re-walked per format.
	Pairs []PairedRow
}

// SaveAll produces every requested format from one in-memory batch.
// Unknown format names are ignored. The first persistence failure aborts
// the remaining formats and propagates; formats already written stay on
// disk and are reported in the returned Outputs.
func (s *Store) SaveAll(batch conversation.Batch, baseName string, formats []string) (*Outputs, error) {
	out := &Outputs{Files: make(map[string]string)}

	requested := make(map[string]bool, len(formats))
	for _, f := range formats {
		requested[f] = true
	}

	if requested[FormatJSONL] {
		path, err := s.SaveJSONL(batch, baseName)
		if err != nil {
			return out, err
		}
		out.Files[FormatJSONL] = path
	}

	if requested[FormatParquet] {
		path, err := s.SaveParquet(batch, baseName)
		if err != nil {
			return out, err
		}
		out.Files[FormatParquet] = path
	}

	if requested[FormatDF] || requested[FormatCSV] {
		out.Pairs = PairedRows(batch)

		if requested[FormatCSV] {
			path, err := s.SaveCSV(batch, baseName)
			if err != nil {
				return out, err
			}
			out.Files[FormatCSV] = path
		}
	}

	return out, nil
}
