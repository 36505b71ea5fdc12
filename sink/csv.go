package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/processor"
)

// CSVSink writes one CSV file per topic into a directory. Missing cells
// are written as empty fields, matching how a null cell reads back.
type CSVSink struct {
	dir          string
	compression  string
	log          *logging.ComponentLogger
	filesWritten int
	rowsWritten  int64
}

func NewCSVSink(dir, compression string, log *logging.ComponentLogger) (*CSVSink, error) {
	if !ValidCompression(compression) {
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &CSVSink{dir: dir, compression: compression, log: log}, nil
}

func (s *CSVSink) WriteTable(ctx context.Context, table *processor.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := TopicStem(table.Topic) + ".csv" + compressExt(s.compression)
	path := filepath.Join(s.dir, name)

	out, err := createCompressed(path, s.compression)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)
	if err := w.Write(table.Columns); err != nil {
		out.Close()
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, cell := range row {
			if cell != nil {
				record[i] = cell.String()
			} else {
				record[i] = ""
			}
		}
		if err := w.Write(record); err != nil {
			out.Close()
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	s.filesWritten++
	s.rowsWritten += int64(len(table.Rows))
	s.log.Info().
		Str("topic", table.Topic).
		Str("path", path).
		Int("rows", len(table.Rows)).
		Int("columns", len(table.Columns)).
		Msg("Wrote topic table")
	return nil
}

func (s *CSVSink) Close() error {
	s.log.Info().
		Int("files_written", s.filesWritten).
		Int64("rows_written", s.rowsWritten).
		Msg("Closed csv sink")
	return nil
}
