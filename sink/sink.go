package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/processor"
)

// Supported output formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatSQLite  = "sqlite"
	FormatDuckDB  = "duckdb"
)

// Sink receives one assembled table per topic. WriteTable is called once
// per topic after the whole bag has been consumed; Close flushes whatever
// the format buffers.
type Sink interface {
	WriteTable(ctx context.Context, table *processor.Table) error
	Close() error
}

// Options configure a sink.
type Options struct {
	Format      string
	Directory   string
	Compression string // csv only
	BagName     string // database file stem for the sql formats
	RunID       string
}

// New builds the sink for opts.Format.
func New(opts Options, log *logging.ComponentLogger) (Sink, error) {
	switch opts.Format {
	case FormatCSV:
		return NewCSVSink(opts.Directory, opts.Compression, log)
	case FormatParquet:
		return NewParquetSink(opts.Directory, log), nil
	case FormatSQLite:
		return NewSQLiteSink(opts.Directory, opts.BagName, opts.RunID, log)
	case FormatDuckDB:
		return NewDuckDBSink(opts.Directory, opts.BagName, opts.RunID, log)
	}
	return nil, fmt.Errorf("unsupported output format %q", opts.Format)
}

// TopicStem converts a topic name into a file or table stem: slashes
// become underscores and leading or trailing underscores are trimmed,
// so /camera/image_raw becomes camera_image_raw.
func TopicStem(topic string) string {
	stem := strings.ReplaceAll(topic, "/", "_")
	stem = strings.Trim(stem, "_")
	if stem == "" {
		return "topic"
	}
	return stem
}
