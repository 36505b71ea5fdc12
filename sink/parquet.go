package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/processor"
	"github.com/roskit/mcap2table/rosmsg"
)

// ParquetSink writes one Parquet file per topic. Column types come from
// the table's cells; every column is nullable so missing cells survive
// the round trip.
type ParquetSink struct {
	dir          string
	log          *logging.ComponentLogger
	allocator    memory.Allocator
	filesWritten int64
	rowsWritten  int64
}

func NewParquetSink(dir string, log *logging.ComponentLogger) *ParquetSink {
	return &ParquetSink{
		dir:       dir,
		log:       log,
		allocator: memory.NewGoAllocator(),
	}
}

func (s *ParquetSink) WriteTable(ctx context.Context, table *processor.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	types := inferColumnTypes(table)
	schema := arrowSchemaFor(table.Columns, types)

	builder := array.NewRecordBuilder(s.allocator, schema)
	defer builder.Release()
	for _, row := range table.Rows {
		for i, cell := range row {
			appendCell(builder.Field(i), cell)
		}
	}
	record := builder.NewRecord()
	defer record.Release()

	path := filepath.Join(s.dir, TopicStem(table.Topic)+".parquet")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	props := parquet.NewWriterProperties(
		parquet.WithDictionaryDefault(true),
		parquet.WithCreatedBy("mcap2table"),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
	)
	writer, err := pqarrow.NewFileWriter(schema, f, props, arrowProps)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write parquet record: %w", err)
	}
	// Closing the writer finalizes the footer and the underlying file.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet file: %w", err)
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

func (s *ParquetSink) Close() error {
	s.log.Info().
		Int64("files_written", s.filesWritten).
		Int64("rows_written", s.rowsWritten).
		Msg("Closed parquet sink")
	return nil
}

func arrowSchemaFor(columns []string, types []columnType) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, name := range columns {
		fields[i] = arrow.Field{Name: name, Type: arrowType(types[i]), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t columnType) arrow.DataType {
	switch t {
	case colInt:
		return arrow.PrimitiveTypes.Int64
	case colUint:
		return arrow.PrimitiveTypes.Uint64
	case colFloat:
		return arrow.PrimitiveTypes.Float64
	case colBool:
		return arrow.FixedWidthTypes.Boolean
	}
	return arrow.BinaryTypes.String
}

func appendCell(b array.Builder, cell *rosmsg.Scalar) {
	if cell == nil {
		b.AppendNull()
		return
	}
	switch builder := b.(type) {
	case *array.Int64Builder:
		builder.Append(cell.Int())
	case *array.Uint64Builder:
		builder.Append(cell.Uint())
	case *array.Float64Builder:
		builder.Append(cell.Float())
	case *array.BooleanBuilder:
		builder.Append(cell.Bool())
	case *array.StringBuilder:
		builder.Append(cell.String())
	default:
		b.AppendNull()
	}
}
