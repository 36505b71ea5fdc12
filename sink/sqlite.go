package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/processor"
	"github.com/roskit/mcap2table/rosmsg"
)

// SQLiteSink writes every topic into one SQLite database file named after
// the bag, one table per topic plus an export_runs bookkeeping table.
type SQLiteSink struct {
	db            *sql.DB
	path          string
	bag           string
	runID         string
	log           *logging.ComponentLogger
	tablesWritten int
	rowsWritten   int64
}

func NewSQLiteSink(dir, bagName, runID string, log *logging.ComponentLogger) (*SQLiteSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, bagName+".sqlite")
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteSink{db: db, path: path, bag: bagName, runID: runID, log: log}
	if err := s.startRun(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("Opened sqlite database")
	return s, nil
}

func (s *SQLiteSink) startRun() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS export_runs (
		run_id TEXT PRIMARY KEY,
		bag TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		tables_written INTEGER,
		rows_written INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("failed to create export_runs table: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO export_runs (run_id, bag, started_at) VALUES (?, ?, ?)`,
		s.runID, s.bag, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record export run: %w", err)
	}
	return nil
}

func (s *SQLiteSink) WriteTable(ctx context.Context, table *processor.Table) error {
	name := TopicStem(table.Topic)
	types := inferColumnTypes(table)

	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = fmt.Sprintf("%q %s", c, sqliteType(types[i]))
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", name)); err != nil {
		return fmt.Errorf("failed to drop stale table %s: %w", name, err)
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", name, strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(table.Columns)), ",")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %q VALUES (%s)", name, placeholders))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	for _, row := range table.Rows {
		args := make([]any, len(row))
		for i, cell := range row {
			args[i] = sqlValue(cell, types[i])
		}
		if _, err := stmt.Exec(args...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to insert row into %s: %w", name, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table %s: %w", name, err)
	}

	s.tablesWritten++
	s.rowsWritten += int64(len(table.Rows))
	s.log.Info().
		Str("topic", table.Topic).
		Str("table", name).
		Int("rows", len(table.Rows)).
		Int("columns", len(table.Columns)).
		Msg("Wrote topic table")
	return nil
}

func (s *SQLiteSink) Close() error {
	_, err := s.db.Exec(
		`UPDATE export_runs SET finished_at = ?, tables_written = ?, rows_written = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339), s.tablesWritten, s.rowsWritten, s.runID,
	)
	if err != nil {
		s.db.Close()
		return fmt.Errorf("failed to finalize export run: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite database: %w", err)
	}
	s.log.Info().
		Str("path", s.path).
		Int("tables_written", s.tablesWritten).
		Int64("rows_written", s.rowsWritten).
		Msg("Closed sqlite sink")
	return nil
}

func sqliteType(t columnType) string {
	switch t {
	case colInt, colUint:
		return "INTEGER"
	case colFloat:
		return "REAL"
	case colBool:
		return "BOOLEAN"
	}
	return "TEXT"
}

// sqlValue converts a cell for driver binding. Missing cells become NULL.
func sqlValue(cell *rosmsg.Scalar, t columnType) any {
	if cell == nil {
		return nil
	}
	switch t {
	case colInt:
		return cell.Int()
	case colUint:
		return int64(cell.Uint())
	case colFloat:
		return cell.Float()
	case colBool:
		return cell.Bool()
	}
	return cell.String()
}
