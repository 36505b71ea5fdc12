package processor

import (
	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/rosmsg"
)

const (
	logTimestampNsKey = "log_timestamp_ns"
	logTimestampKey   = "log_timestamp"

	// rosoutTopic is the ROS2 logging channel, whose messages carry their
	// stamp at the top level instead of inside a header.
	rosoutTopic = "/rosout"
)

// Table is one topic's rectangular output. Columns are ordered; nil cells
// are missing values.
type Table struct {
	Topic   string
	Columns []string
	Rows    [][]*rosmsg.Scalar
}

// Assembler turns a topic's buffered rows into a Table.
type Assembler struct {
	log *logging.ComponentLogger
}

func NewAssembler(log *logging.ComponentLogger) *Assembler {
	return &Assembler{log: log}
}

// Assemble builds the column universe in first-seen order, replaces the
// raw nanosecond timestamp with log_timestamp in float seconds, applies
// the timestamp-first column ordering and fills every row out to the full
// width. Rows that never carried a nanosecond timestamp get a missing
// log_timestamp cell.
func (a *Assembler) Assemble(topic string, rows []*Row) *Table {
	seen := make(map[string]bool)
	var natural []string
	hasTimestamp := false
	for _, row := range rows {
		for _, k := range row.Keys() {
			if k == logTimestampNsKey {
				hasTimestamp = true
				continue
			}
			if !seen[k] {
				seen[k] = true
				natural = append(natural, k)
			}
		}
	}

	var columns []string
	if hasTimestamp {
		columns = append(columns, logTimestampKey)
		for _, c := range []string{"header.stamp.sec", "header.stamp.nanosec"} {
			if seen[c] {
				columns = append(columns, c)
			}
		}
		if topic == rosoutTopic {
			for _, c := range []string{"stamp.sec", "stamp.nanosec"} {
				if seen[c] {
					columns = append(columns, c)
				}
			}
		}
		lead := make(map[string]bool, len(columns))
		for _, c := range columns {
			lead[c] = true
		}
		for _, c := range natural {
			if !lead[c] {
				columns = append(columns, c)
			}
		}
	} else {
		a.log.Warn().
			Str("topic", topic).
			Str("column", logTimestampKey).
			Msg("Timestamp column missing, keeping natural column order")
		columns = natural
	}

	table := &Table{
		Topic:   topic,
		Columns: columns,
		Rows:    make([][]*rosmsg.Scalar, 0, len(rows)),
	}
	for _, row := range rows {
		cells := make([]*rosmsg.Scalar, len(columns))
		for i, col := range columns {
			if hasTimestamp && col == logTimestampKey {
				cells[i] = a.deriveTimestamp(topic, row)
				continue
			}
			if v, ok := row.Get(col); ok {
				cells[i] = &v
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// deriveTimestamp converts the injected nanosecond count to float seconds.
// Non-numeric values cannot be converted and leave the cell missing.
func (a *Assembler) deriveTimestamp(topic string, row *Row) *rosmsg.Scalar {
	ns, ok := row.Get(logTimestampNsKey)
	if !ok {
		return nil
	}
	f, ok := ns.AsFloat()
	if !ok {
		a.log.Debug().
			Str("topic", topic).
			Str("kind", ns.Kind().String()).
			Msg("Non-numeric log_timestamp_ns, leaving timestamp cell missing")
		return nil
	}
	s := rosmsg.FloatScalar(f / 1e9)
	return &s
}
