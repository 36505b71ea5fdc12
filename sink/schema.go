package sink

import (
	"github.com/roskit/mcap2table/processor"
	"github.com/roskit/mcap2table/rosmsg"
)

// columnType classifies one table column for the typed sinks.
type columnType int

const (
	colText columnType = iota
	colInt
	colUint
	colFloat
	colBool
)

// inferColumnTypes picks a storage type per column. A column whose
// present cells all share one scalar kind keeps that kind; mixed or
// entirely missing columns store as text. Topic schemas are static, so
// in practice only key collisions produce mixed columns.
func inferColumnTypes(table *processor.Table) []columnType {
	types := make([]columnType, len(table.Columns))
	for col := range table.Columns {
		var kind rosmsg.ScalarKind
		seen := false
		mixed := false
		for _, row := range table.Rows {
			cell := row[col]
			if cell == nil {
				continue
			}
			if !seen {
				kind = cell.Kind()
				seen = true
				continue
			}
			if cell.Kind() != kind {
				mixed = true
				break
			}
		}
		if !seen || mixed {
			types[col] = colText
			continue
		}
		switch kind {
		case rosmsg.KindInt:
			types[col] = colInt
		case rosmsg.KindUint:
			types[col] = colUint
		case rosmsg.KindFloat:
			types[col] = colFloat
		case rosmsg.KindBool:
			types[col] = colBool
		default:
			types[col] = colText
		}
	}
	return types
}
