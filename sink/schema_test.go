package sink

import (
	"testing"

	"github.com/roskit/mcap2table/processor"
	"github.com/roskit/mcap2table/rosmsg"
)

func cell(s rosmsg.Scalar) *rosmsg.Scalar { return &s }

func TestInferColumnTypes(t *testing.T) {
	table := &processor.Table{
		Topic:   "/status",
		Columns: []string{"ts", "count", "seq", "ok", "name", "mixed", "empty"},
		Rows: [][]*rosmsg.Scalar{
			{
				cell(rosmsg.FloatScalar(1.5)),
				cell(rosmsg.IntScalar(-3)),
				cell(rosmsg.UintScalar(7)),
				cell(rosmsg.BoolScalar(true)),
				cell(rosmsg.StringScalar("a")),
				cell(rosmsg.IntScalar(1)),
				nil,
			},
			{
				cell(rosmsg.FloatScalar(2.5)),
				cell(rosmsg.IntScalar(4)),
				nil,
				cell(rosmsg.BoolScalar(false)),
				cell(rosmsg.StringScalar("b")),
				cell(rosmsg.StringScalar("oops")),
				nil,
			},
		},
	}

	got := inferColumnTypes(table)
	want := []columnType{colFloat, colInt, colUint, colBool, colText, colText, colText}
	if len(got) != len(want) {
		t.Fatalf("inferColumnTypes returned %d types, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %s: type = %d, want %d", table.Columns[i], got[i], want[i])
		}
	}
}

func TestStorageTypeNames(t *testing.T) {
	tests := []struct {
		ct         columnType
		wantSQLite string
		wantDuck   string
	}{
		{colInt, "INTEGER", "BIGINT"},
		{colUint, "INTEGER", "UBIGINT"},
		{colFloat, "REAL", "DOUBLE"},
		{colBool, "BOOLEAN", "BOOLEAN"},
		{colText, "TEXT", "VARCHAR"},
	}
	for _, tt := range tests {
		if got := sqliteType(tt.ct); got != tt.wantSQLite {
			t.Errorf("sqliteType(%d) = %q, want %q", tt.ct, got, tt.wantSQLite)
		}
		if got := duckdbType(tt.ct); got != tt.wantDuck {
			t.Errorf("duckdbType(%d) = %q, want %q", tt.ct, got, tt.wantDuck)
		}
	}
}

func TestValueBinding(t *testing.T) {
	if got := sqlValue(nil, colInt); got != nil {
		t.Errorf("sqlValue(nil) = %v, want nil", got)
	}
	if got := duckdbValue(nil, colText); got != nil {
		t.Errorf("duckdbValue(nil) = %v, want nil", got)
	}

	// SQLite has no unsigned integer type, so uints bind as int64.
	big := cell(rosmsg.UintScalar(1_700_000_000_500_000_000))
	if got, ok := sqlValue(big, colUint).(int64); !ok || got != 1_700_000_000_500_000_000 {
		t.Errorf("sqlValue(uint) = %v (%T), want int64", sqlValue(big, colUint), sqlValue(big, colUint))
	}
	if got, ok := duckdbValue(big, colUint).(uint64); !ok || got != 1_700_000_000_500_000_000 {
		t.Errorf("duckdbValue(uint) = %v (%T), want uint64", duckdbValue(big, colUint), duckdbValue(big, colUint))
	}

	// Text columns hold the same rendering the csv sink writes.
	f := cell(rosmsg.FloatScalar(1))
	if got := sqlValue(f, colText); got != "1.0" {
		t.Errorf("sqlValue(float as text) = %v, want \"1.0\"", got)
	}
}
