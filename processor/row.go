package processor

import "github.com/roskit/mcap2table/rosmsg"

// Row is one flattened record. Keys iterate in first-insertion order so
// column ordering stays deterministic across runs.
type Row struct {
	keys []string
	vals map[string]rosmsg.Scalar
}

func NewRow() *Row {
	return &Row{vals: make(map[string]rosmsg.Scalar)}
}

// Set inserts or overwrites a key. An overwritten key keeps its original
// position. It reports whether the key already existed.
func (r *Row) Set(key string, v rosmsg.Scalar) bool {
	_, exists := r.vals[key]
	if !exists {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
	return exists
}

func (r *Row) Get(key string) (rosmsg.Scalar, bool) {
	v, ok := r.vals[key]
	return v, ok
}

func (r *Row) Has(key string) bool {
	_, ok := r.vals[key]
	return ok
}

// Keys returns the row's keys in insertion order. The slice is shared;
// callers must not modify it.
func (r *Row) Keys() []string {
	return r.keys
}

func (r *Row) Len() int {
	return len(r.keys)
}
