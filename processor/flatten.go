package processor

import (
	"strconv"

	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/rosmsg"
)

// Flattener converts decoded messages into flat rows. Nested messages
// extend the key with a dot, array elements with a bracketed index, so
// pose.pose.position.x and ranges[3] name exactly one scalar each.
type Flattener struct {
	log *logging.ComponentLogger
}

func NewFlattener(log *logging.ComponentLogger) *Flattener {
	return &Flattener{log: log}
}

// Flatten writes every supported leaf of msg into row under prefix.
// Existing keys are overwritten in place. A message carrying a bare
// scalar contributes a single cell keyed by the prefix itself.
func (f *Flattener) Flatten(msg *rosmsg.Message, prefix string, row *Row) {
	if msg == nil {
		return
	}
	if msg.Bare != nil {
		if prefix != "" {
			f.set(row, prefix, *msg.Bare)
		}
		return
	}
	for _, field := range msg.Fields {
		key := field.Name
		if prefix != "" {
			key = prefix + "." + field.Name
		}
		f.flattenValue(field.Value, key, row)
	}
}

func (f *Flattener) flattenValue(v rosmsg.Value, key string, row *Row) {
	switch v.Kind {
	case rosmsg.ValueScalar:
		f.set(row, key, v.Scalar)
	case rosmsg.ValueScalarArray:
		for i, s := range v.Scalars {
			f.set(row, key+"["+strconv.Itoa(i)+"]", s)
		}
	case rosmsg.ValueMessage:
		f.Flatten(v.Msg, key, row)
	case rosmsg.ValueMessageArray:
		for i, m := range v.Msgs {
			f.Flatten(m, key+"["+strconv.Itoa(i)+"]", row)
		}
	case rosmsg.ValueUnsupported:
		f.log.Debug().
			Str("key", key).
			Str("type", v.TypeName).
			Msg("Skipping unsupported field type")
	}
}

func (f *Flattener) set(row *Row, key string, v rosmsg.Scalar) {
	if row.Set(key, v) {
		f.log.Debug().Str("key", key).Msg("Flat key collision, keeping last value")
	}
}
