package rosmsg

import (
	"encoding/binary"
	"math"
	"testing"
)

// cdrPayload builds little-endian CDR test payloads, mirroring the
// alignment rules the decoder applies after the 4-byte header.
type cdrPayload struct {
	b []byte
}

func newCDRPayload() *cdrPayload {
	return &cdrPayload{b: []byte{0x00, 0x01, 0x00, 0x00}}
}

func (c *cdrPayload) align(n int) {
	for (len(c.b)-4)%n != 0 {
		c.b = append(c.b, 0)
	}
}

func (c *cdrPayload) u8(v byte) {
	c.b = append(c.b, v)
}

func (c *cdrPayload) u16(v uint16) {
	c.align(2)
	c.b = binary.LittleEndian.AppendUint16(c.b, v)
}

func (c *cdrPayload) u32(v uint32) {
	c.align(4)
	c.b = binary.LittleEndian.AppendUint32(c.b, v)
}

func (c *cdrPayload) u64(v uint64) {
	c.align(8)
	c.b = binary.LittleEndian.AppendUint64(c.b, v)
}

func (c *cdrPayload) f32(v float32) { c.u32(math.Float32bits(v)) }
func (c *cdrPayload) f64(v float64) { c.u64(math.Float64bits(v)) }

func (c *cdrPayload) str(s string) {
	c.u32(uint32(len(s) + 1))
	c.b = append(c.b, s...)
	c.b = append(c.b, 0)
}

func mustParseSchema(t *testing.T, name, data string) *Schema {
	t.Helper()
	schema, err := ParseSchema(name, []byte(data))
	if err != nil {
		t.Fatalf("ParseSchema(%s) failed: %v", name, err)
	}
	return schema
}

func fieldValue(t *testing.T, msg *Message, name string) Value {
	t.Helper()
	for _, f := range msg.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("message %s has no field %q", msg.Type, name)
	return Value{}
}

func TestDecodePrimitives(t *testing.T) {
	schema := mustParseSchema(t, "test_msgs/msg/Primitives", `bool flag
int8 tiny
uint16 medium
int32 count
float32 ratio
float64 precise
string label
int64 big
uint64 huge
`)

	p := newCDRPayload()
	p.u8(1)
	p.u8(0x80) // int8 -128
	p.u16(65535)
	p.u32(uint32(0xFFFFFFFF)) // int32 -1
	p.f32(0.5)
	p.f64(-2.25)
	p.str("base_link")
	p.u64(uint64(0x8000000000000000)) // int64 min
	p.u64(math.MaxUint64)

	msg, err := DecodeMessage(schema, p.b)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	checks := []struct {
		field string
		want  Scalar
	}{
		{"flag", BoolScalar(true)},
		{"tiny", IntScalar(-128)},
		{"medium", UintScalar(65535)},
		{"count", IntScalar(-1)},
		{"ratio", FloatScalar(0.5)},
		{"precise", FloatScalar(-2.25)},
		{"label", StringScalar("base_link")},
		{"big", IntScalar(math.MinInt64)},
		{"huge", UintScalar(math.MaxUint64)},
	}
	for _, c := range checks {
		v := fieldValue(t, msg, c.field)
		if v.Kind != ValueScalar {
			t.Errorf("field %q kind = %d, want scalar", c.field, v.Kind)
			continue
		}
		if v.Scalar != c.want {
			t.Errorf("field %q = %+v, want %+v", c.field, v.Scalar, c.want)
		}
	}
}

func TestDecodeBigEndian(t *testing.T) {
	schema := mustParseSchema(t, "test_msgs/msg/BE", "uint32 value\n")

	payload := []byte{0x00, 0x00, 0x00, 0x00}
	payload = binary.BigEndian.AppendUint32(payload, 0xDEADBEEF)

	msg, err := DecodeMessage(schema, payload)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	v := fieldValue(t, msg, "value")
	if v.Scalar.Uint() != 0xDEADBEEF {
		t.Errorf("value = %#x, want 0xDEADBEEF", v.Scalar.Uint())
	}
}

func TestDecodeNestedAndAligned(t *testing.T) {
	schema := mustParseSchema(t, "test_msgs/msg/Stamped", `std_msgs/Header header
float64 reading
================================================================================
MSG: std_msgs/Header
builtin_interfaces/Time stamp
string frame_id
================================================================================
MSG: builtin_interfaces/Time
int32 sec
uint32 nanosec
`)

	p := newCDRPayload()
	p.u32(1700000000)
	p.u32(500)
	p.str("odom")
	p.f64(3.75) // forces 8-byte alignment after an odd string length

	msg, err := DecodeMessage(schema, p.b)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	header := fieldValue(t, msg, "header")
	if header.Kind != ValueMessage {
		t.Fatalf("header kind = %d, want message", header.Kind)
	}
	stamp := fieldValue(t, header.Msg, "stamp")
	if stamp.Kind != ValueMessage {
		t.Fatalf("stamp kind = %d, want message", stamp.Kind)
	}
	if got := fieldValue(t, stamp.Msg, "sec").Scalar.Int(); got != 1700000000 {
		t.Errorf("stamp.sec = %d, want 1700000000", got)
	}
	if got := fieldValue(t, stamp.Msg, "nanosec").Scalar.Uint(); got != 500 {
		t.Errorf("stamp.nanosec = %d, want 500", got)
	}
	if got := fieldValue(t, header.Msg, "frame_id").Scalar.Str(); got != "odom" {
		t.Errorf("frame_id = %q, want odom", got)
	}
	if got := fieldValue(t, msg, "reading").Scalar.Float(); got != 3.75 {
		t.Errorf("reading = %v, want 3.75", got)
	}
}

func TestDecodeArraysAndSequences(t *testing.T) {
	schema := mustParseSchema(t, "test_msgs/msg/Arrays", `float64[3] fixed
int32[] seq
string[] names
test_msgs/Point[] points
================================================================================
MSG: test_msgs/Point
float64 x
float64 y
`)

	p := newCDRPayload()
	p.f64(1.0)
	p.f64(2.0)
	p.f64(3.0)
	p.u32(2) // seq length
	p.u32(10)
	p.u32(20)
	p.u32(2) // names length
	p.str("a")
	p.str("bc")
	p.u32(1) // points length
	p.f64(0.5)
	p.f64(-0.5)

	msg, err := DecodeMessage(schema, p.b)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	fixed := fieldValue(t, msg, "fixed")
	if fixed.Kind != ValueScalarArray || len(fixed.Scalars) != 3 {
		t.Fatalf("fixed = %+v, want 3 scalars", fixed)
	}
	if fixed.Scalars[2].Float() != 3.0 {
		t.Errorf("fixed[2] = %v, want 3.0", fixed.Scalars[2].Float())
	}

	seq := fieldValue(t, msg, "seq")
	if seq.Kind != ValueScalarArray || len(seq.Scalars) != 2 {
		t.Fatalf("seq = %+v, want 2 scalars", seq)
	}
	if seq.Scalars[1].Int() != 20 {
		t.Errorf("seq[1] = %d, want 20", seq.Scalars[1].Int())
	}

	names := fieldValue(t, msg, "names")
	if names.Kind != ValueScalarArray || len(names.Scalars) != 2 {
		t.Fatalf("names = %+v, want 2 scalars", names)
	}
	if names.Scalars[1].Str() != "bc" {
		t.Errorf("names[1] = %q, want bc", names.Scalars[1].Str())
	}

	points := fieldValue(t, msg, "points")
	if points.Kind != ValueMessageArray || len(points.Msgs) != 1 {
		t.Fatalf("points = %+v, want 1 message", points)
	}
	if got := fieldValue(t, points.Msgs[0], "y").Scalar.Float(); got != -0.5 {
		t.Errorf("points[0].y = %v, want -0.5", got)
	}
}

func TestDecodeByteBlobsAreUnsupported(t *testing.T) {
	schema := mustParseSchema(t, "test_msgs/msg/Image", `uint8[] data
uint8[4] magic
int32 after
`)

	p := newCDRPayload()
	p.u32(3)
	p.u8(1)
	p.u8(2)
	p.u8(3)
	p.u8(9) // fixed blob, 4 bytes, no length prefix
	p.u8(9)
	p.u8(9)
	p.u8(9)
	p.u32(42)

	msg, err := DecodeMessage(schema, p.b)
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}

	data := fieldValue(t, msg, "data")
	if data.Kind != ValueUnsupported || data.TypeName != "uint8[]" {
		t.Errorf("data = %+v, want unsupported uint8[]", data)
	}
	magic := fieldValue(t, msg, "magic")
	if magic.Kind != ValueUnsupported || magic.TypeName != "uint8[4]" {
		t.Errorf("magic = %+v, want unsupported uint8[4]", magic)
	}
	// The blobs must still be consumed so later fields stay aligned.
	if got := fieldValue(t, msg, "after").Scalar.Int(); got != 42 {
		t.Errorf("after = %d, want 42", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	schema := mustParseSchema(t, "test_msgs/msg/Simple", "int64 value\n")

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", nil},
		{"header only", []byte{0x00, 0x01, 0x00, 0x00}},
		{"truncated value", []byte{0x00, 0x01, 0x00, 0x00, 0x01, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeMessage(schema, tt.payload); err == nil {
				t.Errorf("DecodeMessage succeeded, want error")
			}
		})
	}

	t.Run("oversized sequence", func(t *testing.T) {
		seqSchema := mustParseSchema(t, "test_msgs/msg/Seq", "int32[] values\n")
		p := newCDRPayload()
		p.u32(0xFFFFFF00)
		if _, err := DecodeMessage(seqSchema, p.b); err == nil {
			t.Errorf("DecodeMessage succeeded, want sequence length error")
		}
	})

	t.Run("missing nested definition", func(t *testing.T) {
		badSchema := mustParseSchema(t, "test_msgs/msg/Bad", "other_msgs/Missing field\n")
		p := newCDRPayload()
		p.u32(0)
		if _, err := DecodeMessage(badSchema, p.b); err == nil {
			t.Errorf("DecodeMessage succeeded, want missing definition error")
		}
	})
}

func TestScalarString(t *testing.T) {
	tests := []struct {
		name string
		in   Scalar
		want string
	}{
		{"integral float keeps decimal", FloatScalar(1), "1.0"},
		{"fractional float", FloatScalar(0.25), "0.25"},
		{"float32 artifact preserved", FloatScalar(float64(float32(0.1))), "0.10000000149011612"},
		{"large float uses exponent", FloatScalar(1e20), "1e+20"},
		{"scientific starts at 1e16", FloatScalar(1e16), "1e+16"},
		{"just below stays fixed", FloatScalar(9999999999999998), "9999999999999998.0"},
		{"small magnitude stays fixed", FloatScalar(0.0001), "0.0001"},
		{"tiny uses exponent", FloatScalar(0.00001), "1e-05"},
		{"negative zero", FloatScalar(math.Copysign(0, -1)), "-0.0"},
		{"nan is empty", FloatScalar(math.NaN()), ""},
		{"positive infinity", FloatScalar(math.Inf(1)), "inf"},
		{"negative infinity", FloatScalar(math.Inf(-1)), "-inf"},
		{"bool true", BoolScalar(true), "True"},
		{"bool false", BoolScalar(false), "False"},
		{"int", IntScalar(-42), "-42"},
		{"uint", UintScalar(18446744073709551615), "18446744073709551615"},
		{"string passthrough", StringScalar("laser"), "laser"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
