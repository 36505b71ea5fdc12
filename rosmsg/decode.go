package rosmsg

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
)

// maxNesting bounds recursion while decoding so a self-referencing
// definition cannot loop forever on an empty payload slice.
const maxNesting = 64

// DecodeMessage decodes a CDR-encapsulated payload against a parsed schema.
// The first four payload bytes are the encapsulation header; byte 1 selects
// the endianness of everything that follows.
func DecodeMessage(schema *Schema, payload []byte) (*Message, error) {
	if schema == nil || schema.Root == nil {
		return nil, fmt.Errorf("nil schema")
	}
	if len(payload) < 4 {
		return nil, fmt.Errorf("cdr payload too short: %d bytes", len(payload))
	}
	d := &cdrDecoder{buf: payload[4:], schema: schema}
	if payload[1]&0x01 == 0x01 {
		d.order = binary.LittleEndian
	} else {
		d.order = binary.BigEndian
	}
	return d.decodeStruct(schema.Root)
}

type cdrDecoder struct {
	buf    []byte
	pos    int
	order  binary.ByteOrder
	schema *Schema
	depth  int
}

// align pads to an n-byte boundary measured from the end of the
// encapsulation header, which is where buf starts.
func (d *cdrDecoder) align(n int) {
	if rem := d.pos % n; rem != 0 {
		d.pos += n - rem
	}
}

func (d *cdrDecoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return fmt.Errorf("cdr buffer underrun at offset %d, need %d of %d bytes", d.pos, n, len(d.buf))
	}
	return nil
}

func (d *cdrDecoder) u8() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *cdrDecoder) u16() (uint16, error) {
	d.align(2)
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := d.order.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *cdrDecoder) u32() (uint32, error) {
	d.align(4)
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := d.order.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *cdrDecoder) u64() (uint64, error) {
	d.align(8)
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := d.order.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// str reads a length-prefixed string. The declared length counts the
// terminating NUL, which is stripped from the result.
func (d *cdrDecoder) str() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	if err := d.need(int(n)); err != nil {
		return "", err
	}
	b := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// wstr reads a wide string: a code-unit count followed by UTF-16 text.
func (d *cdrDecoder) wstr() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	if err := d.need(int(n) * 2); err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = d.order.Uint16(d.buf[d.pos:])
		d.pos += 2
	}
	if len(units) > 0 && units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return string(utf16.Decode(units)), nil
}

func (d *cdrDecoder) decodeStruct(def *MessageDef) (*Message, error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > maxNesting {
		return nil, fmt.Errorf("message nesting exceeds %d levels", maxNesting)
	}

	msg := &Message{Type: def.Name, Fields: make([]Field, 0, len(def.Fields))}
	for _, fd := range def.Fields {
		v, err := d.decodeValue(fd.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", def.Name, fd.Name, err)
		}
		msg.Fields = append(msg.Fields, Field{Name: fd.Name, Value: v})
	}
	return msg, nil
}

func (d *cdrDecoder) decodeValue(t TypeSpec) (Value, error) {
	if t.Array {
		return d.decodeArray(t)
	}
	if t.Primitive {
		s, err := d.decodeScalar(t.Base)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueScalar, Scalar: s}, nil
	}
	def, ok := d.schema.Defs[t.Base]
	if !ok {
		return Value{}, fmt.Errorf("no definition for type %s", t.Base)
	}
	msg, err := d.decodeStruct(def)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: ValueMessage, Msg: msg}, nil
}

func (d *cdrDecoder) decodeArray(t TypeSpec) (Value, error) {
	count := t.ArrayLen
	if count == 0 {
		n, err := d.u32()
		if err != nil {
			return Value{}, err
		}
		if int(n) > len(d.buf) {
			return Value{}, fmt.Errorf("sequence length %d exceeds payload size %d", n, len(d.buf))
		}
		count = int(n)
	}

	// Byte blobs are consumed but carried as unsupported: they have no
	// scalar cell representation in a flat table.
	if t.Base == "uint8" || t.Base == "byte" {
		if err := d.need(count); err != nil {
			return Value{}, err
		}
		d.pos += count
		return Value{Kind: ValueUnsupported, TypeName: t.String()}, nil
	}

	if t.Primitive {
		scalars := make([]Scalar, 0, count)
		for i := 0; i < count; i++ {
			s, err := d.decodeScalar(t.Base)
			if err != nil {
				return Value{}, err
			}
			scalars = append(scalars, s)
		}
		return Value{Kind: ValueScalarArray, Scalars: scalars}, nil
	}

	def, ok := d.schema.Defs[t.Base]
	if !ok {
		return Value{}, fmt.Errorf("no definition for type %s", t.Base)
	}
	msgs := make([]*Message, 0, count)
	for i := 0; i < count; i++ {
		m, err := d.decodeStruct(def)
		if err != nil {
			return Value{}, err
		}
		msgs = append(msgs, m)
	}
	return Value{Kind: ValueMessageArray, Msgs: msgs}, nil
}

func (d *cdrDecoder) decodeScalar(base string) (Scalar, error) {
	switch base {
	case "bool":
		b, err := d.u8()
		if err != nil {
			return Scalar{}, err
		}
		return BoolScalar(b != 0), nil
	case "int8":
		b, err := d.u8()
		if err != nil {
			return Scalar{}, err
		}
		return IntScalar(int64(int8(b))), nil
	case "uint8", "byte", "char":
		b, err := d.u8()
		if err != nil {
			return Scalar{}, err
		}
		return UintScalar(uint64(b)), nil
	case "int16":
		v, err := d.u16()
		if err != nil {
			return Scalar{}, err
		}
		return IntScalar(int64(int16(v))), nil
	case "uint16":
		v, err := d.u16()
		if err != nil {
			return Scalar{}, err
		}
		return UintScalar(uint64(v)), nil
	case "int32":
		v, err := d.u32()
		if err != nil {
			return Scalar{}, err
		}
		return IntScalar(int64(int32(v))), nil
	case "uint32":
		v, err := d.u32()
		if err != nil {
			return Scalar{}, err
		}
		return UintScalar(uint64(v)), nil
	case "int64":
		v, err := d.u64()
		if err != nil {
			return Scalar{}, err
		}
		return IntScalar(int64(v)), nil
	case "uint64":
		v, err := d.u64()
		if err != nil {
			return Scalar{}, err
		}
		return UintScalar(v), nil
	case "float32":
		v, err := d.u32()
		if err != nil {
			return Scalar{}, err
		}
		return FloatScalar(float64(math.Float32frombits(v))), nil
	case "float64":
		v, err := d.u64()
		if err != nil {
			return Scalar{}, err
		}
		return FloatScalar(math.Float64frombits(v)), nil
	case "string":
		s, err := d.str()
		if err != nil {
			return Scalar{}, err
		}
		return StringScalar(s), nil
	case "wstring":
		s, err := d.wstr()
		if err != nil {
			return Scalar{}, err
		}
		return StringScalar(s), nil
	}
	return Scalar{}, fmt.Errorf("unknown primitive type %q", base)
}
