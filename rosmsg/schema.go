package rosmsg

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeSpec describes one declared field type after normalization.
// Message type names are canonical "pkg/Name" regardless of how the
// definition spelled them.
type TypeSpec struct {
	Base      string
	Primitive bool
	Array     bool
	ArrayLen  int // fixed length; 0 with Array set means a length-prefixed sequence
}

func (t TypeSpec) String() string {
	if !t.Array {
		return t.Base
	}
	if t.ArrayLen > 0 {
		return fmt.Sprintf("%s[%d]", t.Base, t.ArrayLen)
	}
	return t.Base + "[]"
}

// FieldDef is one field declaration inside a message definition.
type FieldDef struct {
	Name string
	Type TypeSpec
}

// MessageDef is one parsed message definition.
type MessageDef struct {
	Name   string // canonical pkg/Name
	Fields []FieldDef
}

// Schema is a parsed ros2msg schema bundle: the root definition of the
// channel plus every dependent definition it carries.
type Schema struct {
	Root *MessageDef
	Defs map[string]*MessageDef
}

var primitiveTypes = map[string]struct{}{
	"bool": {}, "byte": {}, "char": {},
	"int8": {}, "uint8": {},
	"int16": {}, "uint16": {},
	"int32": {}, "uint32": {},
	"int64": {}, "uint64": {},
	"float32": {}, "float64": {},
	"string": {}, "wstring": {},
}

// ParseSchema parses a concatenated ros2msg schema as stored in a bag.
// name is the channel schema name, e.g. "nav_msgs/msg/Odometry"; data holds
// the root definition followed by dependent definitions separated by
// delimiter lines and "MSG: pkg/Type" headers.
func ParseSchema(name string, data []byte) (*Schema, error) {
	rootName := canonicalTypeName(name, "")
	if rootName == "" {
		return nil, fmt.Errorf("invalid schema name %q", name)
	}

	schema := &Schema{Defs: make(map[string]*MessageDef)}

	blockName := rootName
	var blockLines []string
	flush := func() error {
		def, err := parseDefinition(blockName, blockLines)
		if err != nil {
			return err
		}
		if schema.Root == nil {
			schema.Root = def
		}
		schema.Defs[def.Name] = def
		blockLines = blockLines[:0]
		return nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if isDelimiter(line) {
			if err := flush(); err != nil {
				return nil, err
			}
			blockName = ""
			continue
		}
		trimmed := strings.TrimSpace(line)
		if blockName == "" {
			if trimmed == "" {
				continue
			}
			rest, ok := strings.CutPrefix(trimmed, "MSG:")
			if !ok {
				return nil, fmt.Errorf("schema %s: expected MSG header, got %q", name, trimmed)
			}
			blockName = canonicalTypeName(strings.TrimSpace(rest), "")
			if blockName == "" {
				return nil, fmt.Errorf("schema %s: invalid MSG header %q", name, trimmed)
			}
			continue
		}
		blockLines = append(blockLines, line)
	}
	if blockName != "" {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	if schema.Root == nil {
		return nil, fmt.Errorf("schema %s: no root definition", name)
	}
	return schema, nil
}

// isDelimiter reports whether line is a block separator, a run of '='
// characters on its own line.
func isDelimiter(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 3 {
		return false
	}
	for i := 0; i < len(line); i++ {
		if line[i] != '=' {
			return false
		}
	}
	return true
}

func parseDefinition(name string, lines []string) (*MessageDef, error) {
	pkg := packageOf(name)
	def := &MessageDef{Name: name}
	for _, line := range lines {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens := strings.Fields(line)
		if len(tokens) < 2 {
			continue
		}
		// Constants like "uint8 DEBUG=10" are not fields.
		if strings.Contains(tokens[1], "=") {
			continue
		}
		if len(tokens) >= 3 && strings.HasPrefix(tokens[2], "=") {
			continue
		}
		spec, err := parseTypeSpec(tokens[0], pkg)
		if err != nil {
			return nil, fmt.Errorf("definition %s: %w", name, err)
		}
		def.Fields = append(def.Fields, FieldDef{Name: tokens[1], Type: spec})
	}
	return def, nil
}

func parseTypeSpec(raw, pkg string) (TypeSpec, error) {
	var spec TypeSpec
	base := raw
	if i := strings.IndexByte(base, '['); i >= 0 {
		arr := base[i:]
		base = base[:i]
		if !strings.HasSuffix(arr, "]") {
			return spec, fmt.Errorf("malformed array suffix in %q", raw)
		}
		spec.Array = true
		inner := arr[1 : len(arr)-1]
		inner = strings.TrimPrefix(inner, "<=")
		if inner != "" {
			n, err := strconv.Atoi(inner)
			if err != nil || n < 0 {
				return spec, fmt.Errorf("malformed array length in %q", raw)
			}
			if !strings.Contains(arr, "<=") {
				spec.ArrayLen = n
			}
		}
	}
	// Bounded strings carry their bound in the type token.
	if i := strings.Index(base, "<="); i >= 0 {
		base = base[:i]
	}
	if _, ok := primitiveTypes[base]; ok {
		spec.Base = base
		spec.Primitive = true
		return spec, nil
	}
	spec.Base = canonicalTypeName(base, pkg)
	if spec.Base == "" {
		return spec, fmt.Errorf("malformed type %q", raw)
	}
	return spec, nil
}

// canonicalTypeName maps the spellings a definition may use to "pkg/Name".
// "Header" is the conventional shorthand for std_msgs/Header; bare names
// resolve inside the referencing definition's package.
func canonicalTypeName(name, pkg string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if name == "Header" {
		return "std_msgs/Header"
	}
	parts := strings.Split(name, "/")
	switch len(parts) {
	case 1:
		if pkg == "" {
			return ""
		}
		return pkg + "/" + parts[0]
	case 2:
		return name
	case 3:
		return parts[0] + "/" + parts[2]
	}
	return ""
}

func packageOf(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return ""
}
