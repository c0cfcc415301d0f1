// Package schema defines the per-device-model property tables: field
// name, wire base-type tag, read-only flag, default, and the
// encode/decode/parse/format function pointers used to move a value
// between the device wire protocol, the MQTT topic tree, and the
// in-process property mirror. Tables are static data, built once at
// package init — there is no dataclass reflection here, only named
// functions.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// BaseType is the wire tag attached to a property when it is sent to the
// appliance inside a "properties" set-request.
type BaseType string

const (
	BaseTypeBoolean BaseType = "boolean"
	BaseTypeInteger BaseType = "integer"
	BaseTypeDecimal BaseType = "decimal"
)

// Value is the canonical, dynamically-typed value held in a property
// mirror slot — always the concrete Go type named by the Field that
// produced it (schema.Power, int, float64, bool, ...).
type Value interface{}

// Field is one static entry in a model's property table.
type Field struct {
	Name     string
	BaseType BaseType
	ReadOnly bool
	// Default is the value a freshly-created mirror holds before the
	// appliance has reported anything. A nil Default (e.g. t_control_value)
	// means "not yet known" and is treated as absent by callers that test
	// for presence, matching the source's None-as-unset convention.
	Default Value

	// DecodeWire converts a value already JSON-unmarshaled from an
	// incoming device update (float64, bool, or numeric string) into
	// canonical form.
	DecodeWire func(raw interface{}) (Value, error)
	// EncodeWire converts a canonical value into the representation used
	// when building an outgoing "properties" set-request value.
	EncodeWire func(v Value) interface{}
	// ParseText converts a human-entered string — a home-automation query
	// value, or an already-uppercased MQTT command payload — into
	// canonical form. Enum fields parse by name; scalar fields parse
	// numerically.
	ParseText func(s string) (Value, error)
	// FormatText converts a canonical value into the lowercase string
	// published on the MQTT status topic, including the legacy
	// "fan_only" rewrite for the two FAN work-mode enums.
	FormatText func(v Value) string
}

// Table is the ordered, name-indexed property table for one device
// model.
type Table struct {
	fields []Field
	byName map[string]*Field
}

// NewTable builds a lookup table from an ordered field list. Field order
// is preserved for queue_status's full-property refresh sweep.
func NewTable(fields []Field) *Table {
	t := &Table{
		fields: fields,
		byName: make(map[string]*Field, len(fields)),
	}
	for i := range t.fields {
		t.byName[t.fields[i].Name] = &t.fields[i]
	}
	return t
}

// Field looks up a field descriptor by name.
func (t *Table) Field(name string) (*Field, bool) {
	f, ok := t.byName[name]
	return f, ok
}

// Fields returns the full ordered field list.
func (t *Table) Fields() []Field {
	return t.fields
}

// Names returns every field name, in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	return names
}

func toInt(raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("schema: cannot parse %q as a number: %w", v, err)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("schema: cannot convert %T to int", raw)
	}
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("schema: cannot parse %q as a number: %w", v, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("schema: cannot convert %T to float64", raw)
	}
}

func toBool(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, fmt.Errorf("schema: cannot convert %T to bool", raw)
	}
}

// IntField builds a plain integer-valued field.
func IntField(name string, base BaseType, readOnly bool, def int) Field {
	return Field{
		Name: name, BaseType: base, ReadOnly: readOnly, Default: def,
		DecodeWire: func(raw interface{}) (Value, error) { return toInt(raw) },
		EncodeWire: func(v Value) interface{} { return v.(int) },
		ParseText: func(s string) (Value, error) {
			// Round rather than fail on a float string: home-automation
			// hubs commonly send Celsius-converted temperatures this way.
			if strings.Contains(s, ".") {
				f, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, err
				}
				return int(f + 0.5), nil
			}
			i, err := strconv.Atoi(s)
			if err != nil {
				return nil, err
			}
			return i, nil
		},
		FormatText: func(v Value) string { return strconv.Itoa(v.(int)) },
	}
}

// OptionalIntField builds an integer-valued field whose Default is nil
// ("not yet known"), for fields the source declares with default=None.
func OptionalIntField(name string, base BaseType, readOnly bool) Field {
	f := IntField(name, base, readOnly, 0)
	f.Default = nil
	return f
}

// DecimalField builds a floating-point-valued field.
func DecimalField(name string, readOnly bool, def float64) Field {
	return Field{
		Name: name, BaseType: BaseTypeDecimal, ReadOnly: readOnly, Default: def,
		DecodeWire: func(raw interface{}) (Value, error) { return toFloat(raw) },
		EncodeWire: func(v Value) interface{} { return v.(float64) },
		ParseText: func(s string) (Value, error) {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
		FormatText: func(v Value) string { return strconv.FormatFloat(v.(float64), 'f', -1, 64) },
	}
}

// BoolField builds a plain (non-enum) boolean-valued field, wire-coded
// as 0/1.
func BoolField(name string, readOnly bool, def bool) Field {
	return Field{
		Name: name, BaseType: BaseTypeBoolean, ReadOnly: readOnly, Default: def,
		DecodeWire: func(raw interface{}) (Value, error) { return toBool(raw) },
		EncodeWire: func(v Value) interface{} {
			if v.(bool) {
				return 1
			}
			return 0
		},
		ParseText: func(s string) (Value, error) {
			switch strings.ToUpper(s) {
			case "1", "TRUE", "ON":
				return true, nil
			case "0", "FALSE", "OFF":
				return false, nil
			}
			return nil, fmt.Errorf("schema: invalid boolean value %q", s)
		},
		FormatText: func(v Value) string {
			if v.(bool) {
				return "true"
			}
			return "false"
		},
	}
}

// OptionalBoolField builds a boolean field whose Default is nil.
func OptionalBoolField(name string, readOnly bool) Field {
	f := BoolField(name, readOnly, false)
	f.Default = nil
	return f
}

// enumLike is any of this package's named integer enum types.
type enumLike interface {
	~int
}

// EnumField builds a field backed by an enum type T. fanOnlyName, when
// non-empty, names the enum value (e.g. "FAN") that is rendered as the
// literal MQTT payload "fan_only" instead of its lower-cased name, and
// accepted back from "fan_only" on the way in — the one payload-coding
// special case the MQTT bridge relies on.
func EnumField[T enumLike](name string, base BaseType, readOnly bool, def T,
	toName func(T) string, fromName func(string) (T, error), fanOnlyName string) Field {
	return Field{
		Name: name, BaseType: base, ReadOnly: readOnly, Default: def,
		DecodeWire: func(raw interface{}) (Value, error) {
			i, err := toInt(raw)
			if err != nil {
				return nil, err
			}
			return T(i), nil
		},
		EncodeWire: func(v Value) interface{} { return int(v.(T)) },
		ParseText: func(s string) (Value, error) {
			s = strings.ToUpper(s)
			if fanOnlyName != "" && s == "FAN_ONLY" {
				s = fanOnlyName
			}
			return fromName(s)
		},
		FormatText: func(v Value) string {
			name := toName(v.(T))
			if fanOnlyName != "" && name == fanOnlyName {
				return "fan_only"
			}
			return strings.ToLower(name)
		},
	}
}
