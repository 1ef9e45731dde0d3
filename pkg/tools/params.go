package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/txn2/mcp-toolbox/pkg/toolerr"
)

// ParamType is the declared type of a tool parameter.
type ParamType string

// Parameter types.
const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeFloat   ParamType = "float"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
)

// Valid reports whether t is a known parameter type.
func (t ParamType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeArray:
		return true
	default:
		return false
	}
}

// Parameter declares one tool argument. Declaration order is the positional
// binding order.
type Parameter struct {
	Name        string     `yaml:"name" toml:"name" json:"name"`
	Type        ParamType  `yaml:"type" toml:"type" json:"type"`
	Description string     `yaml:"description" toml:"description" json:"description"`
	Items       *Parameter `yaml:"items,omitempty" toml:"items" json:"items,omitempty"`
	Required    *bool      `yaml:"required,omitempty" toml:"required" json:"required,omitempty"`
	Default     any        `yaml:"default,omitempty" toml:"default" json:"default,omitempty"`
}

// IsRequired reports whether callers must supply the parameter. Parameters
// are required unless marked otherwise or given a default.
func (p Parameter) IsRequired() bool {
	if p.Required != nil {
		return *p.Required
	}
	return p.Default == nil
}

// validate checks the declaration itself.
func (p Parameter) validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	if !p.Type.Valid() {
		return fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
	}
	if p.Items != nil {
		if p.Type != TypeArray {
			return fmt.Errorf("parameter %q: items is only valid for array parameters", p.Name)
		}
		if p.Items.Type == TypeArray || !p.Items.Type.Valid() {
			return fmt.Errorf("parameter %q: invalid item type %q", p.Name, p.Items.Type)
		}
	}
	if p.Default != nil {
		if _, err := p.Coerce(p.Default); err != nil {
			return fmt.Errorf("parameter %q: default: %w", p.Name, err)
		}
	}
	return nil
}

// Coerce converts v to the parameter's declared type. Numeric strings are
// accepted for integer and float parameters, "true"/"false" for booleans,
// and whole floats for integers.
func (p Parameter) Coerce(v any) (any, error) {
	return coerce(p.Type, p.Items, v)
}

func coerce(t ParamType, items *Parameter, v any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %s", describe(v))
	case TypeInteger:
		return toInt(v)
	case TypeFloat:
		return toFloat(v)
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", b)
			}
			return parsed, nil
		}
		return nil, fmt.Errorf("expected boolean, got %s", describe(v))
	case TypeArray:
		return toArray(items, v)
	default:
		return nil, fmt.Errorf("unknown type %q", t)
	}
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d out of range", n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d out of range", n)
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n.String())
		}
		return floatToInt(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("expected integer, got %s", describe(v))
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected float, got %q", n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("expected float, got %q", n)
		}
		return f, nil
	}
	if i, err := toInt(v); err == nil {
		return float64(i), nil
	}
	return 0, fmt.Errorf("expected float, got %s", describe(v))
}

func toArray(items *Parameter, v any) ([]any, error) {
	if v == nil {
		return nil, fmt.Errorf("expected array, got null")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected array, got %s", describe(v))
	}
	if b, ok := v.([]byte); ok {
		return nil, fmt.Errorf("expected array, got bytes %q", b)
	}
	out := make([]any, rv.Len())
	for i := range out {
		e := rv.Index(i).Interface()
		if items == nil {
			out[i] = e
			continue
		}
		c, err := coerce(items.Type, nil, e)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ValidateArgs checks args against the declared parameters and returns the
// coerced argument map. Unknown names, missing required parameters and type
// mismatches fail with InvalidArgument naming the parameter.
func ValidateArgs(params []Parameter, args map[string]any) (map[string]any, error) {
	declared := make(map[string]struct{}, len(params))
	for _, p := range params {
		declared[p.Name] = struct{}{}
	}
	var unknown []string
	for name := range args {
		if _, ok := declared[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, toolerr.InvalidArgument(unknown[0], "unknown parameter")
	}

	out := make(map[string]any, len(params))
	for _, p := range params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			switch {
			case p.Default != nil:
				v = p.Default
			case p.IsRequired():
				return nil, toolerr.InvalidArgument(p.Name, "required parameter is missing")
			default:
				out[p.Name] = nil
				continue
			}
		}
		c, err := p.Coerce(v)
		if err != nil {
			return nil, toolerr.InvalidArgument(p.Name, "%v", err)
		}
		out[p.Name] = c
	}
	return out, nil
}
