// Package serializer converts column parameters to and from the form stored in
// generated migration units.
//
// Serialized values are plain data: primitives, containers and the string
// types declared here. Every serialized value can be rendered as Go source
// with Literal, and two serialized values are equal when their literals are.
package serializer

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/satishbabariya/migrant/internal/core/schema"
)

var (
	// ErrUnresolvedReference is returned when a serialized enum member or
	// table reference cannot be resolved.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrUnknownKind is returned when deserializing parameters for a column
	// kind that does not exist.
	ErrUnknownKind = errors.New("unknown column kind")
)

// EnumRef is a serialized enum member in the form "Enum.member".
type EnumRef string

// TableRefString is a serialized table reference in the form "Class|table".
type TableRefString string

// ISOTime is a serialized time.Time in RFC 3339 format.
type ISOTime string

// ISODuration is a serialized time.Duration in ISO 8601 format.
type ISODuration string

// Warning describes a parameter value that could not be serialized.
type Warning struct {
	Key     string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Key, w.Message)
}

// Serialize converts params into their serialized form. Values that cannot be
// persisted, such as function defaults, are replaced by nil and reported.
func Serialize(params schema.Params) (schema.Params, []Warning) {
	if params == nil {
		return schema.Params{}, nil
	}

	out := make(schema.Params, len(params))
	var warnings []Warning
	for _, key := range SortedKeys(params) {
		v, err := SerializeValue(params[key])
		if err != nil {
			warnings = append(warnings, Warning{Key: key, Message: err.Error()})
			v = nil
		}
		out[key] = v
	}
	return out, warnings
}

// SerializeValue converts a single parameter value.
func SerializeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, string, EnumRef, TableRefString, ISOTime, ISODuration:
		return t, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return t, nil
	case schema.Kind:
		return string(t), nil
	case schema.DefaultKind:
		return string(t), nil
	case schema.Digits:
		return t, nil
	case *schema.Digits:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	case schema.EnumMember:
		return EnumRef(t.Enum + "." + t.Name), nil
	case schema.EnumType:
		return serializeEnumType(t)
	case schema.TableRef:
		return TableRefString(t.ClassName + "|" + t.TableName), nil
	case *schema.Table:
		if t == nil {
			return nil, nil
		}
		return TableRefString(t.ClassName + "|" + t.TableName), nil
	case schema.Default:
		payload, err := SerializeValue(t.Payload)
		if err != nil {
			return nil, err
		}
		return schema.Default{Kind: t.Kind, Payload: payload}, nil
	case time.Time:
		return ISOTime(t.Format(time.RFC3339Nano)), nil
	case time.Duration:
		return ISODuration(FormatDuration(t)), nil
	case schema.Params:
		return serializeMap(t)
	case map[string]any:
		return serializeMap(t)
	case []any:
		return serializeSlice(reflect.ValueOf(t))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return nil, fmt.Errorf("function values cannot be serialized; use a literal or a schema.Default instead")
	case reflect.Slice, reflect.Array:
		return serializeSlice(rv)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map keys must be strings, got %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return serializeMap(m)
	case reflect.String:
		return rv.String(), nil
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return SerializeValue(rv.Elem().Interface())
	}

	return nil, fmt.Errorf("values of type %T cannot be serialized", v)
}

func serializeEnumType(e schema.EnumType) (any, error) {
	out := schema.EnumType{Name: e.Name, Members: make([]schema.EnumMember, len(e.Members))}
	for i, m := range e.Members {
		value, err := SerializeValue(m.Value)
		if err != nil {
			return nil, fmt.Errorf("enum %s member %s: %w", e.Name, m.Name, err)
		}
		out.Members[i] = schema.EnumMember{Enum: e.Name, Name: m.Name, Value: value}
	}
	return out, nil
}

func serializeMap(m map[string]any) (any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		s, err := SerializeValue(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func serializeSlice(rv reflect.Value) (any, error) {
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return []any{}, nil
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s, err := SerializeValue(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// Deserialize restores serialized params for a column of the given kind,
// resolving enum members and table references through r. Inline enum types
// found under "choices" are registered into r first.
func Deserialize(kind schema.Kind, params schema.Params, r *Resolver) (schema.Params, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if r == nil {
		r = NewResolver()
	}

	if choices, ok := params[schema.ParamChoices].(schema.EnumType); ok {
		r.RegisterEnum(choices)
	}

	out := make(schema.Params, len(params))
	for _, key := range SortedKeys(params) {
		v := params[key]

		// A bare class name is accepted for references and looked up.
		if key == schema.ParamReferences && kind == schema.ForeignKey {
			if name, ok := v.(string); ok {
				ref, found := r.Table(name)
				if !found {
					return nil, fmt.Errorf("%w: table %q", ErrUnresolvedReference, name)
				}
				out[key] = ref
				continue
			}
		}

		d, err := DeserializeValue(v, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = d
	}
	return out, nil
}

// DeserializeValue restores a single serialized value.
func DeserializeValue(v any, r *Resolver) (any, error) {
	switch t := v.(type) {
	case EnumRef:
		enum, member, ok := strings.Cut(string(t), ".")
		if !ok {
			return nil, fmt.Errorf("%w: malformed enum reference %q", ErrUnresolvedReference, t)
		}
		e, found := r.Enum(enum)
		if !found {
			return nil, fmt.Errorf("%w: enum %q", ErrUnresolvedReference, enum)
		}
		m, found := e.Member(member)
		if !found {
			return nil, fmt.Errorf("%w: enum %q has no member %q", ErrUnresolvedReference, enum, member)
		}
		return m, nil
	case TableRefString:
		className, tableName, ok := strings.Cut(string(t), "|")
		if !ok || className == "" || tableName == "" {
			return nil, fmt.Errorf("%w: malformed table reference %q", ErrUnresolvedReference, t)
		}
		if _, found := r.Table(className); !found {
			return nil, fmt.Errorf("%w: table %q", ErrUnresolvedReference, className)
		}
		return schema.TableRef{ClassName: className, TableName: tableName}, nil
	case ISOTime:
		ts, err := time.Parse(time.RFC3339Nano, string(t))
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", t, err)
		}
		return ts, nil
	case ISODuration:
		return ParseDuration(string(t))
	case schema.Default:
		payload, err := DeserializeValue(t.Payload, r)
		if err != nil {
			return nil, err
		}
		return schema.Default{Kind: t.Kind, Payload: payload}, nil
	case schema.EnumType:
		r.RegisterEnum(t)
		return schema.CloneValue(t), nil
	case schema.Params:
		return deserializeMap(t, r)
	case map[string]any:
		return deserializeMap(t, r)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			d, err := DeserializeValue(e, r)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	}
	return schema.CloneValue(v), nil
}

func deserializeMap(m map[string]any, r *Resolver) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		d, err := DeserializeValue(v, r)
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}

// Equal reports whether a and b serialize to the same literal.
func Equal(a, b any) bool {
	return Literal(a) == Literal(b)
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
