package schema

import (
	"reflect"
	"time"
)

// Params maps a column parameter name to its value.
type Params map[string]any

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = CloneValue(v)
	}
	return out
}

// Digits is the precision and scale of a Numeric column.
type Digits struct {
	Precision int
	Scale     int
}

// EnumType is a named, ordered set of choices for a column.
type EnumType struct {
	Name    string
	Members []EnumMember
}

// EnumMember is a single choice of an EnumType.
type EnumMember struct {
	Enum  string
	Name  string
	Value any
}

// NewEnum builds an EnumType whose members store their own name as value.
func NewEnum(name string, members ...string) EnumType {
	e := EnumType{Name: name}
	for _, m := range members {
		e.Members = append(e.Members, EnumMember{Enum: name, Name: m, Value: m})
	}
	return e
}

// Member returns the member called name.
func (e EnumType) Member(name string) (EnumMember, bool) {
	for _, m := range e.Members {
		if m.Name == name {
			return m, true
		}
	}
	return EnumMember{}, false
}

// MustMember is like Member but panics when the member does not exist.
func (e EnumType) MustMember(name string) EnumMember {
	m, ok := e.Member(name)
	if !ok {
		panic("schema: enum " + e.Name + " has no member " + name)
	}
	return m
}

// TableRef points at another table by class name without holding the table
// itself, so tables may reference each other in cycles.
type TableRef struct {
	ClassName string
	TableName string
}

// DefaultKind tags the variant held by a Default.
type DefaultKind string

const (
	DefaultNull            DefaultKind = "null"
	DefaultValue           DefaultKind = "value"
	DefaultNow             DefaultKind = "now"
	DefaultCurrentDate     DefaultKind = "current_date"
	DefaultCurrentTime     DefaultKind = "current_time"
	DefaultUUID4           DefaultKind = "uuid4"
	DefaultEnum            DefaultKind = "enum"
	DefaultTimestampOffset DefaultKind = "timestamp_offset"
)

// Default is a column default that is not a plain literal. Payload holds the
// literal for DefaultValue, the EnumMember for DefaultEnum and the
// time.Duration for DefaultTimestampOffset.
type Default struct {
	Kind    DefaultKind
	Payload any
}

// Now is the default for columns set to the current timestamp.
func Now() Default { return Default{Kind: DefaultNow} }

// Offset is the default for columns set to the current timestamp plus d.
func Offset(d time.Duration) Default {
	return Default{Kind: DefaultTimestampOffset, Payload: d}
}

// CloneValue deep-copies slices, maps and the composite parameter types.
// Other values are returned unchanged.
func CloneValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case Params:
		return t.Clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case EnumType:
		members := make([]EnumMember, len(t.Members))
		for i, m := range t.Members {
			members[i] = EnumMember{Enum: m.Enum, Name: m.Name, Value: CloneValue(m.Value)}
		}
		return EnumType{Name: t.Name, Members: members}
	case EnumMember:
		return EnumMember{Enum: t.Enum, Name: t.Name, Value: CloneValue(t.Value)}
	case Default:
		return Default{Kind: t.Kind, Payload: CloneValue(t.Payload)}
	case *Digits:
		if t == nil {
			return (*Digits)(nil)
		}
		d := *t
		return &d
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if e := CloneValue(rv.Index(i).Interface()); e != nil {
				out.Index(i).Set(reflect.ValueOf(e))
			}
		}
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e := CloneValue(iter.Value().Interface())
			if e == nil {
				out.SetMapIndex(iter.Key(), reflect.Zero(rv.Type().Elem()))
				continue
			}
			out.SetMapIndex(iter.Key(), reflect.ValueOf(e))
		}
		return out.Interface()
	}
	return v
}
