package serializer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/satishbabariya/migrant/internal/core/schema"
)

// Qualifier is the package name generated migration units import the
// parameter types from.
const Qualifier = "migrant"

// Literal renders v as Go source text. The value is serialized first, so
// live values and their serialized form produce the same literal. Values that
// cannot be serialized render as nil.
func Literal(v any) string {
	s, err := SerializeValue(v)
	if err != nil {
		return "nil"
	}
	var b strings.Builder
	writeLiteral(&b, s)
	return b.String()
}

// ParamsLiteral renders a full parameter map.
func ParamsLiteral(p schema.Params) string {
	var b strings.Builder
	b.WriteString(Qualifier + ".Params{")
	for i, key := range SortedKeys(p) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(key))
		b.WriteString(": ")
		b.WriteString(Literal(p[key]))
	}
	b.WriteString("}")
	return b.String()
}

func writeLiteral(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("nil")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case string:
		b.WriteString(strconv.Quote(t))
	case int:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int8:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int16:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int32:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case uint:
		b.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint8:
		b.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint16:
		b.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint32:
		b.WriteString(strconv.FormatUint(uint64(t), 10))
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
	case float32:
		writeFloat(b, float64(t), 32)
	case float64:
		writeFloat(b, t, 64)
	case EnumRef:
		fmt.Fprintf(b, "%s.EnumRef(%s)", Qualifier, strconv.Quote(string(t)))
	case TableRefString:
		fmt.Fprintf(b, "%s.TableRefString(%s)", Qualifier, strconv.Quote(string(t)))
	case ISOTime:
		fmt.Fprintf(b, "%s.ISOTime(%s)", Qualifier, strconv.Quote(string(t)))
	case ISODuration:
		fmt.Fprintf(b, "%s.ISODuration(%s)", Qualifier, strconv.Quote(string(t)))
	case schema.Digits:
		fmt.Fprintf(b, "%s.Digits{Precision: %d, Scale: %d}", Qualifier, t.Precision, t.Scale)
	case schema.EnumType:
		fmt.Fprintf(b, "%s.EnumType{Name: %s, Members: []%s.EnumMember{", Qualifier, strconv.Quote(t.Name), Qualifier)
		for i, m := range t.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "{Enum: %s, Name: %s, Value: ", strconv.Quote(m.Enum), strconv.Quote(m.Name))
			writeLiteral(b, m.Value)
			b.WriteString("}")
		}
		b.WriteString("}}")
	case schema.Default:
		fmt.Fprintf(b, "%s.Default{Kind: %s", Qualifier, strconv.Quote(string(t.Kind)))
		if t.Payload != nil {
			b.WriteString(", Payload: ")
			writeLiteral(b, t.Payload)
		}
		b.WriteString("}")
	case []any:
		b.WriteString("[]any{")
		for i, e := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLiteral(b, e)
		}
		b.WriteString("}")
	case map[string]any:
		b.WriteString("map[string]any{")
		for i, key := range SortedKeys(t) {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(key))
			b.WriteString(": ")
			writeLiteral(b, t[key])
		}
		b.WriteString("}")
	default:
		fmt.Fprintf(b, "%#v", t)
	}
}

func writeFloat(b *strings.Builder, f float64, bits int) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		b.WriteString("nil")
		return
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	b.WriteString(s)
}
