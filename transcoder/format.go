package transcoder

import (
	"strconv"
	"strings"
)

// Format renders v in WIT value syntax, as used by the CLI and log fields.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		b.WriteString("_")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(x)))
	case U8:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case U16:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case U32:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case U64:
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case S8:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case S16:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case S32:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case S64:
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case F32:
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case F64:
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 64))
	case Char:
		b.WriteString(strconv.QuoteRune(rune(x)))
	case String:
		b.WriteString(strconv.Quote(string(x)))
	case Enum:
		b.WriteString(string(x))
	case Handle:
		b.WriteString("handle(")
		b.WriteString(strconv.FormatUint(uint64(x), 10))
		b.WriteByte(')')
	case Tuple:
		b.WriteByte('(')
		formatList(b, x)
		b.WriteByte(')')
	case List:
		b.WriteByte('[')
		formatList(b, x)
		b.WriteByte(']')
	case Record:
		b.WriteByte('{')
		for i, f := range x {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			b.WriteString(": ")
			format(b, f.Value)
		}
		b.WriteByte('}')
	case Option:
		if !x.IsSome {
			b.WriteString("none")
			return
		}
		b.WriteString("some(")
		format(b, x.Value)
		b.WriteByte(')')
	case Result:
		tag := "ok"
		if x.IsErr {
			tag = "err"
		}
		b.WriteString(tag)
		if x.Value != nil {
			b.WriteByte('(')
			format(b, x.Value)
			b.WriteByte(')')
		}
	case Variant:
		b.WriteString(x.Case)
		if x.Payload != nil {
			b.WriteByte('(')
			format(b, x.Payload)
			b.WriteByte(')')
		}
	case Flags:
		b.WriteByte('{')
		for i, p := range x.Positions() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.FormatUint(uint64(p), 10))
		}
		b.WriteByte('}')
	default:
		b.WriteString("?")
	}
}

func formatList(b *strings.Builder, vs []Value) {
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		format(b, v)
	}
}
