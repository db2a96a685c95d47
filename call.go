package meld

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseCall splits a client call expression into a method name and its
// arguments.
//
// A bare name, or a string that does not end with a closing parenthesis, is
// returned unchanged with nil arguments:
//
//	ParseCall("increment")          // "increment", nil
//	ParseCall("add(1, 2)")          // "add", []any{int64(1), int64(2)}
//	ParseCall("greet('hi, there')") // "greet", []any{"hi, there"}
//	ParseCall("search(hello)")      // "search", []any{"hello"}
//
// Arguments are first parsed as a sequence of literals (quoted strings,
// integers, floats, booleans, None, lists and dicts). If that fails the raw
// argument text is split on top-level commas and every trimmed token is
// passed as a string.
func ParseCall(expr string) (string, []any) {
	open := strings.IndexByte(expr, '(')
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return expr, nil
	}

	name := expr[:open]
	raw := expr[open+1 : len(expr)-1]
	if strings.TrimSpace(raw) == "" {
		return name, nil
	}

	if args, err := parseLiterals(raw); err == nil {
		return name, args
	}
	return name, splitArgs(raw)
}

// FormatCall renders a call expression that ParseCall maps back to the same
// name and arguments. Nil arguments render the bare name.
func FormatCall(name string, args []any) string {
	if args == nil {
		return name
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatLiteral(arg)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

var errLiteral = errors.New("not a literal")

// parseLiterals parses raw as a comma separated literal sequence.
func parseLiterals(raw string) ([]any, error) {
	p := &literalParser{src: raw}
	return p.list(0)
}

// splitArgs splits raw on commas outside quotes and brackets.
func splitArgs(raw string) []any {
	var (
		args  []any
		quote byte
		depth int
		start int
	)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(raw[start:i]))
			start = i + 1
		}
	}
	return append(args, strings.TrimSpace(raw[start:]))
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// closed reports whether the sequence ends here, consuming the closing byte.
// A zero closer means end of input.
func (p *literalParser) closed(closer byte) bool {
	if closer == 0 {
		return p.pos >= len(p.src)
	}
	if p.peek() == closer {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) list(closer byte) ([]any, error) {
	out := []any{}
	for {
		p.skipSpace()
		if p.closed(closer) {
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		switch c := p.peek(); {
		case c == ',':
			p.pos++
		case c == closer:
			// consumed on the next iteration
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", errLiteral, c, p.pos)
		}
	}
}

func (p *literalParser) dict() (map[string]any, error) {
	out := map[string]any{}
	for {
		p.skipSpace()
		if p.closed('}') {
			return out, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		key, ok := k.(string)
		if !ok {
			key = fmt.Sprint(k)
		}

		p.skipSpace()
		if p.peek() != ':' {
			return nil, fmt.Errorf("%w: expected ':' at %d", errLiteral, p.pos)
		}
		p.pos++
		p.skipSpace()

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = v

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", errLiteral, p.peek(), p.pos)
		}
	}
}

func (p *literalParser) value() (any, error) {
	c := p.peek()
	switch {
	case c == 0:
		return nil, fmt.Errorf("%w: unexpected end of input", errLiteral)
	case c == '\'' || c == '"':
		return p.str(c)
	case c == '[':
		p.pos++
		return p.list(']')
	case c == '(':
		p.pos++
		return p.list(')')
	case c == '{':
		p.pos++
		return p.dict()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isWordByte(c):
		return p.word()
	default:
		return nil, fmt.Errorf("%w: unexpected %q at %d", errLiteral, c, p.pos)
	}
}

func (p *literalParser) str(quote byte) (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case quote:
			return sb.String(), nil
		case '\\':
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("%w: dangling escape", errLiteral)
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case '\\', '\'', '"':
				sb.WriteByte(e)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", fmt.Errorf("%w: unterminated string", errLiteral)
}

func (p *literalParser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	float := false
scan:
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isDigit(c):
		case c == '.':
			float = true
		case c == 'e' || c == 'E':
			float = true
			if n := p.pos + 1; n < len(p.src) && (p.src[n] == '-' || p.src[n] == '+') {
				p.pos++
			}
		default:
			break scan
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	if !float {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad integer %q", errLiteral, text)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q", errLiteral, text)
	}
	return f, nil
}

func (p *literalParser) word() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && isWordByte(p.src[p.pos]) {
		p.pos++
	}
	switch w := p.src[start:p.pos]; w {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: bare word %q", errLiteral, w)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return quoteLiteral(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatLiteral(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = quoteLiteral(k) + ": " + formatLiteral(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return quoteLiteral(fmt.Sprint(x))
	}
}

// formatFloat keeps a fractional marker so the value parses back as a float.
func formatFloat(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func quoteLiteral(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '\'':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
