package format

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// specOp is one operation of a format spec. Operations chain in source
// order, each receiving the previous one's output.
type specOp interface {
	apply(v any) (any, error)
}

// parseSpec compiles a format spec into its operation chain. The
// extension operations (?, L, J, R) carry '/'-terminated arguments and
// may be followed by further operations; anything else is a plain
// fill-align-width-precision spec that ends the chain.
func parseSpec(spec string) ([]specOp, error) {
	var ops []specOp
	for spec != "" {
		op, rest, err := parseSpecOp(spec)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		spec = rest
	}
	return ops, nil
}

func parseSpecOp(spec string) (specOp, string, error) {
	switch spec[0] {
	case '?':
		prefix, rest, err := specArg(spec[1:])
		if err != nil {
			return nil, "", err
		}
		suffix, rest, err := specArg(rest)
		if err != nil {
			return nil, "", err
		}
		return optionalOp{prefix: prefix, suffix: suffix}, rest, nil
	case 'L':
		limit, rest, err := specArg(spec[1:])
		if err != nil {
			return nil, "", err
		}
		alt, rest, err := specArg(rest)
		if err != nil {
			return nil, "", err
		}
		n, err := strconv.Atoi(limit)
		if err != nil {
			return nil, "", fmt.Errorf("%w: bad length limit %q", ErrBadFormat, limit)
		}
		return limitOp{max: n, alt: alt}, rest, nil
	case 'J':
		sep, rest, err := specArg(spec[1:])
		if err != nil {
			return nil, "", err
		}
		return joinOp{sep: sep}, rest, nil
	case 'R':
		oldText, rest, err := specArg(spec[1:])
		if err != nil {
			return nil, "", err
		}
		newText, rest, err := specArg(rest)
		if err != nil {
			return nil, "", err
		}
		return replaceOp{old: oldText, new: newText}, rest, nil
	default:
		op, err := parsePadSpec(spec)
		return op, "", err
	}
}

// specArg consumes one '/'-terminated argument.
func specArg(s string) (arg, rest string, err error) {
	i := strings.IndexByte(s, '/')
	if i < 0 {
		return "", "", fmt.Errorf("%w: missing '/' after spec argument %q", ErrBadFormat, s)
	}
	return s[:i], s[i+1:], nil
}

// optionalOp blanks empty values; non-empty values gain a prefix and
// suffix. As the first operation it also turns a missing key into empty
// output instead of an error.
type optionalOp struct {
	prefix string
	suffix string
}

func (op optionalOp) apply(v any) (any, error) {
	if isEmpty(v) {
		return "", nil
	}
	return op.prefix + stringify(v) + op.suffix, nil
}

// limitOp substitutes replacement text once the value exceeds a rune
// count.
type limitOp struct {
	max int
	alt string
}

func (op limitOp) apply(v any) (any, error) {
	s := stringify(v)
	if utf8.RuneCountInString(s) > op.max {
		return op.alt, nil
	}
	return s, nil
}

// joinOp joins list elements with a separator. Non-list values pass
// through untouched.
type joinOp struct {
	sep string
}

func (op joinOp) apply(v any) (any, error) {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, op.sep), nil
	case []any:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = stringify(el)
		}
		return strings.Join(parts, op.sep), nil
	default:
		return v, nil
	}
}

// replaceOp substitutes every occurrence of a substring.
type replaceOp struct {
	old string
	new string
}

func (op replaceOp) apply(v any) (any, error) {
	return strings.ReplaceAll(stringify(v), op.old, op.new), nil
}

// padOp is a plain format spec: fill, alignment, width, precision, and an
// optional presentation verb. Strings align left by default, numbers
// right.
type padOp struct {
	fill  rune
	align byte
	width int
	prec  int
	verb  byte
}

func parsePadSpec(s string) (specOp, error) {
	op := padOp{fill: ' ', prec: -1}
	rs := []rune(s)
	i := 0

	isAlign := func(r rune) bool { return r == '<' || r == '>' || r == '^' }
	switch {
	case len(rs) >= 2 && isAlign(rs[1]):
		op.fill, op.align = rs[0], byte(rs[1])
		i = 2
	case len(rs) >= 1 && isAlign(rs[0]):
		op.align = byte(rs[0])
		i = 1
	}

	if i < len(rs) && rs[i] == '0' {
		if op.fill == ' ' {
			op.fill = '0'
		}
		i++
	}
	start := i
	for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
		i++
	}
	if i > start {
		op.width, _ = strconv.Atoi(string(rs[start:i]))
	}
	if i < len(rs) && rs[i] == '.' {
		i++
		start = i
		for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
			i++
		}
		if i == start {
			return nil, fmt.Errorf("%w: missing precision digits in %q", ErrBadFormat, s)
		}
		op.prec, _ = strconv.Atoi(string(rs[start:i]))
	}
	if i < len(rs) {
		verb := rs[i]
		if !strings.ContainsRune("sdf", verb) {
			return nil, fmt.Errorf("%w: bad format spec %q", ErrBadFormat, s)
		}
		op.verb = byte(verb)
		i++
	}
	if i != len(rs) {
		return nil, fmt.Errorf("%w: bad format spec %q", ErrBadFormat, s)
	}
	return op, nil
}

func (op padOp) apply(v any) (any, error) {
	numeric := isNumber(v)
	var s string
	switch op.verb {
	case 'd':
		n, err := toInt(v)
		if err != nil {
			return nil, err
		}
		s = strconv.FormatInt(n, 10)
		numeric = true
	case 'f':
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		prec := op.prec
		if prec < 0 {
			prec = 6
		}
		s = strconv.FormatFloat(f, 'f', prec, 64)
		numeric = true
	default:
		s = stringify(v)
		// Precision truncates strings, as it does in most format
		// implementations.
		if op.prec >= 0 {
			runes := []rune(s)
			if len(runes) > op.prec {
				s = string(runes[:op.prec])
			}
		}
	}

	count := utf8.RuneCountInString(s)
	if op.width <= count {
		return s, nil
	}
	pad := op.width - count

	align := op.align
	if align == 0 {
		if numeric {
			align = '>'
		} else {
			align = '<'
		}
	}

	switch align {
	case '>':
		padding := strings.Repeat(string(op.fill), pad)
		// Zero padding stays behind the sign.
		if op.fill == '0' && numeric && strings.HasPrefix(s, "-") {
			return "-" + padding + s[1:], nil
		}
		return padding + s, nil
	case '^':
		left := pad / 2
		return strings.Repeat(string(op.fill), left) + s + strings.Repeat(string(op.fill), pad-left), nil
	default:
		return s + strings.Repeat(string(op.fill), pad), nil
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	}
	return false
}

func toInt(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t == float64(int64(t)) {
			return int64(t), nil
		}
	}
	return 0, fmt.Errorf("cannot format %T as integer", v)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	}
	return 0, fmt.Errorf("cannot format %T as float", v)
}
