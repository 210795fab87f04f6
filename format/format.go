// Package format implements the format strings used for target paths and
// filenames.
//
// A format string is literal text with replacement fields in braces, e.g.
// "{category}_{id}_{title}.{extension}". A field names a metadata key and
// may carry conversions and a format spec:
//
//	{name}           plain substitution
//	{user.name}      nested lookup ({user[name]} is equivalent)
//	{tags[0]}        list index, negative counts from the end
//	{title[:30]}     slice of a string or list
//	{title|name|id}  first non-empty alternative
//	{title!l}        conversion (lowercase)
//	{num:>05}        alignment and padding
//	{title:?-/-/}    optional: prefix and suffix only when non-empty
//	{title:L30/…/}   replacement text once a length limit is exceeded
//	{tags:J, /}      list join
//	{title:Ra/b/}    substring replacement
//
// Conversions chain left to right: {title!tl} trims, then lowercases.
// Spec operations chain the same way: {tags:J-/L20/…/} joins, then
// applies the length limit.
package format

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sentinel errors for matching with errors.Is.
var (
	// ErrBadFormat indicates a format string that does not parse.
	ErrBadFormat = errors.New("bad format string")

	// ErrUnknownField indicates a replacement field naming a key the
	// metadata does not carry.
	ErrUnknownField = errors.New("unknown format field")
)

// conversions lists the valid conversion characters.
const conversions = "lucCtjsSra"

// Formatter is a parsed format string, safe for concurrent use.
type Formatter struct {
	src        string
	segments   []segment
	hasDefault bool
	defaultVal string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithDefault substitutes a fallback for missing fields instead of
// failing the whole Format call.
func WithDefault(s string) Option {
	return func(f *Formatter) {
		f.hasDefault = true
		f.defaultVal = s
	}
}

// Parse compiles a format string.
func Parse(src string, opts ...Option) (*Formatter, error) {
	f := &Formatter{src: src}
	for _, opt := range opts {
		opt(f)
	}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			f.segments = append(f.segments, literal(lit.String()))
			lit.Reset()
		}
	}

	for i := 0; i < len(src); {
		switch src[i] {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed field at offset %d", ErrBadFormat, i)
			}
			fld, err := parseField(src[i+1 : i+end])
			if err != nil {
				return nil, err
			}
			flush()
			f.segments = append(f.segments, fld)
			i += end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, fmt.Errorf("%w: unmatched '}' at offset %d", ErrBadFormat, i)
		default:
			lit.WriteByte(src[i])
			i++
		}
	}
	flush()
	return f, nil
}

// MustParse compiles a format string and panics on error. Useful for
// built-in format strings known to be valid.
func MustParse(src string, opts ...Option) *Formatter {
	f, err := Parse(src, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders a one-shot format string against metadata.
func Format(src string, data map[string]any) (string, error) {
	f, err := Parse(src)
	if err != nil {
		return "", err
	}
	return f.Format(data)
}

// Format renders the format string against metadata.
func (f *Formatter) Format(data map[string]any) (string, error) {
	var sb strings.Builder
	for _, seg := range f.segments {
		if err := seg.render(&sb, data, f); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// String returns the source the Formatter was parsed from.
func (f *Formatter) String() string {
	return f.src
}

// segment is one piece of a parsed format string.
type segment interface {
	render(sb *strings.Builder, data map[string]any, f *Formatter) error
}

// literal is a run of plain text.
type literal string

func (l literal) render(sb *strings.Builder, _ map[string]any, _ *Formatter) error {
	sb.WriteString(string(l))
	return nil
}

// field is one replacement field.
type field struct {
	name       string
	alternates [][]accessor
	convs      string
	ops        []specOp
}

// parseField compiles the text between braces.
func parseField(body string) (*field, error) {
	name, spec, hasSpec := cutTop(body, ':')
	name, convs, _ := cutTop(name, '!')
	if name == "" {
		return nil, fmt.Errorf("%w: empty field name in {%s}", ErrBadFormat, body)
	}
	for i := 0; i < len(convs); i++ {
		if strings.IndexByte(conversions, convs[i]) < 0 {
			return nil, fmt.Errorf("%w: unknown conversion %q in {%s}", ErrBadFormat, string(convs[i]), body)
		}
	}

	fld := &field{name: name, convs: convs}
	for _, alt := range splitTop(name, '|') {
		accs, err := parseAccessors(alt)
		if err != nil {
			return nil, fmt.Errorf("%w in {%s}", err, body)
		}
		fld.alternates = append(fld.alternates, accs)
	}
	if hasSpec {
		ops, err := parseSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("%w in {%s}", err, body)
		}
		fld.ops = ops
	}
	return fld, nil
}

func (fld *field) render(sb *strings.Builder, data map[string]any, f *Formatter) error {
	v, ok := fld.lookup(data)
	if !ok {
		if fld.optional() {
			return nil
		}
		if !f.hasDefault {
			return fmt.Errorf("%w: %s", ErrUnknownField, fld.name)
		}
		v = f.defaultVal
	}

	var err error
	for i := 0; i < len(fld.convs); i++ {
		if v, err = convert(v, fld.convs[i]); err != nil {
			return fmt.Errorf("field %s: %w", fld.name, err)
		}
	}
	for _, op := range fld.ops {
		if v, err = op.apply(v); err != nil {
			return fmt.Errorf("field %s: %w", fld.name, err)
		}
	}

	sb.WriteString(stringify(v))
	return nil
}

// lookup resolves the field's alternatives: the first present, non-empty
// value wins; a present but empty value is used only when nothing better
// exists.
func (fld *field) lookup(data map[string]any) (any, bool) {
	var fallback any
	found := false
	for _, accs := range fld.alternates {
		v, ok := resolveAccessors(data, accs)
		if !ok {
			continue
		}
		if !isEmpty(v) {
			return v, true
		}
		if !found {
			fallback = v
			found = true
		}
	}
	return fallback, found
}

// optional reports whether the field's spec starts with the optional
// operation, which turns a missing key into empty output.
func (fld *field) optional() bool {
	if len(fld.ops) == 0 {
		return false
	}
	_, ok := fld.ops[0].(optionalOp)
	return ok
}

// accessor is one step of a field lookup path.
type accessor struct {
	kind     accessKind
	key      string
	index    int
	start    int
	end      int
	hasStart bool
	hasEnd   bool
}

type accessKind uint8

const (
	accessKey accessKind = iota
	accessIndex
	accessSlice
)

// parseAccessors compiles a lookup path like "user.name" or "tags[0]".
func parseAccessors(s string) ([]accessor, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty field name", ErrBadFormat)
	}
	var accs []accessor
	for len(s) > 0 {
		if s[0] == '[' {
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '['", ErrBadFormat)
			}
			acc, err := parseBracket(s[1:end])
			if err != nil {
				return nil, err
			}
			accs = append(accs, acc)
			s = strings.TrimPrefix(s[end+1:], ".")
			continue
		}

		stop := strings.IndexAny(s, ".[")
		if stop < 0 {
			stop = len(s)
		}
		key := s[:stop]
		if key == "" {
			return nil, fmt.Errorf("%w: empty path segment in %q", ErrBadFormat, s)
		}
		accs = append(accs, accessor{kind: accessKey, key: key})
		if stop < len(s) && s[stop] == '.' {
			stop++
		}
		s = s[stop:]
	}
	return accs, nil
}

// parseBracket compiles the inside of a bracket access: an index, a
// slice, or a quoted-free key.
func parseBracket(inner string) (accessor, error) {
	if i := strings.IndexByte(inner, ':'); i >= 0 {
		acc := accessor{kind: accessSlice}
		if start := inner[:i]; start != "" {
			n, err := strconv.Atoi(start)
			if err != nil {
				return accessor{}, fmt.Errorf("%w: bad slice start %q", ErrBadFormat, start)
			}
			acc.start, acc.hasStart = n, true
		}
		if end := inner[i+1:]; end != "" {
			n, err := strconv.Atoi(end)
			if err != nil {
				return accessor{}, fmt.Errorf("%w: bad slice end %q", ErrBadFormat, end)
			}
			acc.end, acc.hasEnd = n, true
		}
		return acc, nil
	}
	if n, err := strconv.Atoi(inner); err == nil {
		return accessor{kind: accessIndex, index: n}, nil
	}
	if inner == "" {
		return accessor{}, fmt.Errorf("%w: empty brackets", ErrBadFormat)
	}
	return accessor{kind: accessKey, key: inner}, nil
}

// resolveAccessors walks a lookup path through the metadata.
func resolveAccessors(data map[string]any, accs []accessor) (any, bool) {
	var cur any = data
	for _, acc := range accs {
		switch acc.kind {
		case accessKey:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = m[acc.key]; !ok {
				return nil, false
			}
		case accessIndex:
			v, ok := indexValue(cur, acc.index)
			if !ok {
				return nil, false
			}
			cur = v
		case accessSlice:
			cur = sliceValue(cur, acc)
		}
	}
	return cur, true
}

// indexValue applies list or string indexing, counting negative indices
// from the end.
func indexValue(v any, idx int) (any, bool) {
	switch t := v.(type) {
	case []any:
		if idx < 0 {
			idx += len(t)
		}
		if idx < 0 || idx >= len(t) {
			return nil, false
		}
		return t[idx], true
	case []string:
		if idx < 0 {
			idx += len(t)
		}
		if idx < 0 || idx >= len(t) {
			return nil, false
		}
		return t[idx], true
	case string:
		runes := []rune(t)
		if idx < 0 {
			idx += len(runes)
		}
		if idx < 0 || idx >= len(runes) {
			return nil, false
		}
		return string(runes[idx]), true
	default:
		return nil, false
	}
}

// sliceValue applies slice bounds to a string or list, clamping out of
// range bounds rather than failing.
func sliceValue(v any, acc accessor) any {
	bounds := func(n int) (int, int) {
		start, end := 0, n
		if acc.hasStart {
			start = clampIndex(acc.start, n)
		}
		if acc.hasEnd {
			end = clampIndex(acc.end, n)
		}
		if start > end {
			start = end
		}
		return start, end
	}

	switch t := v.(type) {
	case string:
		runes := []rune(t)
		start, end := bounds(len(runes))
		return string(runes[start:end])
	case []any:
		start, end := bounds(len(t))
		return t[start:end]
	case []string:
		start, end := bounds(len(t))
		return t[start:end]
	default:
		return v
	}
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		idx += n
	}
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}

// convert applies one conversion character.
func convert(v any, conv byte) (any, error) {
	switch conv {
	case 'l':
		return strings.ToLower(stringify(v)), nil
	case 'u':
		return strings.ToUpper(stringify(v)), nil
	case 'c':
		s := strings.ToLower(stringify(v))
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return s, nil
		}
		return string(unicode.ToUpper(r)) + s[size:], nil
	case 'C':
		return cases.Title(language.Und).String(stringify(v)), nil
	case 't':
		return strings.TrimSpace(stringify(v)), nil
	case 'j':
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cannot encode value: %w", err)
		}
		return string(b), nil
	case 's':
		return stringify(v), nil
	case 'S':
		switch t := v.(type) {
		case []string:
			sorted := append([]string(nil), t...)
			sort.Strings(sorted)
			return sorted, nil
		case []any:
			sorted := append([]any(nil), t...)
			sort.SliceStable(sorted, func(i, j int) bool {
				return stringify(sorted[i]) < stringify(sorted[j])
			})
			return sorted, nil
		default:
			return v, nil
		}
	case 'r':
		return strconv.Quote(stringify(v)), nil
	case 'a':
		return strconv.QuoteToASCII(stringify(v)), nil
	default:
		return nil, fmt.Errorf("%w: unknown conversion %q", ErrBadFormat, string(conv))
	}
}

// stringify renders a metadata value as text. Lists join with ", ";
// a nil value renders empty.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, el := range t {
			parts[i] = stringify(el)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// isEmpty reports whether a value should be skipped by alternatives and
// blanked by the optional operation. Zero numbers and false are values,
// not absences.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// cutTop splits s at the first occurrence of sep outside brackets.
func cutTop(s string, sep byte) (before, after string, found bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case sep:
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

// splitTop splits s on every occurrence of sep outside brackets.
func splitTop(s string, sep byte) []string {
	var parts []string
	for {
		head, rest, ok := cutTop(s, sep)
		parts = append(parts, head)
		if !ok {
			return parts
		}
		s = rest
	}
}
