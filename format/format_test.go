package format

import (
	"errors"
	"strings"
	"testing"
)

func testData() map[string]any {
	return map[string]any{
		"category": "deviantart",
		"id":       42,
		"title":    "Summer Sketches",
		"artist":   "the mad artist",
		"padded":   "  x  ",
		"accent":   "café",
		"empty":    "",
		"sleep":    2.5,
		"count":    int64(7),
		"neg":      -42,
		"flag":     false,
		"tags":     []string{"art", "sketch", "summer"},
		"unsorted": []string{"zebra", "apple", "mango"},
		"mixed":    []any{"a", 1, true},
		"user":     map[string]any{"name": "kaoru", "id": 99},
	}
}

func render(t *testing.T, src string) string {
	t.Helper()
	got, err := Format(src, testData())
	if err != nil {
		t.Fatalf("Format(%q) failed: %v", src, err)
	}
	return got
}

func TestFormatLiterals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"plain", "gallery/downloads", "gallery/downloads"},
		{"escaped braces", "{{category}}", "{category}"},
		{"mixed", "a{{b}}{category}c", "a{b}deviantartc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatFields(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"two fields", "{category}_{id}", "deviantart_42"},
		{"dotted path", "{user.name}", "kaoru"},
		{"bracket key", "{user[name]}", "kaoru"},
		{"bracket key number value", "{user[id]}", "99"},
		{"list index", "{tags[0]}", "art"},
		{"negative index", "{tags[-1]}", "summer"},
		{"string index", "{title[0]}", "S"},
		{"slice end", "{title[:6]}", "Summer"},
		{"slice start", "{title[7:]}", "Sketches"},
		{"negative slice", "{title[:-9]}", "Summer"},
		{"list slice", "{tags[1:]}", "sketch, summer"},
		{"out of range slice clamps", "{title[100:]}", ""},
		{"mixed list", "{mixed[1]}", "1"},
		{"float", "{sleep}", "2.5"},
		{"bool", "{flag}", "false"},
		{"list renders joined", "{tags}", "art, sketch, summer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAlternates(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"first non-empty wins", "{title|category}", "Summer Sketches"},
		{"empty falls through", "{empty|category}", "deviantart"},
		{"missing falls through", "{missing|category}", "deviantart"},
		{"all empty keeps empty", "{empty|empty}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	_, err := Format("{missing|alsomissing}", testData())
	if !errors.Is(err, ErrUnknownField) {
		t.Errorf("all-missing alternates: got %v, want ErrUnknownField", err)
	}
}

func TestFormatConversions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"lower", "{title!l}", "summer sketches"},
		{"upper", "{title!u}", "SUMMER SKETCHES"},
		{"capitalize", "{category!c}", "Deviantart"},
		{"capitalize flattens rest", "{title!c}", "Summer sketches"},
		{"title case", "{artist!C}", "The Mad Artist"},
		{"trim", "{padded!t}", "x"},
		{"json", "{tags!j}", `["art","sketch","summer"]`},
		{"string", "{id!s}", "42"},
		{"sort strings", "{unsorted!S}", "apple, mango, zebra"},
		{"sort mixed", "{mixed!S}", "1, a, true"},
		{"sort passes scalars", "{title!S}", "Summer Sketches"},
		{"quote", "{title!r}", `"Summer Sketches"`},
		{"ascii quote", "{accent!a}", `"caf\u00e9"`},
		{"chained", "{padded!tu}", "X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatPadSpecs(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"zero pad", "{id:05}", "00042"},
		{"right align", "{id:>5}", "   42"},
		{"left align number", "{id:<5}", "42   "},
		{"number right by default", "{id:5}", "   42"},
		{"string left by default", "{category:12}", "deviantart  "},
		{"center", "{category:^12}", " deviantart "},
		{"center custom fill", "{category:*^12}", "*deviantart*"},
		{"zero pad negative", "{neg:06}", "-00042"},
		{"float precision", "{sleep:.2f}", "2.50"},
		{"float default precision", "{sleep:f}", "2.500000"},
		{"int verb", "{id:d}", "42"},
		{"int verb widened", "{count:04d}", "0007"},
		{"string precision truncates", "{title:.6}", "Summer"},
		{"width already met", "{category:4}", "deviantart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	_, err := Format("{sleep:d}", testData())
	if err == nil || !strings.Contains(err.Error(), "cannot format") {
		t.Errorf("fractional float with d verb: got %v, want conversion error", err)
	}
}

func TestFormatSpecOps(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"optional present", "{title:?</>/}", "<Summer Sketches>"},
		{"optional empty", "{empty:?</>/}", ""},
		{"optional missing", "{missing:?</>/}", ""},
		{"limit exceeded", "{title:L5/…/}", "…"},
		{"limit not reached", "{category:L20/…/}", "deviantart"},
		{"join", "{tags:J-/}", "art-sketch-summer"},
		{"join mixed", "{mixed:J, /}", "a, 1, true"},
		{"replace", "{category:Rdeviant/d/}", "dart"},
		{"join then limit", "{tags:J-/L10/long/}", "long"},
		{"join then pad", "{tags:J-/>20}", "   art-sketch-summer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tt.src); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatMissingField(t *testing.T) {
	_, err := Format("{missing}", testData())
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("got %v, want ErrUnknownField", err)
	}

	f, err := Parse("{missing}.txt", WithDefault("unknown"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got, err := f.Format(testData())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if want := "unknown.txt"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unclosed field", "{title"},
		{"unmatched close", "title}"},
		{"empty field", "{}"},
		{"empty spec-only field", "{:>5}"},
		{"unknown conversion", "{title!x}"},
		{"unclosed bracket", "{tags[0}"},
		{"empty brackets", "{tags[]}"},
		{"bad slice bound", "{tags[1:x]}"},
		{"optional missing argument", "{title:?-/}"},
		{"limit missing argument", "{title:L5/}"},
		{"limit not a number", "{title:Lxx/y/}"},
		{"bad verb", "{id:5q}"},
		{"missing precision digits", "{id:5.}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.src); !errors.Is(err, ErrBadFormat) {
				t.Errorf("Parse(%q): got %v, want ErrBadFormat", tt.src, err)
			}
		})
	}
}

func TestFormatterString(t *testing.T) {
	const src = "{category}/{id}"
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := f.String(); got != src {
		t.Errorf("got %q, want %q", got, src)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse on a bad format string did not panic")
		}
	}()
	MustParse("{unclosed")
}

func TestFormatterReuse(t *testing.T) {
	f, err := Parse("{category}_{id}")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	first, err := f.Format(testData())
	if err != nil {
		t.Fatalf("first Format failed: %v", err)
	}
	second, err := f.Format(map[string]any{"category": "pixiv", "id": 7})
	if err != nil {
		t.Fatalf("second Format failed: %v", err)
	}
	if first != "deviantart_42" || second != "pixiv_7" {
		t.Errorf("got %q and %q, want %q and %q", first, second, "deviantart_42", "pixiv_7")
	}
}
