package parser

import (
	"testing"

	"github.com/moeinimoein/arturo/value"
)

// Codifying a parsed tree and parsing it again must yield an equal
// tree.
func TestCodifyParseRoundTrip(t *testing.T) {
	sources := []string{
		`print "Hello world!"`,
		`x: 10 y: x`,
		`loop [1 2 3] 'i [print i]`,
		`[1 2 [3 4] "five"]`,
		`#[name: "John" age: 35]`,
		`f: $[x][x]`,
		`if true [print "yes"]`,
		"a\\b a\\0",
		`'lit :integer .attr .key:5`,
		`1.5 1.2.3 -4`,
		"`c` \"text with \\\"quotes\\\"\"",
	}
	for _, src := range sources {
		first, err := Parse(src)
		if err != nil {
			t.Errorf("Parse(%q): %v", src, err)
			continue
		}
		rendered := value.Codify(first, false, true, false)
		second, err := Parse(rendered)
		if err != nil {
			t.Errorf("reparse of %q (from %q): %v", rendered, src, err)
			continue
		}
		if !value.Equals(first, second) {
			t.Errorf("roundtrip mismatch for %q:\n  rendered %q\n  first  %v\n  second %v",
				src, rendered, first, second)
		}
	}
}

// The pretty form must parse back to the same tree too.
func TestCodifyPrettyRoundTrip(t *testing.T) {
	src := `outer: [inner: [1 2 3] other: "x"]`
	first, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rendered := value.Codify(first, true, true, false)
	second, err := Parse(rendered)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !value.Equals(first, second) {
		t.Errorf("pretty roundtrip mismatch:\n%s", rendered)
	}
}
