package wikilink

import "testing"

func TestParseExact(t *testing.T) {
	cases := []struct {
		in      string
		target  string
		display string
		ok      bool
	}{
		{"[[people/freya]]", "people/freya", "", true},
		{"[[people/freya|Freya]]", "people/freya", "Freya", true},
		{"  [[spaced]]  ", "spaced", "", true},
		{"[[ inner spaces ]]", "inner spaces", "", true},
		{"[[]]", "", "", false},
		{"[[a]", "", "", false},
		{"plain text", "", "", false},
		{"[[[flow]]]", "", "", false},
	}
	for _, c := range cases {
		target, display, ok := ParseExact(c.in)
		if ok != c.ok || target != c.target || display != c.display {
			t.Errorf("ParseExact(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.in, target, display, ok, c.target, c.display, c.ok)
		}
	}
}

func TestFindAllInLine(t *testing.T) {
	t.Run("multiple links", func(t *testing.T) {
		matches := FindAllInLine("see [[a]] and [[b|B]] here")
		if len(matches) != 2 {
			t.Fatalf("got %d matches, want 2", len(matches))
		}
		if matches[0].Target != "a" || matches[1].Target != "b" || matches[1].Display != "B" {
			t.Errorf("unexpected matches: %+v", matches)
		}
	})

	t.Run("skips flow sequences", func(t *testing.T) {
		if matches := FindAllInLine(`refs: [[[a]], [[b]]]`); len(matches) != 0 {
			t.Errorf("flow sequence should not match, got %+v", matches)
		}
	})
}

func TestFindNearMisses(t *testing.T) {
	t.Run("missing closing bracket", func(t *testing.T) {
		misses := FindNearMisses("see [[people/freya] for details")
		if len(misses) != 1 {
			t.Fatalf("got %d near misses, want 1", len(misses))
		}
		if misses[0].Fixed != "[[people/freya]]" {
			t.Errorf("fixed = %q, want [[people/freya]]", misses[0].Fixed)
		}
	})

	t.Run("missing opening bracket", func(t *testing.T) {
		misses := FindNearMisses("see [people/freya]] for details")
		if len(misses) != 1 || misses[0].Target != "people/freya" {
			t.Fatalf("unexpected: %+v", misses)
		}
	})

	t.Run("well-formed is not a near miss", func(t *testing.T) {
		if misses := FindNearMisses("see [[ok]] and [markdown](http://x)"); len(misses) != 0 {
			t.Errorf("got %+v, want none", misses)
		}
	})
}
