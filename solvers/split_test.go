package solvers

import (
	"testing"
)

func TestSplit(t *testing.T) {
	statements := Split("a = 1; b = 'x;y'\n# note; ignored\nc = max(1,\n  2)  # trailing\n\nreturn c;")
	expected := []Statement{
		{Source: "a = 1", Line: 1},
		{Source: "b = 'x;y'", Line: 1},
		{Source: "c = max(1,\n  2)", Line: 3},
		{Source: "return c", Line: 6},
	}
	if len(statements) != len(expected) {
		t.Fatalf("got %#v", statements)
	}
	for i, s := range statements {
		if s != expected[i] {
			t.Fatalf("got %#v, expected %#v", s, expected[i])
		}
	}

	statements = Split(`s = "a\"; b"`)
	if len(statements) != 1 || statements[0].Source != `s = "a\"; b"` {
		t.Fatalf("got %#v", statements)
	}
}
