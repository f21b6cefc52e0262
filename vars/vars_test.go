package vars

import (
	"testing"
	"time"
)

func TestFirstNonZero(t *testing.T) {
	if got := FirstNonZero(0, 3, 5); got != 3 {
		t.Fatalf("got %v", got)
	}
	if got := FirstNonZero("", ""); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := FirstNonZero(time.Duration(0), time.Second); got != time.Second {
		t.Fatalf("got %v", got)
	}
}

func TestDerefOrZero(t *testing.T) {
	if got := DerefOrZero[string](nil); got != "" {
		t.Fatalf("got %q", got)
	}
	s := "algebra"
	if got := DerefOrZero(&s); got != "algebra" {
		t.Fatalf("got %q", got)
	}
}

func TestStrToBool(t *testing.T) {
	for str, expected := range map[string]bool{
		"true":  true,
		" Yes ": true,
		"1":     true,
		"on":    true,
		"false": false,
		"0":     false,
		"":      false,
		"maybe": false,
	} {
		if got := StrToBool(str); got != expected {
			t.Fatalf("%q: got %v", str, got)
		}
	}
}
