package configs

import (
	"testing"
)

func TestFirst(t *testing.T) {
	loader := NewLoader([]string{
		writeFile(t, "user.cue", `generation: max_attempts: 3`),
		writeFile(t, "system.cue", `
generation: max_attempts: 20
str: "bar"
`),
	}, testSchema)

	if n := First[int](loader, "generation.max_attempts"); n != 3 {
		t.Fatalf("got %v", n)
	}
	if str := First[string](loader, "str"); str != "bar" {
		t.Fatalf("got %v", str)
	}

	n, ok, err := Lookup[int](loader, "generation.max_attempts")
	if err != nil || !ok || n != 3 {
		t.Fatalf("got %v %v %v", n, ok, err)
	}
}
