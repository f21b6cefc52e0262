package sandbox

import (
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	d := new(Dict)
	if err := d.Set("a", int64(1)); err != nil {
		t.Fatal(err)
	}
	if err := d.Set(List{}, int64(1)); err == nil {
		t.Fatal("list key should be unhashable")
	}

	cases := []struct {
		value    Value
		expected string
	}{
		{nil, "None"},
		{true, "True"},
		{int64(-3), "-3"},
		{4.0, "4.0"},
		{2.5, "2.5"},
		{1e16, "1e+16"},
		{1e-5, "1e-05"},
		{0.0001, "0.0001"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
		{math.Copysign(0, -1), "-0.0"},
		{"it's", "it's"},
		{List{"a", int64(1)}, "['a', 1]"},
		{List{"it's"}, `["it's"]`},
		{Tuple{int64(1)}, "(1,)"},
		{Tuple{}, "()"},
		{d, "{'a': 1}"},
		{Sqrt, "<built-in function sqrt>"},
		{mathNamespace, "<module 'math'>"},
	}
	for _, c := range cases {
		if got := Format(c.value); got != c.expected {
			t.Fatalf("got %s, expected %s", got, c.expected)
		}
	}

	if got := Repr("a\nb"); got != `'a\nb'` {
		t.Fatalf("got %s", got)
	}
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"b": []any{1, 2.5, "x"},
		"a": uint8(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := Repr(v); got != "{'a': 3, 'b': [1, 2.5, 'x']}" {
		t.Fatalf("got %s", got)
	}
	if _, err := FromGo(struct{}{}); err == nil {
		t.Fatal("should error")
	}
}
