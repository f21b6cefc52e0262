package sandbox

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
)

// Value is one of: nil (None), bool, int64, float64, string, List, Tuple,
// *Dict, *Native or *Namespace.
type Value = any

type List []Value

type Tuple []Value

// Dict keeps insertion order. Keys are compared with Python equality.
type Dict struct {
	Keys   []Value
	Values []Value
}

func (d *Dict) Get(key Value) (Value, bool) {
	for i, k := range d.Keys {
		if equal(k, key) {
			return d.Values[i], true
		}
	}
	return nil, false
}

func (d *Dict) Set(key Value, value Value) error {
	if !hashable(key) {
		return fmt.Errorf("unhashable type: '%s'", typeName(key))
	}
	for i, k := range d.Keys {
		if equal(k, key) {
			d.Values[i] = value
			return nil
		}
	}
	d.Keys = append(d.Keys, key)
	d.Values = append(d.Values, value)
	return nil
}

func (d *Dict) Len() int {
	return len(d.Keys)
}

// Namespace is one of the fixed module objects, math or random.
type Namespace struct {
	Name    string
	Members map[string]Value
}

// FromGo converts a Go value into a sandbox value.
func FromGo(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case int64:
		return v, nil
	case float64:
		return v, nil
	case string:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return float64(v), nil
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return float64(v), nil
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", v)
		}
		return f, nil
	case List, Tuple, *Dict, *Native, *Namespace:
		return v, nil
	case []any:
		ret := make(List, 0, len(v))
		for _, e := range v {
			elem, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			ret = append(ret, elem)
		}
		return ret, nil
	case map[string]any:
		d := new(Dict)
		for _, k := range slices.Sorted(maps.Keys(v)) {
			elem, err := FromGo(v[k])
			if err != nil {
				return nil, err
			}
			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, elem)
		}
		return d, nil
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Slice, reflect.Array:
		l := value.Len()
		ret := make(List, 0, l)
		for i := range l {
			elem, err := FromGo(value.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			ret = append(ret, elem)
		}
		return ret, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(), nil
	case reflect.Float32, reflect.Float64:
		return value.Float(), nil
	case reflect.String:
		return value.String(), nil
	case reflect.Bool:
		return value.Bool(), nil
	}

	return nil, fmt.Errorf("unsupported value type %T", v)
}

func typeName(v Value) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case List:
		return "list"
	case Tuple:
		return "tuple"
	case *Dict:
		return "dict"
	case *Native:
		return "builtin_function_or_method"
	case *Namespace:
		return "module"
	}
	return fmt.Sprintf("%T", v)
}

// Truthy follows Python truth testing.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case List:
		return len(v) > 0
	case Tuple:
		return len(v) > 0
	case *Dict:
		return v.Len() > 0
	}
	return true
}

func hashable(v Value) bool {
	switch v := v.(type) {
	case nil, bool, int64, float64, string:
		return true
	case Tuple:
		for _, e := range v {
			if !hashable(e) {
				return false
			}
		}
		return true
	}
	return false
}

// asNumber reports the numeric view of v; bool counts as int.
func asNumber(v Value) (i int64, f float64, isInt bool, ok bool) {
	switch v := v.(type) {
	case bool:
		if v {
			return 1, 1, true, true
		}
		return 0, 0, true, true
	case int64:
		return v, float64(v), true, true
	case float64:
		return 0, v, false, true
	}
	return 0, 0, false, false
}

func asInt(v Value) (int64, bool) {
	i, _, isInt, ok := asNumber(v)
	return i, ok && isInt
}

func equal(a, b Value) bool {
	ai, af, aInt, aNum := asNumber(a)
	bi, bf, bInt, bNum := asNumber(b)
	if aNum && bNum {
		if aInt && bInt {
			return ai == bi
		}
		return af == bf
	}
	switch a := a.(type) {
	case nil:
		return b == nil
	case string:
		bs, ok := b.(string)
		return ok && a == bs
	case List:
		bl, ok := b.(List)
		return ok && equalSeq(a, bl)
	case Tuple:
		bt, ok := b.(Tuple)
		return ok && equalSeq(a, bt)
	case *Dict:
		bd, ok := b.(*Dict)
		if !ok || a.Len() != bd.Len() {
			return false
		}
		for i, k := range a.Keys {
			v, ok := bd.Get(k)
			if !ok || !equal(a.Values[i], v) {
				return false
			}
		}
		return true
	case *Native:
		return a == b
	case *Namespace:
		return a == b
	}
	return false
}

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// compare orders a and b, failing for types Python cannot order.
func compare(op string, a, b Value) (int, error) {
	ai, af, aInt, aNum := asNumber(a)
	bi, bf, bInt, bNum := asNumber(b)
	if aNum && bNum {
		if aInt && bInt {
			return cmpOrdered(ai, bi), nil
		}
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, errUnordered
		}
		return cmpOrdered(af, bf), nil
	}
	switch a := a.(type) {
	case string:
		if bs, ok := b.(string); ok {
			return cmpOrdered(a, bs), nil
		}
	case List:
		if bl, ok := b.(List); ok {
			return compareSeq(op, a, bl)
		}
	case Tuple:
		if bt, ok := b.(Tuple); ok {
			return compareSeq(op, a, bt)
		}
	}
	return 0, fmt.Errorf("'%s' not supported between instances of '%s' and '%s'", op, typeName(a), typeName(b))
}

var errUnordered = fmt.Errorf("nan is unordered")

func compareSeq(op string, a, b []Value) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if equal(a[i], b[i]) {
			continue
		}
		return compare(op, a[i], b[i])
	}
	return cmpOrdered(len(a), len(b)), nil
}

func cmpOrdered[T int | int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ToGo converts a sandbox value into plain Go values suitable for
// encoding. Lists and tuples become []any and dicts become map[string]any
// keyed by the str() form of each key. Finite floats become json.Number
// in repr form, so 4.0 stays a float after a JSON round trip.
func ToGo(v Value) any {
	switch v := v.(type) {
	case List:
		ret := make([]any, 0, len(v))
		for _, e := range v {
			ret = append(ret, ToGo(e))
		}
		return ret
	case Tuple:
		ret := make([]any, 0, len(v))
		for _, e := range v {
			ret = append(ret, ToGo(e))
		}
		return ret
	case *Dict:
		ret := make(map[string]any, v.Len())
		for i, k := range v.Keys {
			ret[Format(k)] = ToGo(v.Values[i])
		}
		return ret
	case *Native:
		return v.Name
	case *Namespace:
		return v.Name
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FormatFloat(v)
		}
		return json.Number(FormatFloat(v))
	}
	return v
}
