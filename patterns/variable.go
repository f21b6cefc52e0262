package patterns

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// VariableSpec describes how one pattern variable gets its value.
// The set of implementations is closed.
type VariableSpec interface {
	Kind() string
	variableSpec()
}

type IntSpec struct {
	Min int64
	Max int64
}

type FloatSpec struct {
	Min      float64
	Max      float64
	Decimals int
}

type ChoiceSpec struct {
	Choices []any
}

type CalculatedSpec struct {
	Formula string
}

const (
	KindInt        = "int"
	KindFloat      = "float"
	KindChoice     = "choice"
	KindCalculated = "calculated"
)

const DefaultDecimals = 2

func (IntSpec) Kind() string        { return KindInt }
func (FloatSpec) Kind() string      { return KindFloat }
func (ChoiceSpec) Kind() string     { return KindChoice }
func (CalculatedSpec) Kind() string { return KindCalculated }

func (IntSpec) variableSpec()        {}
func (FloatSpec) variableSpec()      {}
func (ChoiceSpec) variableSpec()     {}
func (CalculatedSpec) variableSpec() {}

type Variable struct {
	Name string
	Spec VariableSpec
}

// Variables keeps declaration order, which is also the draw order.
// It encodes as a JSON object whose key order is preserved.
type Variables []Variable

func (v Variables) Get(name string) (VariableSpec, bool) {
	for _, variable := range v {
		if variable.Name == name {
			return variable.Spec, true
		}
	}
	return nil, false
}

func (v Variables) Names() []string {
	ret := make([]string, 0, len(v))
	for _, variable := range v {
		ret = append(ret, variable.Name)
	}
	return ret
}

type variableJSON struct {
	Type     string       `json:"type"`
	Min      *json.Number `json:"min,omitempty"`
	Max      *json.Number `json:"max,omitempty"`
	Decimals *int         `json:"decimals,omitempty"`
	Choices  []any        `json:"choices,omitempty"`
	Formula  string       `json:"formula,omitempty"`
}

func number(s string) *json.Number {
	n := json.Number(s)
	return &n
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func specToJSON(spec VariableSpec) (variableJSON, error) {
	switch spec := spec.(type) {
	case IntSpec:
		return variableJSON{
			Type: KindInt,
			Min:  number(fmt.Sprint(spec.Min)),
			Max:  number(fmt.Sprint(spec.Max)),
		}, nil
	case FloatSpec:
		decimals := spec.Decimals
		return variableJSON{
			Type:     KindFloat,
			Min:      number(formatNumber(spec.Min)),
			Max:      number(formatNumber(spec.Max)),
			Decimals: &decimals,
		}, nil
	case ChoiceSpec:
		choices := spec.Choices
		if choices == nil {
			choices = []any{}
		}
		return variableJSON{
			Type:    KindChoice,
			Choices: choices,
		}, nil
	case CalculatedSpec:
		return variableJSON{
			Type:    KindCalculated,
			Formula: spec.Formula,
		}, nil
	}
	return variableJSON{}, fmt.Errorf("unknown variable spec %T", spec)
}

func jsonInt(n *json.Number, field string) (int64, error) {
	if n == nil {
		return 0, fmt.Errorf("missing %s", field)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%s must be an integer, got %s", field, n.String())
	}
	return int64(f), nil
}

func jsonFloat(n *json.Number, field string) (float64, error) {
	if n == nil {
		return 0, fmt.Errorf("missing %s", field)
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %s", field, n.String())
	}
	return f, nil
}

func specFromJSON(v variableJSON) (spec VariableSpec, err error) {
	switch v.Type {

	case KindInt:
		var s IntSpec
		if s.Min, err = jsonInt(v.Min, "min"); err != nil {
			return nil, err
		}
		if s.Max, err = jsonInt(v.Max, "max"); err != nil {
			return nil, err
		}
		return s, nil

	case KindFloat:
		var s FloatSpec
		if s.Min, err = jsonFloat(v.Min, "min"); err != nil {
			return nil, err
		}
		if s.Max, err = jsonFloat(v.Max, "max"); err != nil {
			return nil, err
		}
		s.Decimals = DefaultDecimals
		if v.Decimals != nil {
			s.Decimals = *v.Decimals
		}
		return s, nil

	case KindChoice:
		return ChoiceSpec{
			Choices: v.Choices,
		}, nil

	case KindCalculated:
		return CalculatedSpec{
			Formula: v.Formula,
		}, nil

	case "":
		return nil, fmt.Errorf("missing type")
	}
	return nil, fmt.Errorf("unknown variable type %q", v.Type)
}

func (v Variables) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for i, variable := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(variable.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		spec, err := specToJSON(variable.Spec)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", variable.Name, err)
		}
		value, err := json.Marshal(spec)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (v *Variables) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if token == nil {
		*v = nil
		return nil
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("variables must be an object")
	}

	var ret Variables
	seen := make(map[string]bool)
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		name := token.(string)
		if seen[name] {
			return fmt.Errorf("duplicated variable %s", name)
		}
		seen[name] = true

		var raw variableJSON
		if err := decoder.Decode(&raw); err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
		spec, err := specFromJSON(raw)
		if err != nil {
			return fmt.Errorf("variable %s: %w", name, err)
		}
		ret = append(ret, Variable{
			Name: name,
			Spec: spec,
		})
	}

	if _, err := decoder.Token(); err != nil {
		return err
	}
	*v = ret
	return nil
}
