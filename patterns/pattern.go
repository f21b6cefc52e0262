package patterns

import (
	"encoding/json"
	"slices"
	"time"
)

// Pattern is a parameterized question: a template, the variables that fill
// it and the rules a drawn instance must satisfy.
type Pattern struct {
	ID               string    `json:"pattern_id" validate:"required,patternid"`
	Topic            string    `json:"topic" validate:"required"`
	Marks            int       `json:"marks" validate:"gte=0"`
	Difficulty       float64   `json:"difficulty" validate:"gte=0,lte=1"`
	TemplateText     string    `json:"template_text" validate:"required"`
	Variables        Variables `json:"variables"`
	SolutionTemplate []string  `json:"solution_template"`
	AnswerTemplate   string    `json:"answer_template"`
	SocraticHints    []Hint    `json:"socratic_hints" validate:"dive"`
	ValidationRules  []string  `json:"validation_rules" validate:"dive,required"`
	SolverCode       string    `json:"solver_code,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitzero"`
	UpdatedAt        time.Time `json:"updated_at,omitzero"`
}

type Hint struct {
	Level int    `json:"level" validate:"gte=0"`
	Hint  string `json:"hint" validate:"required"`
	Nudge string `json:"nudge,omitempty"`
}

// Clone returns a deep copy. Cached patterns are only handed out as clones.
func (p *Pattern) Clone() *Pattern {
	ret := *p
	ret.Variables = slices.Clone(p.Variables)
	for i, variable := range ret.Variables {
		if choice, ok := variable.Spec.(ChoiceSpec); ok {
			ret.Variables[i].Spec = ChoiceSpec{
				Choices: slices.Clone(choice.Choices),
			}
		}
	}
	ret.SolutionTemplate = slices.Clone(p.SolutionTemplate)
	ret.SocraticHints = slices.Clone(p.SocraticHints)
	ret.ValidationRules = slices.Clone(p.ValidationRules)
	return &ret
}

func DecodePattern(data []byte) (*Pattern, error) {
	var p Pattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func EncodePattern(p *Pattern) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// PatternUpdate holds the fields to change; nil fields are kept.
type PatternUpdate struct {
	Topic            *string
	Marks            *int
	Difficulty       *float64
	TemplateText     *string
	Variables        *Variables
	SolutionTemplate *[]string
	AnswerTemplate   *string
	SocraticHints    *[]Hint
	ValidationRules  *[]string
	SolverCode       *string
}

func (u PatternUpdate) apply(p *Pattern) {
	if u.Topic != nil {
		p.Topic = *u.Topic
	}
	if u.Marks != nil {
		p.Marks = *u.Marks
	}
	if u.Difficulty != nil {
		p.Difficulty = *u.Difficulty
	}
	if u.TemplateText != nil {
		p.TemplateText = *u.TemplateText
	}
	if u.Variables != nil {
		p.Variables = slices.Clone(*u.Variables)
	}
	if u.SolutionTemplate != nil {
		p.SolutionTemplate = slices.Clone(*u.SolutionTemplate)
	}
	if u.AnswerTemplate != nil {
		p.AnswerTemplate = *u.AnswerTemplate
	}
	if u.SocraticHints != nil {
		p.SocraticHints = slices.Clone(*u.SocraticHints)
	}
	if u.ValidationRules != nil {
		p.ValidationRules = slices.Clone(*u.ValidationRules)
	}
	if u.SolverCode != nil {
		p.SolverCode = *u.SolverCode
	}
}

// UpdateFromPattern builds an update that replaces every content field
// with the ones in p.
func UpdateFromPattern(p *Pattern) PatternUpdate {
	return PatternUpdate{
		Topic:            &p.Topic,
		Marks:            &p.Marks,
		Difficulty:       &p.Difficulty,
		TemplateText:     &p.TemplateText,
		Variables:        &p.Variables,
		SolutionTemplate: &p.SolutionTemplate,
		AnswerTemplate:   &p.AnswerTemplate,
		SocraticHints:    &p.SocraticHints,
		ValidationRules:  &p.ValidationRules,
		SolverCode:       &p.SolverCode,
	}
}
