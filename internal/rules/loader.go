package rules

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// RuleFile is the on-disk rule set format
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec describes one rule. Exactly one of Conditions or Expression must be set.
type RuleSpec struct {
	Name       string         `yaml:"name"`
	Priority   int            `yaml:"priority"`
	Conditions *ConditionSpec `yaml:"conditions"`
	Expression string         `yaml:"expression"`
	Event      Event          `yaml:"event"`
}

// ConditionSpec is the YAML form of a condition tree node
type ConditionSpec struct {
	All        []ConditionSpec `yaml:"all"`
	Any        []ConditionSpec `yaml:"any"`
	Not        *ConditionSpec  `yaml:"not"`
	Fact       string          `yaml:"fact"`
	Operator   Operator        `yaml:"operator"`
	Value      any             `yaml:"value"`
	ValueFact  string          `yaml:"valueFact"`
	Expression string          `yaml:"expression"`
}

// LoadRuleFile reads YAML rules from path
func LoadRuleFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and compiles a YAML rule document
func ParseRules(data []byte) ([]Rule, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}

	out := make([]Rule, 0, len(file.Rules))
	seen := make(map[string]bool, len(file.Rules))
	for i, spec := range file.Rules {
		if spec.Name == "" {
			return nil, fmt.Errorf("rule %d: name is required", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("rule %q: duplicate name", spec.Name)
		}
		seen[spec.Name] = true

		r, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s RuleSpec) build() (Rule, error) {
	if s.Event.Message == "" {
		return nil, errors.New("event message is required")
	}

	var cond Condition
	switch {
	case s.Expression != "" && s.Conditions != nil:
		return nil, errors.New("set either conditions or expression, not both")
	case s.Expression != "":
		e, err := NewExpr(s.Expression)
		if err != nil {
			return nil, err
		}
		cond = e
	case s.Conditions != nil:
		c, err := s.Conditions.build()
		if err != nil {
			return nil, err
		}
		cond = c
	default:
		return nil, errors.New("conditions or expression is required")
	}

	return DeclarativeRule{
		RuleName:     s.Name,
		RulePriority: s.Priority,
		Conditions:   cond,
		Event:        s.Event,
	}, nil
}

func (c ConditionSpec) build() (Condition, error) {
	set := 0
	for _, b := range []bool{len(c.All) > 0, len(c.Any) > 0, c.Not != nil, c.Fact != "", c.Expression != ""} {
		if b {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("a condition must have exactly one of all, any, not, fact or expression")
	}

	switch {
	case len(c.All) > 0:
		children, err := buildAll(c.All)
		return AllOf(children), err
	case len(c.Any) > 0:
		children, err := buildAll(c.Any)
		return AnyOf(children), err
	case c.Not != nil:
		inner, err := c.Not.build()
		if err != nil {
			return nil, err
		}
		return Not{Cond: inner}, nil
	case c.Expression != "":
		e, err := NewExpr(c.Expression)
		if err != nil {
			return nil, err
		}
		return e, nil
	}

	if !c.Operator.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
	}
	operand := Value(c.Value)
	if c.ValueFact != "" {
		operand = FactRef(c.ValueFact)
	}
	return Leaf{Fact: c.Fact, Operator: c.Operator, Operand: operand}, nil
}

func buildAll(specs []ConditionSpec) ([]Condition, error) {
	out := make([]Condition, 0, len(specs))
	for _, s := range specs {
		c, err := s.build()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
