package grammar

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Definition is the source form of a grammar. It is written in YAML:
//
//	name: expr
//	start: expr
//	error: error
//	terminals:
//	  - name: id
//	    pattern: "[a-z]+"
//	  - name: add
//	    literal: "+"
//	  - name: ws
//	    pattern: "[\u0009 ]+"
//	    skip: true
//	precedence:
//	  - left: [add]
//	rules:
//	  - lhs: expr
//	    rhs: expr add expr
//	  - lhs: expr
//	    rhs: id
type Definition struct {
	Name       string                  `yaml:"name"`
	Start      string                  `yaml:"start"`
	Error      string                  `yaml:"error"`
	Wildcard   string                  `yaml:"wildcard"`
	Terminals  []*TerminalDefinition   `yaml:"terminals"`
	Fallback   []*FallbackDefinition   `yaml:"fallback"`
	Precedence []*PrecedenceDefinition `yaml:"precedence"`
	Rules      []*RuleDefinition       `yaml:"rules"`
}

type TerminalDefinition struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Literal string `yaml:"literal"`
	Skip    bool   `yaml:"skip"`
	Line    int    `yaml:"-"`
}

func (d *TerminalDefinition) UnmarshalYAML(value *yaml.Node) error {
	type plain TerminalDefinition
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = TerminalDefinition(p)
	d.Line = value.Line
	return nil
}

// FallbackDefinition makes each terminal in From parse as To wherever From itself has no entry.
type FallbackDefinition struct {
	To   string   `yaml:"to"`
	From []string `yaml:"from"`
	Line int      `yaml:"-"`
}

func (d *FallbackDefinition) UnmarshalYAML(value *yaml.Node) error {
	type plain FallbackDefinition
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = FallbackDefinition(p)
	d.Line = value.Line
	return nil
}

// PrecedenceDefinition is one precedence level. Levels listed earlier bind tighter.
// Exactly one of Left, Right, and NonAssoc is set.
type PrecedenceDefinition struct {
	Left     []string `yaml:"left"`
	Right    []string `yaml:"right"`
	NonAssoc []string `yaml:"nonassoc"`
	Line     int      `yaml:"-"`
}

func (d *PrecedenceDefinition) UnmarshalYAML(value *yaml.Node) error {
	type plain PrecedenceDefinition
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = PrecedenceDefinition(p)
	d.Line = value.Line
	return nil
}

// RuleDefinition is a production. RHS is a space-separated list of symbol names; an empty RHS is an
// epsilon production. Prec names a terminal whose precedence the rule takes.
type RuleDefinition struct {
	LHS  string `yaml:"lhs"`
	RHS  string `yaml:"rhs"`
	Prec string `yaml:"prec"`
	Line int    `yaml:"-"`
}

func (d *RuleDefinition) UnmarshalYAML(value *yaml.Node) error {
	type plain RuleDefinition
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = RuleDefinition(p)
	d.Line = value.Line
	return nil
}

// ParseDefinition reads a grammar definition.
func ParseDefinition(src io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)
	def := &Definition{}
	err := dec.Decode(def)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("a grammar definition is empty")
		}
		return nil, err
	}
	return def, nil
}
