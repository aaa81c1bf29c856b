// Package source reads validation configurations from declarative
// documents in XML, YAML or TOML.
//
// A document lists classes. A class carries property rules, object level
// rules, validation methods and Valang rule blocks:
//
//	<validation>
//	  <class name="Customer">
//	    <property name="name">
//	      <rule kind="not-blank" code="required" message="name is required"/>
//	      <rule kind="length" max="64"/>
//	    </property>
//	    <property name="addresses" cascade="true"/>
//	    <valang>{ age : ? >= 18 : 'too young' : age.min }</valang>
//	  </class>
//	</validation>
package source

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Document struct {
	XMLName xml.Name `xml:"validation" yaml:"-" toml:"-"`
	Classes []Class  `xml:"class" yaml:"classes" toml:"class"`
}

// Class returns the class named name.
func (d *Document) Class(name string) (Class, bool) {
	for _, c := range d.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

type Class struct {
	Name       string     `xml:"name,attr" yaml:"name" toml:"name"`
	Properties []Property `xml:"property" yaml:"properties" toml:"property"`
	Global     []RuleDef  `xml:"global>rule" yaml:"global" toml:"global"`
	Methods    []Method   `xml:"method" yaml:"methods" toml:"method"`
	Valang     []string   `xml:"valang" yaml:"valang" toml:"valang"`
}

// Property holds the rules of one property. CascadeIf is a Valang predicate
// over the owning object that guards the cascade.
type Property struct {
	Name      string    `xml:"name,attr" yaml:"name" toml:"name"`
	Cascade   bool      `xml:"cascade,attr,omitempty" yaml:"cascade" toml:"cascade"`
	CascadeIf string    `xml:"cascade-if,attr,omitempty" yaml:"cascade_if" toml:"cascade_if"`
	Rules     []RuleDef `xml:"rule" yaml:"rules" toml:"rule"`
}

// RuleDef declares one condition. Kind selects it: not-null, not-blank,
// length, range, regexp, email, uuid, in-future, in-past or expression.
//
// Expression is the pattern of a regexp rule or the Valang predicate of an
// expression rule. Args is a comma separated list of Valang value
// expressions. ApplyIf is a Valang predicate over the checked value. Field
// is where an object level rule reports its failure.
type RuleDef struct {
	Kind       string `xml:"kind,attr" yaml:"kind" toml:"kind"`
	Min        Bound  `xml:"min,attr,omitempty" yaml:"min" toml:"min"`
	Max        Bound  `xml:"max,attr,omitempty" yaml:"max" toml:"max"`
	Expression string `xml:"expression,attr,omitempty" yaml:"expression" toml:"expression"`
	Code       string `xml:"code,attr,omitempty" yaml:"code" toml:"code"`
	Message    string `xml:"message,attr,omitempty" yaml:"message" toml:"message"`
	Args       string `xml:"args,attr,omitempty" yaml:"args" toml:"args"`
	ApplyIf    string `xml:"apply-if,attr,omitempty" yaml:"apply_if" toml:"apply_if"`
	Contexts   string `xml:"contexts,attr,omitempty" yaml:"contexts" toml:"contexts"`
	Field      string `xml:"field,attr,omitempty" yaml:"field" toml:"field"`
}

// Method declares a validation method of the class, see conditions.Method.
type Method struct {
	Name     string `xml:"name,attr" yaml:"name" toml:"name"`
	Code     string `xml:"code,attr,omitempty" yaml:"code" toml:"code"`
	Message  string `xml:"message,attr,omitempty" yaml:"message" toml:"message"`
	Contexts string `xml:"contexts,attr,omitempty" yaml:"contexts" toml:"contexts"`
}

// Bound is an optional numeric attribute. It reads numbers and numeric
// strings in every supported format.
type Bound struct {
	Value decimal.Decimal
	Set   bool
}

func (b Bound) NullDecimal() decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: b.Value, Valid: b.Set}
}

// Int returns the bound as an int, or -1 when unset.
func (b Bound) Int() int {
	if !b.Set {
		return -1
	}
	return int(b.Value.IntPart())
}

func (b *Bound) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*b = Bound{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("bound %q is not a number", s)
	}
	*b = Bound{Value: d, Set: true}
	return nil
}

func (b Bound) MarshalText() ([]byte, error) {
	if !b.Set {
		return nil, nil
	}
	return []byte(b.Value.String()), nil
}

func (b *Bound) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: bound must be a scalar", node.Line)
	}
	return b.UnmarshalText([]byte(node.Value))
}

func (b *Bound) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case int64:
		*b = Bound{Value: decimal.NewFromInt(v), Set: true}
	case float64:
		*b = Bound{Value: decimal.NewFromFloat(v), Set: true}
	case string:
		return b.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("bound of type %T is not a number", data)
	}
	return nil
}
