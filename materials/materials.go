/*
Package materials assigns solver material and body force identifiers to bodies by name. Rules
are regular expressions anchored at the start of the name and matched without regard to case,
the first matching rule wins.
*/
package materials

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/notargets/airmesh/types"
)

var ErrUnknownMaterial = errors.New("no material rule matches")

// AirMaterial is assigned to the air body outside of the rule table
const AirMaterial = 1

type Rule struct {
	Pattern string `json:"pattern"`
	ID      int    `json:"id"`
}

var DefaultMaterialRules = []Rule{
	{`Shapes/magnet_1_0_0`, 2},
	{`Shapes/magnet_-1_0_0`, 3},
	{`Shapes/magnet_0_1_0`, 4},
	{`Shapes/magnet_0_-1_0`, 5},
	{`Shapes/magnet_0_0_1`, 6},
	{`Shapes/magnet_0_0_-1`, 7},
	{`Shapes/iron`, 8},
}

var DefaultBodyForceRules = []Rule{
	{`Shapes/coil`, 1},
}

type compiledRule struct {
	re *regexp.Regexp
	id int
}

type Mapper struct {
	materials  []compiledRule
	bodyForces []compiledRule
}

func compile(rules []Rule) (out []compiledRule, err error) {
	for _, r := range rules {
		if r.ID <= 0 {
			return nil, fmt.Errorf("rule %q: id must be positive, have %d", r.Pattern, r.ID)
		}
		re, err := regexp.Compile(`(?i)^(?:` + r.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Pattern, err)
		}
		out = append(out, compiledRule{re: re, id: r.ID})
	}
	return
}

// NewMapper compiles the rule tables, nil tables select the defaults
func NewMapper(materialRules, bodyForceRules []Rule) (m *Mapper, err error) {
	if materialRules == nil {
		materialRules = DefaultMaterialRules
	}
	if bodyForceRules == nil {
		bodyForceRules = DefaultBodyForceRules
	}
	m = &Mapper{}
	if m.materials, err = compile(materialRules); err != nil {
		return nil, err
	}
	if m.bodyForces, err = compile(bodyForceRules); err != nil {
		return nil, err
	}
	return
}

func match(rules []compiledRule, name string) (int, bool) {
	for _, r := range rules {
		if r.re.MatchString(name) {
			return r.id, true
		}
	}
	return 0, false
}

func (m *Mapper) Map(name string) (int, error) {
	if id, ok := match(m.materials, name); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownMaterial, name)
}

// BodyForce returns the body force of a name, no match means no applied force
func (m *Mapper) BodyForce(name string) (int, bool) {
	return match(m.bodyForces, name)
}

// Assign fills in the material and body force of every body
func (m *Mapper) Assign(bodies []types.Body) (out []types.Body, err error) {
	out = make([]types.Body, len(bodies))
	for i, b := range bodies {
		if b.IsAir {
			b.Material = AirMaterial
		} else if b.Material, err = m.Map(b.Name); err != nil {
			return nil, err
		}
		b.BodyForce, _ = m.BodyForce(b.Name)
		out[i] = b
	}
	return
}
