/*
Package refinement derives the sizing plan of the distance/threshold field from user overrides,
a named preset and the extent of the padded study domain.
*/
package refinement

import (
	"errors"
	"fmt"

	"github.com/notargets/airmesh/types"
	"gonum.org/v1/gonum/floats/scalar"
)

var ErrInvalidPlan = errors.New("invalid mesh sizing plan")

const (
	DefaultRefinementFactor = 0.02
	FineRefinementFactor    = 0.01
	// Distances in the native units of the input, scaled like the geometry
	DefaultInnerDistance = 2.
	DefaultOuterDistance = 10.
	roundingPlaces       = 5
)

type Preset uint8

const (
	Default Preset = iota
	Draft
	Fine
)

var PresetNameMap = map[string]Preset{
	"default": Default,
	"draft":   Draft,
	"fine":    Fine,
}

// Padded domain edge sum divided by this gives the far field element size
var PresetDivisor = map[Preset]float64{
	Draft:   20,
	Default: 30,
	Fine:    40,
}

func NewPreset(label string) (Preset, error) {
	if p, ok := PresetNameMap[label]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown preset %q, use draft, default or fine", label)
}

func (p Preset) String() string {
	for name, pp := range PresetNameMap {
		if p == pp {
			return name
		}
	}
	return fmt.Sprintf("Preset(%d)", p)
}

// Origin tells where a setting's value came from
type Origin uint8

const (
	Unset Origin = iota
	FromDefault
	FromUser
)

func (o Origin) String() string {
	return [...]string{"unset", "default", "user"}[o]
}

type Setting struct {
	Value  float64
	Origin Origin
}

func User(v float64) Setting { return Setting{Value: v, Origin: FromUser} }
func DefaultSetting(v float64) Setting { return Setting{Value: v, Origin: FromDefault} }

func (s Setting) IsSet() bool  { return s.Origin != Unset }
func (s Setting) IsUser() bool { return s.Origin == FromUser }

// Or returns the value when set, def otherwise
func (s Setting) Or(def float64) float64 {
	if s.IsSet() {
		return s.Value
	}
	return def
}

func (s Setting) String() string {
	if !s.IsSet() {
		return "unset"
	}
	return fmt.Sprintf("%g (%s)", s.Value, s.Origin)
}

// Overrides carries the sizing dials. Lengths are in the native units of the input.
type Overrides struct {
	OuterSize        Setting
	RefinementFactor Setting
	InnerDistance    Setting
	OuterDistance    Setting
}

/*
Plan computes the sizing plan in meters. bodyBox and padding are already in meters, scale
converts the native length overrides. A preset only replaces values the user did not set.
The plan is validated, never clamped: a combination violating the ordering or positivity of
the fields fails with ErrInvalidPlan.
*/
func Plan(bodyBox types.Box, padding float64, ov Overrides, preset Preset, scale float64) (plan types.MeshSizingPlan, err error) {
	var (
		divisor, ok = PresetDivisor[preset]
		factor      float64
	)
	if !ok {
		err = fmt.Errorf("%w: unknown preset %d", ErrInvalidPlan, preset)
		return
	}
	if scale <= 0 {
		err = fmt.Errorf("%w: scale factor %g", ErrInvalidPlan, scale)
		return
	}
	if ov.OuterSize.IsSet() {
		plan.OuterSize = ov.OuterSize.Value * scale
	} else {
		plan.OuterSize = scalar.Round(bodyBox.Pad(padding).EdgeSum()/divisor, roundingPlaces)
	}

	switch {
	case ov.RefinementFactor.IsUser():
		factor = ov.RefinementFactor.Value
	case preset == Fine:
		factor = FineRefinementFactor
	default:
		factor = ov.RefinementFactor.Or(DefaultRefinementFactor)
	}
	plan.InnerSize = scalar.Round(plan.OuterSize*factor, roundingPlaces)
	plan.InnerDistance = ov.InnerDistance.Or(DefaultInnerDistance) * scale
	plan.OuterDistance = ov.OuterDistance.Or(DefaultOuterDistance) * scale

	err = Validate(plan)
	return
}

func Validate(plan types.MeshSizingPlan) error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"outer size", plan.OuterSize},
		{"inner size", plan.InnerSize},
		{"inner distance", plan.InnerDistance},
		{"outer distance", plan.OuterDistance},
	} {
		if !(f.value > 0) {
			return fmt.Errorf("%w: %s must be positive, have %g", ErrInvalidPlan, f.name, f.value)
		}
	}
	if plan.InnerSize > plan.OuterSize {
		return fmt.Errorf("%w: inner size %g exceeds outer size %g", ErrInvalidPlan, plan.InnerSize, plan.OuterSize)
	}
	if plan.InnerDistance > plan.OuterDistance {
		return fmt.Errorf("%w: inner distance %g exceeds outer distance %g",
			ErrInvalidPlan, plan.InnerDistance, plan.OuterDistance)
	}
	return nil
}
