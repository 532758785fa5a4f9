package refinement

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/notargets/airmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two 1 mm cubes 10 mm apart, normalized with 400 mm padding
var (
	twoCubes = types.NewBox(0.4, 0.4, 0.4, 0.411, 0.401, 0.401)
	padding  = 0.4
	approx   = cmpopts.EquateApprox(0, 1.e-12)
)

func TestPlanDefault(t *testing.T) {
	plan, err := Plan(twoCubes, padding, Overrides{}, Default, 0.001)
	require.NoError(t, err)
	want := types.MeshSizingPlan{
		OuterSize:     0.08043,
		InnerSize:     0.00161,
		InnerDistance: 0.002,
		OuterDistance: 0.01,
	}
	if diff := cmp.Diff(want, plan, approx); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanPresets(t *testing.T) {
	draft, err := Plan(twoCubes, padding, Overrides{}, Draft, 0.001)
	require.NoError(t, err)
	assert.InDelta(t, 0.12065, draft.OuterSize, 1.e-12)
	assert.InDelta(t, 0.00241, draft.InnerSize, 1.e-12)

	fine, err := Plan(twoCubes, padding, Overrides{}, Fine, 0.001)
	require.NoError(t, err)
	assert.InDelta(t, 2.413/40, fine.OuterSize, 1.e-5)
	assert.InDelta(t, fine.OuterSize*FineRefinementFactor, fine.InnerSize, 1.e-5)
	assert.Less(t, fine.OuterSize, draft.OuterSize)
}

func TestPlanUserFactorBeatsPreset(t *testing.T) {
	ov := Overrides{RefinementFactor: User(0.05)}
	plan, err := Plan(twoCubes, padding, ov, Fine, 0.001)
	require.NoError(t, err)
	assert.InDelta(t, plan.OuterSize*0.05, plan.InnerSize, 1.e-5)

	// A factor that only carries a default is replaced by the fine preset
	ov = Overrides{RefinementFactor: DefaultSetting(0.05)}
	plan, err = Plan(twoCubes, padding, ov, Fine, 0.001)
	require.NoError(t, err)
	assert.InDelta(t, plan.OuterSize*FineRefinementFactor, plan.InnerSize, 1.e-5)

	// Under the default preset a default carried value is used
	plan, err = Plan(twoCubes, padding, ov, Default, 0.001)
	require.NoError(t, err)
	assert.InDelta(t, 0.00402, plan.InnerSize, 1.e-12)
}

func TestPlanLengthOverridesAreScaled(t *testing.T) {
	ov := Overrides{
		OuterSize:     User(50),
		InnerDistance: User(5),
		OuterDistance: User(40),
	}
	plan, err := Plan(twoCubes, padding, ov, Default, 0.001)
	require.NoError(t, err)
	want := types.MeshSizingPlan{OuterSize: 0.05, InnerSize: 0.001, InnerDistance: 0.005, OuterDistance: 0.04}
	if diff := cmp.Diff(want, plan, approx); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanPostconditions(t *testing.T) {
	presets := []Preset{Draft, Default, Fine}
	factors := []Setting{{}, User(0.001), User(0.5), DefaultSetting(0.2)}
	distances := [][2]Setting{{}, {User(1), User(1)}, {User(0.5), User(100)}}
	for _, preset := range presets {
		for _, f := range factors {
			for _, d := range distances {
				ov := Overrides{RefinementFactor: f, InnerDistance: d[0], OuterDistance: d[1]}
				plan, err := Plan(twoCubes, padding, ov, preset, 0.001)
				require.NoError(t, err, "%s %s %v", preset, f, d)
				assert.Positive(t, plan.OuterSize)
				assert.Positive(t, plan.InnerSize)
				assert.Positive(t, plan.InnerDistance)
				assert.Positive(t, plan.OuterDistance)
				assert.LessOrEqual(t, plan.InnerSize, plan.OuterSize)
				assert.LessOrEqual(t, plan.InnerDistance, plan.OuterDistance)
			}
		}
	}
}

func TestPlanInvalid(t *testing.T) {
	tests := []struct {
		name string
		ov   Overrides
	}{
		{"factor above one", Overrides{RefinementFactor: User(2)}},
		{"distances reversed", Overrides{InnerDistance: User(20), OuterDistance: User(5)}},
		{"negative outer size", Overrides{OuterSize: User(-1)}},
		{"inner size rounds to zero", Overrides{RefinementFactor: User(1.e-6)}},
		{"zero distance", Overrides{InnerDistance: User(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(twoCubes, padding, tt.ov, Default, 0.001)
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
	_, err := Plan(twoCubes, padding, Overrides{}, Preset(9), 0.001)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestPresetAndSetting(t *testing.T) {
	p, err := NewPreset("fine")
	require.NoError(t, err)
	assert.Equal(t, Fine, p)
	assert.Equal(t, "draft", Draft.String())
	_, err = NewPreset("ultra")
	assert.Error(t, err)

	assert.Equal(t, "unset", Setting{}.String())
	assert.Equal(t, "0.05 (user)", User(0.05).String())
	assert.Equal(t, 3., Setting{}.Or(3))
	assert.Equal(t, 0., User(0).Or(3))
}
