package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/kernel/memkernel"
	"github.com/notargets/airmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyKernel counts boolean requests and can fail them
type spyKernel struct {
	kernel.Kernel
	booleans int
	fail     error
}

func (s *spyKernel) Cut(ctx context.Context, objects, tools []types.Entity, removeTool bool) ([]types.Entity, error) {
	s.booleans++
	if s.fail != nil {
		return nil, s.fail
	}
	return s.Kernel.Cut(ctx, objects, tools, removeTool)
}

func (s *spyKernel) Fragment(ctx context.Context, objects, tools []types.Entity) ([]types.Entity, error) {
	s.booleans++
	if s.fail != nil {
		return nil, s.fail
	}
	return s.Kernel.Fragment(ctx, objects, tools)
}

var airBox = types.NewBox(0, 0, 0, 0.811, 0.801, 0.801)

func setup(t *testing.T, shapes ...memkernel.Shape) (*spyKernel, []types.Entity) {
	t.Helper()
	if len(shapes) == 0 {
		shapes = []memkernel.Shape{
			{Name: "Shapes/magnet_1_0_0", Min: [3]float64{0.4, 0.4, 0.4}, Max: [3]float64{0.401, 0.401, 0.401}},
			{Name: "Shapes/iron", Min: [3]float64{0.41, 0.4, 0.4}, Max: [3]float64{0.411, 0.401, 0.401}},
		}
	}
	mk := memkernel.New(memkernel.WithShapes("part.igs", shapes...))
	vols, err := mk.Import(context.Background(), "part.igs")
	require.NoError(t, err)
	return &spyKernel{Kernel: mk}, vols
}

func TestSynthesizeFragment(t *testing.T) {
	k, vols := setup(t)
	res, err := NewSynthesizer(nil).Synthesize(context.Background(), k, vols, airBox, Fragment)
	require.NoError(t, err)

	assert.Equal(t, 1, k.booleans)
	assert.True(t, res.Air.IsAir)
	assert.Equal(t, AirName, res.Air.Name)
	assert.Equal(t, 4, res.Air.Tag)
	assert.Equal(t, []types.Body{
		{Name: "Shapes/magnet_1_0_0", Tag: 1},
		{Name: "Shapes/iron", Tag: 2},
	}, res.Bodies)
	assert.Equal(t, types.BoundarySurfaceSet{13, 14, 15, 16, 17, 18}, res.Boundary)
	assert.Equal(t, "13 14 15 16 17 18", res.Boundary.String())
	assert.Len(t, res.BodySurfaces, 12)
	assert.Equal(t, res.Boundary, res.LastSix)
}

func TestSynthesizeCut(t *testing.T) {
	k, vols := setup(t)
	res, err := NewSynthesizer(nil).Synthesize(context.Background(), k, vols, airBox, Cut)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Air.Tag)
	assert.Len(t, res.Bodies, 2)
	// The air box faces are found even though the kernel enumerates the tool face copies last
	assert.Equal(t, types.BoundarySurfaceSet{13, 14, 15, 16, 17, 18}, res.Boundary)
	assert.NotEqual(t, res.Boundary, res.LastSix)
}

func TestSynthesizeDuplicates(t *testing.T) {
	cube := memkernel.Shape{Name: "Shapes/iron", Min: [3]float64{0.4, 0.4, 0.4}, Max: [3]float64{0.401, 0.401, 0.401}}
	k, vols := setup(t, cube, cube)
	_, err := NewSynthesizer(nil).Synthesize(context.Background(), k, vols, airBox, Fragment)
	assert.ErrorIs(t, err, ErrDuplicateGeometry)
	assert.Zero(t, k.booleans)
}

func TestSynthesizeKernelFailure(t *testing.T) {
	k, vols := setup(t)
	k.fail = errors.New("degenerate boolean")
	_, err := NewSynthesizer(nil).Synthesize(context.Background(), k, vols, airBox, Fragment)
	assert.ErrorIs(t, err, ErrDomainSynthesis)
	assert.Contains(t, err.Error(), "degenerate boolean")
	assert.Equal(t, 1, k.booleans)
}

func TestSynthesizeAirTooSmall(t *testing.T) {
	k, vols := setup(t)
	_, err := NewSynthesizer(nil).Synthesize(context.Background(), k, vols, types.NewBox(0, 0, 0, 0.405, 1, 1), Fragment)
	assert.ErrorIs(t, err, ErrDomainSynthesis)
	assert.Zero(t, k.booleans)

	_, err = NewSynthesizer(nil).Synthesize(context.Background(), k, nil, airBox, Fragment)
	assert.ErrorIs(t, err, ErrDomainSynthesis)
}

func TestPolicy(t *testing.T) {
	p, err := NewPolicy("cut")
	require.NoError(t, err)
	assert.Equal(t, Cut, p)
	assert.Equal(t, "fragment", Fragment.String())
	_, err = NewPolicy("union")
	assert.Error(t, err)
}
