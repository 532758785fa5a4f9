package memkernel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/mesh/readers"
	"github.com/notargets/airmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func twoCubes() []Shape {
	return []Shape{
		{Name: "Shapes/magnet_1_0_0", Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}},
		{Name: "Shapes/iron", Min: [3]float64{10, 0, 0}, Max: [3]float64{11, 1, 1}},
	}
}

func TestImportAndEnumerate(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("part.igs", twoCubes()...))
	vols, err := k.Import(ctx, "part.igs")
	require.NoError(t, err)
	assert.Equal(t, []types.Entity{types.Volume(1), types.Volume(2)}, vols)

	surfaces, err := k.Entities(ctx, types.DimSurface)
	require.NoError(t, err)
	assert.Len(t, surfaces, 12)

	name, err := k.EntityName(types.Volume(2))
	require.NoError(t, err)
	assert.Equal(t, "Shapes/iron", name)

	box, err := k.BoundingBox(ctx)
	require.NoError(t, err)
	assert.True(t, box.Equal(types.NewBox(0, 0, 0, 11, 1, 1), 1.e-12))

	_, err = k.Import(ctx, "other.igs")
	assert.Error(t, err)
	_, err = k.EntityName(types.Volume(7))
	assert.ErrorIs(t, err, kernel.ErrEntityUnknown)
}

func TestEmptyModel(t *testing.T) {
	_, err := New().BoundingBox(context.Background())
	assert.ErrorIs(t, err, kernel.ErrNoGeometry)
}

func TestDilateTranslate(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("p", twoCubes()...))
	vols, err := k.Import(ctx, "p")
	require.NoError(t, err)
	require.NoError(t, k.Dilate(vols, 0.001))
	require.NoError(t, k.Translate(vols, r3.Vec{X: 1, Y: 2, Z: 3}))
	box, err := k.BoundingBox(ctx, vols...)
	require.NoError(t, err)
	assert.True(t, box.Equal(types.NewBox(1, 2, 3, 1.011, 2.001, 3.001), 1.e-12), box.String())
	// Faces move with their volumes, each exactly once
	face, err := k.BoundingBox(ctx, types.Surface(2))
	require.NoError(t, err)
	assert.True(t, face.Equal(types.NewBox(1.001, 2, 3, 1.001, 2.001, 3.001), 1.e-12), face.String())

	assert.Error(t, k.Dilate(vols, 0))
}

func TestRemoveDuplicates(t *testing.T) {
	ctx := context.Background()
	shapes := append(twoCubes(), Shape{Name: "copy", Max: [3]float64{1, 1, 1}})
	k := New(WithShapes("p", shapes...))
	_, err := k.Import(ctx, "p")
	require.NoError(t, err)
	removed, err := k.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	vols, err := k.Entities(ctx, types.DimVolume)
	require.NoError(t, err)
	assert.Equal(t, []types.Entity{types.Volume(1), types.Volume(2)}, vols)
	surfaces, err := k.Entities(ctx, types.DimSurface)
	require.NoError(t, err)
	assert.Len(t, surfaces, 12)

	removed, err = k.RemoveDuplicates(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestFragmentSharesFaces(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("p", twoCubes()...))
	bodies, err := k.Import(ctx, "p")
	require.NoError(t, err)
	air, err := k.AddBox(ctx, types.NewBox(-5, -5, -5, 20, 6, 6))
	require.NoError(t, err)
	assert.Equal(t, types.Volume(3), air)

	result, err := k.Fragment(ctx, []types.Entity{air}, bodies)
	require.NoError(t, err)
	// Bodies keep their tags, the air volume is renumbered
	assert.Equal(t, []types.Entity{types.Volume(1), types.Volume(2), types.Volume(4)}, result)

	airSurfaces, err := k.BoundingSurfaces(ctx, types.Volume(4))
	require.NoError(t, err)
	assert.Len(t, airSurfaces, 18)
	bodySurfaces, err := k.BoundingSurfaces(ctx, types.Volume(1))
	require.NoError(t, err)
	assert.Subset(t, airSurfaces, bodySurfaces)

	all, err := k.Entities(ctx, types.DimSurface)
	require.NoError(t, err)
	assert.Len(t, all, 18)
	// The air box faces were created last
	assert.Equal(t, types.BoundarySurfaceSet{13, 14, 15, 16, 17, 18}, types.LastSix(types.Tags(all)))
}

func TestCutCopiesFaces(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("p", twoCubes()...))
	bodies, err := k.Import(ctx, "p")
	require.NoError(t, err)
	air, err := k.AddBox(ctx, types.NewBox(-5, -5, -5, 20, 6, 6))
	require.NoError(t, err)
	result, err := k.Cut(ctx, []types.Entity{air}, bodies, false)
	require.NoError(t, err)
	require.Len(t, result, 1)

	airSurfaces, err := k.BoundingSurfaces(ctx, result[0])
	require.NoError(t, err)
	assert.Len(t, airSurfaces, 18)
	all, err := k.Entities(ctx, types.DimSurface)
	require.NoError(t, err)
	assert.Len(t, all, 30)
	// The last six surfaces are tool face copies, not the outer faces
	assert.NotEqual(t, types.BoundarySurfaceSet{13, 14, 15, 16, 17, 18}, types.LastSix(types.Tags(all)))

	vols, err := k.Entities(ctx, types.DimVolume)
	require.NoError(t, err)
	assert.Len(t, vols, 3)
}

func TestBooleanRejectsCrossingVolumes(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("p", twoCubes()...))
	bodies, err := k.Import(ctx, "p")
	require.NoError(t, err)
	air, err := k.AddBox(ctx, types.NewBox(-5, -5, -5, 10.5, 6, 6))
	require.NoError(t, err)
	_, err = k.Fragment(ctx, []types.Entity{air}, bodies)
	assert.Error(t, err)
	_, err = k.Cut(ctx, []types.Entity{air}, bodies, true)
	assert.Error(t, err)
}

func TestFieldsAndGroups(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("p", twoCubes()...))
	_, err := k.Import(ctx, "p")
	require.NoError(t, err)

	require.NoError(t, k.AddPhysicalGroup(types.DimVolume, []int{1}, 1, "Shapes/magnet_1_0_0"))
	assert.Error(t, k.AddPhysicalGroup(types.DimVolume, []int{2}, 1, "again"))
	assert.ErrorIs(t, k.AddPhysicalGroup(types.DimVolume, []int{9}, 9, "missing"), kernel.ErrEntityUnknown)

	_, err = k.AddThresholdField(1, types.MeshSizingPlan{})
	assert.Error(t, err)
	dist, err := k.AddDistanceField([]int{1, 2})
	require.NoError(t, err)
	plan := types.MeshSizingPlan{OuterSize: 0.1, InnerSize: 0.002, InnerDistance: 0.002, OuterDistance: 0.01}
	thr, err := k.AddThresholdField(dist, plan)
	require.NoError(t, err)
	require.NoError(t, k.SetBackgroundField(thr))
	got, surfaces, ok := k.Background()
	require.True(t, ok)
	assert.Equal(t, plan, got)
	assert.Equal(t, []int{1, 2}, surfaces)

	assert.Error(t, k.SetThreads(0))
	require.NoError(t, k.SetThreads(3))
	assert.Equal(t, 3, k.Threads())
}

func TestWriteReadBack(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("p", twoCubes()...))
	bodies, err := k.Import(ctx, "p")
	require.NoError(t, err)
	air, err := k.AddBox(ctx, types.NewBox(-5, -5, -5, 20, 6, 6))
	require.NoError(t, err)
	_, err = k.Fragment(ctx, []types.Entity{air}, bodies)
	require.NoError(t, err)
	require.NoError(t, k.AddPhysicalGroup(types.DimVolume, []int{4}, 4, "air"))
	require.NoError(t, k.Generate(ctx, types.DimVolume))
	assert.True(t, k.Generated())

	path := filepath.Join(t.TempDir(), "out.msh")
	require.NoError(t, k.Write(ctx, path))
	m, err := readers.ReadGmsh4(path)
	require.NoError(t, err)
	st := m.Statistics()
	assert.Equal(t, 3, st.Volumes)
	assert.Equal(t, 18, st.Surfaces)
	assert.Equal(t, 1, st.PhysicalGroups)
	airEnt := m.Entities[types.Volume(4)]
	require.NotNil(t, airEnt)
	assert.Equal(t, []int{4}, airEnt.PhysicalTags)
	assert.Len(t, airEnt.BoundingEntities, 18)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	k := New(WithShapes("p", twoCubes()...))
	require.NoError(t, k.Close())
	assert.True(t, k.Closed())
	_, err := k.Import(ctx, "p")
	assert.ErrorIs(t, err, kernel.ErrClosed)
	assert.ErrorIs(t, k.Write(ctx, "x.msh"), kernel.ErrClosed)
	assert.NoError(t, k.Close())
}

func TestLoadScene(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
Shapes:
  - Name: Shapes/coil
    Min: [0, 0, 0]
    Max: [2, 2, 1]
  - Name: Shapes/iron
    Min: [5, 0, 0]
    Max: [6, 1, 1]
`), 0o644))
	k := New()
	vols, err := k.Import(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, vols, 2)
	name, err := k.EntityName(vols[0])
	require.NoError(t, err)
	assert.Equal(t, "Shapes/coil", name)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("Shapes:\n  - Min: [1, 0, 0]\n    Max: [0, 1, 1]\n"), 0o644))
	_, err = LoadScene(bad)
	assert.Error(t, err)
}
