package solverconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notargets/airmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBodies() []types.Body {
	return []types.Body{
		{Name: "Shapes/magnet_1_0_0", Tag: 1, Material: 2},
		{Name: "Shapes/coil", Tag: 2, Material: 9, BodyForce: 1},
		{Name: "Shapes/air", Tag: 4, Material: 1, IsAir: true},
	}
}

func TestNewData(t *testing.T) {
	d := NewData("mesh", testBodies(), types.BoundarySurfaceSet{13, 14}, nil, nil)
	require.Len(t, d.Materials, 3)
	assert.Equal(t, []int{1, 2, 9}, []int{d.Materials[0].ID, d.Materials[1].ID, d.Materials[2].ID})
	assert.Equal(t, "Air", d.Materials[0].Name)
	assert.True(t, d.Materials[1].HasMagnetization())
	assert.Equal(t, "Material 9", d.Materials[2].Name)
	require.Len(t, d.BodyForces, 1)
	assert.Equal(t, "Coil", d.BodyForces[0].Name)

	custom := NewData("mesh", testBodies(), nil, map[int]Material{9: {Name: "Copper", RelativePermeability: 0.999}}, nil)
	assert.Equal(t, "Copper", custom.Materials[2].Name)
	assert.Equal(t, 9, custom.Materials[2].ID)
}

func TestRender(t *testing.T) {
	boundary := types.BoundarySurfaceSet{13, 14, 15, 16, 17, 18}
	text, err := Render(NewData("two_magnets", testBodies(), boundary, nil, nil))
	require.NoError(t, err)

	for _, want := range []string{
		`Mesh DB "." "two_magnets"`,
		"Body 1\n  Target Bodies(1) = 1\n  Name = \"Shapes/magnet_1_0_0\"\n  Equation = 1\n  Material = 2\nEnd",
		"Body 2\n  Target Bodies(1) = 2\n  Name = \"Shapes/coil\"\n  Equation = 1\n  Material = 9\n  Body Force = 1\nEnd",
		"Body 4\n  Target Bodies(1) = 4\n  Name = \"Shapes/air\"\n  Equation = 1\n  Material = 1\nEnd",
		"Material 2\n  Name = \"Magnet +X\"\n  Relative Permeability = 1.05\n  Magnetization 1 = Real 954929.66",
		"Material 9\n  Name = \"Material 9\"\n  Relative Permeability = 1\nEnd",
		"Body Force 1\n  Name = \"Coil\"",
		"Current Density 3 = Real 1e+06",
		"Target Boundaries(6) = 13 14 15 16 17 18",
	} {
		assert.Contains(t, text, want)
	}
	assert.Equal(t, 3, strings.Count(text, "Target Bodies(1)"))
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(Data{})
	assert.Error(t, err)
	_, err = Render(Data{Bodies: testBodies()})
	assert.Error(t, err)
	_, err = Render(Data{Bodies: []types.Body{{Name: "x", Tag: 1}}, Boundary: types.BoundarySurfaceSet{1}})
	assert.Error(t, err)
}

func TestBootstrap(t *testing.T) {
	line := Bootstrap("case.sif")
	assert.Equal(t, "case.sif 1\n", line)
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, NewData("mesh", testBodies(), types.BoundarySurfaceSet{5, 6}, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultCaseFile), path)
	sif, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(sif), "Target Boundaries(2) = 5 6")
	start, err := os.ReadFile(filepath.Join(dir, BootstrapFile))
	require.NoError(t, err)
	assert.Equal(t, "case.sif 1\n", string(start))
}
