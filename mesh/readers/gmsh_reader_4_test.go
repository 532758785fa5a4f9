package readers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/airmesh/mesh"
	"github.com/notargets/airmesh/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempMshFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.msh")
	if err := os.WriteFile(tmpFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}

// Two tetrahedra in two volumes sharing surface 7, with a physical name for each volume
const twoVolumeMesh = `$MeshFormat
4.1 0 8
$EndMeshFormat
$PhysicalNames
3
2 7 "interface"
3 1 "Shapes/air"
3 2 "Shapes/magnet 1"
$EndPhysicalNames
$Entities
0 0 2 2
7 0 0 0 1 1 0 1 7 0
8 0 0 -1 1 1 -1 0 0
1 0 0 -1 1 1 0 1 1 2 7 8
2 0 0 0 1 1 1 1 2 1 -7
$EndEntities
$Nodes
1 5 1 5
3 1 0 5
1
2
3
4
5
0 0 0
1 0 0
0 1 0
0 0 1
0 0 -1
$EndNodes
$PartitionedEntities
ignored
$EndPartitionedEntities
$Elements
2 2 1 2
3 2 4 1
1 1 2 3 4
3 1 4 1
2 1 3 2 5
$EndElements
`

func TestReadGmsh4(t *testing.T) {
	msh, err := ReadGmsh4(createTempMshFile(t, twoVolumeMesh))
	if err != nil {
		t.Fatalf("Failed to read Gmsh 4 file: %v", err)
	}

	assert.Equal(t, "4.1", msh.FormatVersion)
	assert.False(t, msh.IsBinary)
	assert.Equal(t, 5, msh.NumVertices)
	assert.Equal(t, 2, msh.NumElements)
	assert.Equal(t, []mesh.ElementType{mesh.Tet, mesh.Tet}, msh.ElementTypes)
	assert.Equal(t, types.Volume(2), msh.ElementEntity[0])
	assert.Equal(t, []int{0, 1, 2, 3}, msh.Elements[0])

	vols := msh.EntitiesOfDim(types.DimVolume)
	require.Len(t, vols, 2)
	assert.Equal(t, []int{7, 8}, vols[0].BoundingEntities)
	assert.Equal(t, []int{-7}, vols[1].BoundingEntities)
	assert.Equal(t, types.NewBox(0, 0, -1, 1, 1, 0), vols[0].Box())

	g := msh.PhysicalGroups[types.Volume(2)]
	require.NotNil(t, g)
	assert.Equal(t, "Shapes/magnet 1", g.Name)
	assert.Equal(t, []int{2}, g.Entities)
	assert.Equal(t, "interface", msh.PhysicalGroups[types.Surface(7)].Name)

	st := msh.Statistics()
	assert.Equal(t, 2, st.Volumes)
	assert.Equal(t, 2, st.Surfaces)
	assert.Equal(t, 2, st.ByType[mesh.Tet])
	assert.Equal(t, 1, st.ByVolume[1])
	assert.Equal(t, 1, st.ByVolume[2])
	assert.Equal(t, types.NewBox(0, 0, -1, 1, 1, 1), msh.BoundingBox())
}

func TestReadGmsh4Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no format", "$Nodes\n0 0 0 0\n$EndNodes\n"},
		{"binary", "$MeshFormat\n4.1 1 8\n$EndMeshFormat\n"},
		{"truncated entities", "$MeshFormat\n4.1 0 8\n$EndMeshFormat\n$Entities\n0 0 1 0\n"},
		{"unknown node", "$MeshFormat\n4.1 0 8\n$EndMeshFormat\n$Elements\n1 1 1 1\n3 1 4 1\n1 1 2 3 4\n$EndElements\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGmsh4(createTempMshFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestReadMeshFile(t *testing.T) {
	{
		msh, err := ReadMeshFile(createTempMshFile(t, twoVolumeMesh))
		require.NoError(t, err)
		assert.Equal(t, 2, msh.NumElements)
	}
	{
		_, err := ReadMeshFile(createTempMshFile(t, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.ErrorContains(t, err, "MSH version 2.2")
	}
	{
		_, err := ReadGmshAuto(createTempMshFile(t, "nothing here\n"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.ErrorContains(t, err, "no $MeshFormat")
	}
	{
		_, err := ReadMeshFile("mesh.neu")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	}
	{
		_, err := ReadMeshFile(filepath.Join(t.TempDir(), "missing.msh"))
		assert.True(t, os.IsNotExist(err))
	}
}

func TestWriteGmsh4ReadBack(t *testing.T) {
	orig, err := ReadGmsh4(createTempMshFile(t, twoVolumeMesh))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, orig.WriteGmsh4(&buf))
	again, err := ReadGmsh4Reader(&buf)
	require.NoError(t, err)

	assert.Equal(t, orig.Vertices, again.Vertices)
	assert.Equal(t, orig.Elements, again.Elements)
	assert.Equal(t, orig.ElementEntity, again.ElementEntity)
	assert.Equal(t, orig.Entities[types.Volume(1)], again.Entities[types.Volume(1)])
	assert.Equal(t, orig.PhysicalGroups[types.Volume(2)], again.PhysicalGroups[types.Volume(2)])
}
