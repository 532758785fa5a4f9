package readers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/airmesh/mesh"
	"github.com/notargets/airmesh/types"
)

// ReadGmsh4 reads an ASCII Gmsh MSH file format version 4.x
func ReadGmsh4(filename string) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	msh, err := ReadGmsh4Reader(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return msh, nil
}

func ReadGmsh4Reader(r io.Reader) (*mesh.Mesh, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	msh := mesh.NewMesh()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "$MeshFormat":
			if err := readMeshFormat4(scanner, msh); err != nil {
				return nil, err
			}

		case "$PhysicalNames":
			if err := readPhysicalNames(scanner, msh); err != nil {
				return nil, err
			}

		case "$Entities":
			if err := readEntities4(scanner, msh); err != nil {
				return nil, err
			}

		case "$Nodes":
			if err := readNodes4(scanner, msh); err != nil {
				return nil, err
			}

		case "$Elements":
			if err := readElements4(scanner, msh); err != nil {
				return nil, err
			}

		default:
			// Sections this reader has no use for: $PartitionedEntities, $Periodic, $NodeData, ...
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				if err := skipSection(scanner, "$End"+line[1:]); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	if msh.FormatVersion == "" {
		return nil, fmt.Errorf("could not find $MeshFormat section")
	}
	linkPhysicalGroups(msh)
	return msh, nil
}

// readMeshFormat4 reads the MeshFormat section for v4
func readMeshFormat4(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}

	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}

	msh.FormatVersion = parts[0]
	if !strings.HasPrefix(msh.FormatVersion, "4.") {
		return fmt.Errorf("unsupported Gmsh format version: %s", msh.FormatVersion)
	}
	fileType, _ := strconv.Atoi(parts[1])
	msh.IsBinary = fileType == 1
	if msh.IsBinary {
		return fmt.Errorf("binary MSH files are not supported")
	}
	msh.DataSize, _ = strconv.Atoi(parts[2])

	return skipSection(scanner, "$EndMeshFormat")
}

func readPhysicalNames(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in PhysicalNames")
	}

	numNames, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))

	for i := 0; i < numNames; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading physical names")
		}

		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) < 3 {
			return fmt.Errorf("invalid physical name line: %q", line)
		}
		dimension, _ := strconv.Atoi(parts[0])
		tag, _ := strconv.Atoi(parts[1])
		// Names are quoted and may contain spaces
		name := strings.Join(parts[2:], " ")
		if first, last := strings.Index(line, "\""), strings.LastIndex(line, "\""); first >= 0 && last > first {
			name = line[first+1 : last]
		}

		key := types.Entity{Dim: types.Dim(dimension), Tag: tag}
		msh.PhysicalGroups[key] = &mesh.PhysicalGroup{
			Dimension: types.Dim(dimension),
			Tag:       tag,
			Name:      name,
		}
	}

	return skipSection(scanner, "$EndPhysicalNames")
}

/*
readEntities4 reads the Entities section. Points carry a coordinate, every higher dimension
carries a bounding box, its physical tags and the signed tags of its bounding entities.
*/
func readEntities4(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Entities")
	}

	// Read counts: numPoints numCurves numSurfaces numVolumes
	counts := strings.Fields(scanner.Text())
	if len(counts) < 4 {
		return fmt.Errorf("invalid entity counts")
	}

	for dim := 0; dim < 4; dim++ {
		num, _ := strconv.Atoi(counts[dim])
		for i := 0; i < num; i++ {
			if !scanner.Scan() {
				return fmt.Errorf("unexpected EOF reading %s entity", types.Dim(dim))
			}
			entity, err := parseEntity(types.Dim(dim), strings.Fields(scanner.Text()))
			if err != nil {
				return err
			}
			msh.AddEntity(entity)
		}
	}

	return skipSection(scanner, "$EndEntities")
}

func parseEntity(dim types.Dim, fields []string) (*mesh.Entity, error) {
	var (
		entity = &mesh.Entity{Dimension: dim}
		pos    int
	)
	if dim == types.DimPoint {
		if len(fields) < 4 {
			return nil, fmt.Errorf("invalid point entity")
		}
		entity.Tag, _ = strconv.Atoi(fields[0])
		for j := 0; j < 3; j++ {
			c, _ := strconv.ParseFloat(fields[1+j], 64)
			entity.BoundingBox[0][j], entity.BoundingBox[1][j] = c, c
		}
		pos = 4
	} else {
		if len(fields) < 8 {
			return nil, fmt.Errorf("invalid %s entity", dim)
		}
		entity.Tag, _ = strconv.Atoi(fields[0])
		for j := 0; j < 3; j++ {
			entity.BoundingBox[0][j], _ = strconv.ParseFloat(fields[1+j], 64)
			entity.BoundingBox[1][j], _ = strconv.ParseFloat(fields[4+j], 64)
		}
		pos = 7
	}

	// Physical tags
	if pos < len(fields) {
		entity.PhysicalTags, pos = readCountedInts(fields, pos)
	}

	// Bounding entities, points have none
	if dim != types.DimPoint && pos < len(fields) {
		entity.BoundingEntities, _ = readCountedInts(fields, pos)
	}
	return entity, nil
}

func readCountedInts(fields []string, pos int) (vals []int, next int) {
	n, _ := strconv.Atoi(fields[pos])
	pos++
	vals = make([]int, 0, n)
	for j := 0; j < n && pos+j < len(fields); j++ {
		v, _ := strconv.Atoi(fields[pos+j])
		vals = append(vals, v)
	}
	return vals, pos + n
}

// readNodes4 reads nodes in v4 format
func readNodes4(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}

	// Format: numEntityBlocks numNodes minNodeTag maxNodeTag
	header := strings.Fields(scanner.Text())
	if len(header) < 4 {
		return fmt.Errorf("invalid Nodes header")
	}

	numEntityBlocks, _ := strconv.Atoi(header[0])

	for i := 0; i < numEntityBlocks; i++ {
		// Read entity info: entityDim entityTag parametric numNodes
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in node entity block %d", i)
		}

		blockHeader := strings.Fields(scanner.Text())
		if len(blockHeader) < 4 {
			return fmt.Errorf("invalid node block header")
		}
		numNodesInBlock, _ := strconv.Atoi(blockHeader[3])

		// Node tags come first, then the coordinates in the same order
		nodeTags := make([]int, numNodesInBlock)
		for j := 0; j < numNodesInBlock; j++ {
			if !scanner.Scan() {
				return fmt.Errorf("unexpected EOF reading node tags")
			}
			nodeTags[j], _ = strconv.Atoi(strings.TrimSpace(scanner.Text()))
		}

		for j := 0; j < numNodesInBlock; j++ {
			if !scanner.Scan() {
				return fmt.Errorf("unexpected EOF reading node coordinates")
			}

			fields := strings.Fields(scanner.Text())
			if len(fields) < 3 {
				return fmt.Errorf("invalid node coordinate line")
			}

			coords := make([]float64, 3)
			for k := 0; k < 3; k++ {
				coords[k], _ = strconv.ParseFloat(fields[k], 64)
			}
			msh.AddNode(nodeTags[j], coords)
		}
	}

	return skipSection(scanner, "$EndNodes")
}

// readElements4 reads elements in v4 format
func readElements4(scanner *bufio.Scanner, msh *mesh.Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Elements")
	}

	// Format: numEntityBlocks numElements minElementTag maxElementTag
	header := strings.Fields(scanner.Text())
	if len(header) < 4 {
		return fmt.Errorf("invalid Elements header")
	}

	numEntityBlocks, _ := strconv.Atoi(header[0])

	for i := 0; i < numEntityBlocks; i++ {
		// Read entity info: entityDim entityTag elementType numElements
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in element entity block %d", i)
		}

		blockHeader := strings.Fields(scanner.Text())
		if len(blockHeader) < 4 {
			return fmt.Errorf("invalid element block header")
		}

		entityDim, _ := strconv.Atoi(blockHeader[0])
		entityTag, _ := strconv.Atoi(blockHeader[1])
		gmshType, _ := strconv.Atoi(blockHeader[2])
		numElemsInBlock, _ := strconv.Atoi(blockHeader[3])
		owner := types.Entity{Dim: types.Dim(entityDim), Tag: entityTag}

		elemType, ok := gmshElementType4[gmshType]
		if !ok {
			// Skip unknown element types
			for j := 0; j < numElemsInBlock; j++ {
				scanner.Scan()
			}
			continue
		}

		expectedNodes := elemType.GetNumNodes()
		for j := 0; j < numElemsInBlock; j++ {
			if !scanner.Scan() {
				return fmt.Errorf("unexpected EOF reading elements")
			}

			fields := strings.Fields(scanner.Text())
			if len(fields) < 1+expectedNodes {
				return fmt.Errorf("invalid element line: expected at least %d fields, got %d",
					1+expectedNodes, len(fields))
			}

			elemTag, _ := strconv.Atoi(fields[0])
			nodeIDs := make([]int, expectedNodes)
			for k := 0; k < expectedNodes; k++ {
				nodeIDs[k], _ = strconv.Atoi(fields[1+k])
			}

			if err := msh.AddElement(elemTag, elemType, owner, nodeIDs); err != nil {
				return err
			}
		}
	}

	return skipSection(scanner, "$EndElements")
}

// linkPhysicalGroups fills each physical group's entity list from the entity physical tags
func linkPhysicalGroups(msh *mesh.Mesh) {
	for _, dim := range []types.Dim{types.DimPoint, types.DimCurve, types.DimSurface, types.DimVolume} {
		for _, e := range msh.EntitiesOfDim(dim) {
			for _, pt := range e.PhysicalTags {
				key := types.Entity{Dim: dim, Tag: pt}
				g, ok := msh.PhysicalGroups[key]
				if !ok {
					// Unnamed physical groups still exist
					g = &mesh.PhysicalGroup{Dimension: dim, Tag: pt}
					msh.PhysicalGroups[key] = g
				}
				g.Entities = append(g.Entities, e.Tag)
			}
		}
	}
}

// skipSection skips a section until the end marker
func skipSection(scanner *bufio.Scanner, endMarker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			return nil
		}
	}
	return fmt.Errorf("unexpected EOF while looking for %s", endMarker)
}

// gmshElementType4 maps Gmsh v4 element type numbers to our ElementType
var gmshElementType4 = map[int]mesh.ElementType{
	1:  mesh.Line,      // 2-node line
	2:  mesh.Triangle,  // 3-node triangle
	3:  mesh.Quad,      // 4-node quadrangle
	4:  mesh.Tet,       // 4-node tetrahedron
	5:  mesh.Hex,       // 8-node hexahedron
	6:  mesh.Prism,     // 6-node prism
	7:  mesh.Pyramid,   // 5-node pyramid
	8:  mesh.Line3,     // 3-node line
	9:  mesh.Triangle6, // 6-node triangle
	11: mesh.Tet10,     // 10-node tetrahedron
	15: mesh.Point,     // 1-node point
}
