package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/airmesh/types"
)

// ElementType represents the element types the kernel may emit
type ElementType int

const (
	Point ElementType = iota
	Line
	Triangle
	Quad
	Tet
	Hex
	Prism
	Pyramid
	Line3
	Triangle6
	Tet10
)

func (e ElementType) String() string {
	return [...]string{"Point", "Line", "Triangle", "Quad", "Tet", "Hex", "Prism", "Pyramid",
		"Line3", "Triangle6", "Tet10"}[e]
}

func (e ElementType) GetNumNodes() int {
	return [...]int{1, 2, 3, 4, 4, 8, 6, 5, 3, 6, 10}[e]
}

func (e ElementType) Dimension() types.Dim {
	switch e {
	case Point:
		return types.DimPoint
	case Line, Line3:
		return types.DimCurve
	case Triangle, Quad, Triangle6:
		return types.DimSurface
	default:
		return types.DimVolume
	}
}

// Entity is a geometric entity as recorded in the $Entities section
type Entity struct {
	Dimension        types.Dim
	Tag              int
	BoundingBox      [2][3]float64
	PhysicalTags     []int
	BoundingEntities []int // Signed tags of the bounding entities one dimension down
}

func (e *Entity) Box() types.Box {
	bb := e.BoundingBox
	return types.NewBox(bb[0][0], bb[0][1], bb[0][2], bb[1][0], bb[1][1], bb[1][2])
}

// PhysicalGroup is a named set of entities, keyed in the mesh by dimension and tag
type PhysicalGroup struct {
	Dimension types.Dim
	Tag       int
	Name      string
	Entities  []int
}

// Mesh holds what the MSH 4.1 reader recovers from a file
type Mesh struct {
	FormatVersion string
	IsBinary      bool
	DataSize      int

	// Geometry
	Vertices  [][]float64 // Vertex coordinates [nvertices][3]
	NodeTags  []int       // File node tag for each vertex
	NodeIDMap map[int]int // File node tag to vertex index

	// Element data
	Elements      [][]int        // Element to vertex index connectivity
	ElementTypes  []ElementType  // Element type for each element
	ElementTags   []int          // File element tag
	ElementEntity []types.Entity // Geometric entity owning each element

	Entities       map[types.Entity]*Entity
	PhysicalGroups map[types.Entity]*PhysicalGroup

	NumElements int
	NumVertices int
}

func NewMesh() *Mesh {
	return &Mesh{
		NodeIDMap:      make(map[int]int),
		Entities:       make(map[types.Entity]*Entity),
		PhysicalGroups: make(map[types.Entity]*PhysicalGroup),
	}
}

func (m *Mesh) AddNode(tag int, coords []float64) {
	m.NodeIDMap[tag] = len(m.Vertices)
	m.Vertices = append(m.Vertices, coords)
	m.NodeTags = append(m.NodeTags, tag)
	m.NumVertices = len(m.Vertices)
}

// AddElement adds an element whose nodes are given as file node tags
func (m *Mesh) AddElement(tag int, elemType ElementType, owner types.Entity, nodeTags []int) error {
	verts := make([]int, len(nodeTags))
	for i, nt := range nodeTags {
		idx, ok := m.NodeIDMap[nt]
		if !ok {
			return fmt.Errorf("element %d references unknown node %d", tag, nt)
		}
		verts[i] = idx
	}
	m.Elements = append(m.Elements, verts)
	m.ElementTypes = append(m.ElementTypes, elemType)
	m.ElementTags = append(m.ElementTags, tag)
	m.ElementEntity = append(m.ElementEntity, owner)
	m.NumElements = len(m.Elements)
	return nil
}

func (m *Mesh) AddEntity(e *Entity) {
	m.Entities[types.Entity{Dim: e.Dimension, Tag: e.Tag}] = e
}

// EntitiesOfDim returns the entities of one dimension in ascending tag order
func (m *Mesh) EntitiesOfDim(dim types.Dim) (ents []*Entity) {
	for key, e := range m.Entities {
		if key.Dim == dim {
			ents = append(ents, e)
		}
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].Tag < ents[j].Tag })
	return
}

// Statistics summarizes a mesh for reporting
type Statistics struct {
	Vertices       int
	Elements       int
	Volumes        int
	Surfaces       int
	PhysicalGroups int
	ByType         map[ElementType]int
	ByVolume       map[int]int // Volume elements per volume entity tag
}

func (m *Mesh) Statistics() (st Statistics) {
	st = Statistics{
		Vertices:       m.NumVertices,
		Elements:       m.NumElements,
		Volumes:        len(m.EntitiesOfDim(types.DimVolume)),
		Surfaces:       len(m.EntitiesOfDim(types.DimSurface)),
		PhysicalGroups: len(m.PhysicalGroups),
		ByType:         make(map[ElementType]int),
		ByVolume:       make(map[int]int),
	}
	for i, et := range m.ElementTypes {
		st.ByType[et]++
		if owner := m.ElementEntity[i]; owner.Dim == types.DimVolume {
			st.ByVolume[owner.Tag]++
		}
	}
	return
}

// BoundingBox spans all volume entities, or all vertices when the file has no entities
func (m *Mesh) BoundingBox() (box types.Box) {
	box = types.EmptyBox()
	if vols := m.EntitiesOfDim(types.DimVolume); len(vols) > 0 {
		for _, v := range vols {
			box = box.Union(v.Box())
		}
		return
	}
	for _, v := range m.Vertices {
		box = box.Union(types.NewBox(v[0], v[1], v[2], v[0], v[1], v[2]))
	}
	return
}
