package mesh

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/airmesh/types"
)

var elementTypeToGmsh4 = map[ElementType]int{
	Point:     15,
	Line:      1,
	Line3:     8,
	Triangle:  2,
	Triangle6: 9,
	Quad:      3,
	Tet:       4,
	Tet10:     11,
	Hex:       5,
	Prism:     6,
	Pyramid:   7,
}

/*
WriteGmsh4 writes the mesh as an ASCII MSH 4.1 file. Curves and points are not tracked, so
surfaces are written without bounding curves. Nodes are written in a single block owned by
the first volume, elements in one block per owning entity and element type.
*/
func (m *Mesh) WriteGmsh4(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "$MeshFormat")
	fmt.Fprintln(bw, "4.1 0 8")
	fmt.Fprintln(bw, "$EndMeshFormat")

	if len(m.PhysicalGroups) > 0 {
		groups := make([]*PhysicalGroup, 0, len(m.PhysicalGroups))
		for _, g := range m.PhysicalGroups {
			groups = append(groups, g)
		}
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].Dimension != groups[j].Dimension {
				return groups[i].Dimension < groups[j].Dimension
			}
			return groups[i].Tag < groups[j].Tag
		})
		fmt.Fprintln(bw, "$PhysicalNames")
		fmt.Fprintln(bw, len(groups))
		for _, g := range groups {
			fmt.Fprintf(bw, "%d %d \"%s\"\n", g.Dimension, g.Tag, g.Name)
		}
		fmt.Fprintln(bw, "$EndPhysicalNames")
	}

	surfaces := m.EntitiesOfDim(types.DimSurface)
	volumes := m.EntitiesOfDim(types.DimVolume)
	fmt.Fprintln(bw, "$Entities")
	fmt.Fprintf(bw, "0 0 %d %d\n", len(surfaces), len(volumes))
	for _, dimEnts := range [][]*Entity{surfaces, volumes} {
		for _, e := range dimEnts {
			fields := []string{strconv.Itoa(e.Tag)}
			for _, corner := range e.BoundingBox {
				for _, c := range corner {
					fields = append(fields, strconv.FormatFloat(c, 'g', 17, 64))
				}
			}
			fields = append(fields, intList(e.PhysicalTags)...)
			fields = append(fields, intList(e.BoundingEntities)...)
			fmt.Fprintln(bw, strings.Join(fields, " "))
		}
	}
	fmt.Fprintln(bw, "$EndEntities")

	fmt.Fprintln(bw, "$Nodes")
	if m.NumVertices == 0 || len(volumes) == 0 {
		fmt.Fprintln(bw, "0 0 0 0")
	} else {
		fmt.Fprintf(bw, "1 %d %d %d\n", m.NumVertices, minInt(m.NodeTags), maxInt(m.NodeTags))
		fmt.Fprintf(bw, "3 %d 0 %d\n", volumes[0].Tag, m.NumVertices)
		for _, tag := range m.NodeTags {
			fmt.Fprintln(bw, tag)
		}
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "%.17g %.17g %.17g\n", v[0], v[1], v[2])
		}
	}
	fmt.Fprintln(bw, "$EndNodes")

	fmt.Fprintln(bw, "$Elements")
	if m.NumElements == 0 {
		fmt.Fprintln(bw, "0 0 0 0")
	} else {
		type blockKey struct {
			owner    types.Entity
			elemType ElementType
		}
		var (
			order  []blockKey
			blocks = make(map[blockKey][]int)
		)
		for i := range m.Elements {
			key := blockKey{m.ElementEntity[i], m.ElementTypes[i]}
			if _, ok := blocks[key]; !ok {
				order = append(order, key)
			}
			blocks[key] = append(blocks[key], i)
		}
		fmt.Fprintf(bw, "%d %d %d %d\n", len(order), m.NumElements, minInt(m.ElementTags), maxInt(m.ElementTags))
		for _, key := range order {
			elems := blocks[key]
			fmt.Fprintf(bw, "%d %d %d %d\n", key.owner.Dim, key.owner.Tag, elementTypeToGmsh4[key.elemType], len(elems))
			for _, i := range elems {
				fields := []string{strconv.Itoa(m.ElementTags[i])}
				for _, v := range m.Elements[i] {
					fields = append(fields, strconv.Itoa(m.NodeTags[v]))
				}
				fmt.Fprintln(bw, strings.Join(fields, " "))
			}
		}
	}
	fmt.Fprintln(bw, "$EndElements")
	return bw.Flush()
}

// intList formats a counted list: the count followed by the values
func intList(vals []int) []string {
	out := []string{strconv.Itoa(len(vals))}
	for _, v := range vals {
		out = append(out, strconv.Itoa(v))
	}
	return out
}

func minInt(vals []int) (m int) {
	for i, v := range vals {
		if i == 0 || v < m {
			m = v
		}
	}
	return
}

func maxInt(vals []int) (m int) {
	for i, v := range vals {
		if i == 0 || v > m {
			m = v
		}
	}
	return
}
