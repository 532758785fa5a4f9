package types

import (
	"strconv"
	"strings"
)

/*
Body is one solid region of the study domain as it is handed to the solver. Material and
BodyForce are small positive identifiers, a BodyForce of zero means no applied force.
*/
type Body struct {
	Name      string
	Tag       int // Kernel volume tag, also the physical group id
	Material  int
	BodyForce int
	IsAir     bool
}

func (b Body) HasBodyForce() bool { return b.BodyForce > 0 }

// BoundarySurfaceSet holds the surface tags on the outside of the air domain
type BoundarySurfaceSet []int

// String gives the space joined form used in solver input
func (bs BoundarySurfaceSet) String() string {
	parts := make([]string, len(bs))
	for i, s := range bs {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, " ")
}

/*
LastSix is the legacy positional rule: the outer faces of a box shaped air domain are the last
six surfaces in kernel enumeration order. It holds only when the kernel enumerates the air box
faces last, it is kept for diagnostics next to the adjacency derived set.
*/
func LastSix(surfaces []int) BoundarySurfaceSet {
	if len(surfaces) <= 6 {
		return append(BoundarySurfaceSet{}, surfaces...)
	}
	return append(BoundarySurfaceSet{}, surfaces[len(surfaces)-6:]...)
}

// MeshSizingPlan parameterizes the distance/threshold sizing field, all lengths in meters
type MeshSizingPlan struct {
	OuterSize     float64 `json:"outer_size"`
	InnerSize     float64 `json:"inner_size"`
	InnerDistance float64 `json:"inner_distance"`
	OuterDistance float64 `json:"outer_distance"`
}
