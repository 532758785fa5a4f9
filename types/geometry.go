package types

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Dim is the topological dimension of a kernel entity
type Dim int

const (
	DimPoint Dim = iota
	DimCurve
	DimSurface
	DimVolume
)

func (d Dim) String() string {
	return [...]string{"Point", "Curve", "Surface", "Volume"}[d]
}

// Entity identifies a kernel entity by its dimension and tag
type Entity struct {
	Dim Dim
	Tag int
}

func Volume(tag int) Entity  { return Entity{Dim: DimVolume, Tag: tag} }
func Surface(tag int) Entity { return Entity{Dim: DimSurface, Tag: tag} }

func (e Entity) String() string {
	return fmt.Sprintf("(%d,%d)", e.Dim, e.Tag)
}

// Tags extracts the tag of each entity, preserving order
func Tags(ents []Entity) (tags []int) {
	tags = make([]int, len(ents))
	for i, e := range ents {
		tags[i] = e.Tag
	}
	return
}

/*
Box is an axis aligned bounding box. The zero value is a degenerate box at the origin,
use EmptyBox to start an accumulation with Union.
*/
type Box struct {
	Min, Max r3.Vec
}

func NewBox(xmin, ymin, zmin, xmax, ymax, zmax float64) Box {
	return Box{
		Min: r3.Vec{X: xmin, Y: ymin, Z: zmin},
		Max: r3.Vec{X: xmax, Y: ymax, Z: zmax},
	}
}

// NewBoxFromValues accepts the kernel ordering xmin, ymin, zmin, xmax, ymax, zmax
func NewBoxFromValues(v [6]float64) Box {
	return NewBox(v[0], v[1], v[2], v[3], v[4], v[5])
}

func EmptyBox() Box {
	inf := math.Inf(1)
	return Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

func (b Box) Values() [6]float64 {
	return [6]float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
}

func (b Box) Union(o Box) Box {
	return Box{
		Min: r3.Vec{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y), Z: math.Min(b.Min.Z, o.Min.Z)},
		Max: r3.Vec{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y), Z: math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Pad grows the box by d on every face
func (b Box) Pad(d float64) Box {
	p := r3.Vec{X: d, Y: d, Z: d}
	return Box{Min: r3.Sub(b.Min, p), Max: r3.Add(b.Max, p)}
}

func (b Box) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// EdgeSum is the sum of the three edge lengths of the box
func (b Box) EdgeSum() float64 {
	s := b.Size()
	return floats.Sum([]float64{s.X, s.Y, s.Z})
}

func (b Box) Translate(d r3.Vec) Box {
	return Box{Min: r3.Add(b.Min, d), Max: r3.Add(b.Max, d)}
}

// Scale dilates the box about the origin, f must be positive
func (b Box) Scale(f float64) Box {
	return Box{Min: r3.Scale(f, b.Min), Max: r3.Scale(f, b.Max)}
}

func (b Box) Equal(o Box, tol float64) bool {
	bv, ov := b.Values(), o.Values()
	for i := range bv {
		if !scalar.EqualWithinAbs(bv[i], ov[i], tol) {
			return false
		}
	}
	return true
}

// Contains reports whether o lies inside b, allowing tol of slack
func (b Box) Contains(o Box, tol float64) bool {
	return o.Min.X >= b.Min.X-tol && o.Min.Y >= b.Min.Y-tol && o.Min.Z >= b.Min.Z-tol &&
		o.Max.X <= b.Max.X+tol && o.Max.Y <= b.Max.Y+tol && o.Max.Z <= b.Max.Z+tol
}

// Overlaps reports whether the interiors of b and o intersect by more than tol
func (b Box) Overlaps(o Box, tol float64) bool {
	return b.Min.X < o.Max.X-tol && o.Min.X < b.Max.X-tol &&
		b.Min.Y < o.Max.Y-tol && o.Min.Y < b.Max.Y-tol &&
		b.Min.Z < o.Max.Z-tol && o.Min.Z < b.Max.Z-tol
}

func (b Box) String() string {
	return fmt.Sprintf("[%g %g %g] -> [%g %g %g]",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
