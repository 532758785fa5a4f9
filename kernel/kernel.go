/*
Package kernel defines what the geometry preparation pipeline needs from a geometric modeling
and meshing kernel. Implementations live in the subpackages: memkernel is an in-process kernel
over axis aligned boxes, gmsh drives the gmsh executable.

A Kernel is a session. It is opened once per run, carries that run's geometry state and must
be closed on every exit path.
*/
package kernel

import (
	"context"
	"errors"

	"github.com/notargets/airmesh/types"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrClosed        = errors.New("kernel session is closed")
	ErrEntityUnknown = errors.New("unknown entity")
	ErrNoGeometry    = errors.New("model has no volumes")
)

type Kernel interface {
	// Import loads the shapes in a CAD file and returns the new volumes
	Import(ctx context.Context, path string) ([]types.Entity, error)
	// Entities lists the entities of one dimension in kernel enumeration order
	Entities(ctx context.Context, dim types.Dim) ([]types.Entity, error)
	EntityName(e types.Entity) (string, error)
	// BoundingBox spans the given entities, or the whole model when none are given
	BoundingBox(ctx context.Context, ents ...types.Entity) (types.Box, error)

	// Dilate scales entities about the origin by the same factor on all three axes
	Dilate(ents []types.Entity, factor float64) error
	Translate(ents []types.Entity, d r3.Vec) error

	// RemoveDuplicates merges coincident entities and reports how many volumes were removed
	RemoveDuplicates(ctx context.Context) (removed int, err error)
	AddBox(ctx context.Context, b types.Box) (types.Entity, error)
	// Cut subtracts tools from objects, the objects are replaced by the returned volumes
	Cut(ctx context.Context, objects, tools []types.Entity, removeTool bool) ([]types.Entity, error)
	// Fragment splits objects and tools into conformal volumes, returning every resulting volume
	Fragment(ctx context.Context, objects, tools []types.Entity) ([]types.Entity, error)
	// BoundingSurfaces returns the surfaces bounding a volume
	BoundingSurfaces(ctx context.Context, vol types.Entity) ([]types.Entity, error)

	AddPhysicalGroup(dim types.Dim, tags []int, tag int, name string) error
	AddDistanceField(surfaces []int) (field int, err error)
	AddThresholdField(inField int, plan types.MeshSizingPlan) (field int, err error)
	SetBackgroundField(field int) error
	SetThreads(n int) error

	Generate(ctx context.Context, dim types.Dim) error
	Write(ctx context.Context, path string) error
	Close() error
}

// Opener opens a fresh kernel session
type Opener func(ctx context.Context) (Kernel, error)
