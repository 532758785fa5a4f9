/*
Package domain builds the study domain: a box of air around the normalized bodies, combined
with them by a boolean operation in the kernel, plus the outer boundary of that air region.
*/
package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/types"
	"go.uber.org/zap"
)

var (
	ErrDuplicateGeometry = errors.New("duplicate geometry")
	ErrDomainSynthesis   = errors.New("domain synthesis failed")
)

// AirName names the synthetic air body
const AirName = "Shapes/air"

type Policy uint8

const (
	// Fragment keeps air and bodies as conformal siblings sharing interface surfaces
	Fragment Policy = iota
	// Cut removes the bodies from the air box, leaving the bodies untouched
	Cut
)

var PolicyNameMap = map[string]Policy{
	"fragment": Fragment,
	"cut":      Cut,
}

func NewPolicy(label string) (Policy, error) {
	if p, ok := PolicyNameMap[label]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("unknown boolean policy %q, use fragment or cut", label)
}

func (p Policy) String() string {
	for name, pp := range PolicyNameMap {
		if p == pp {
			return name
		}
	}
	return fmt.Sprintf("Policy(%d)", p)
}

type Result struct {
	Air    types.Body
	Bodies []types.Body
	// Boundary holds the surfaces bounding only the air volume and lying on the air box
	Boundary types.BoundarySurfaceSet
	// BodySurfaces holds every surface bounding a body, the refinement target
	BodySurfaces []int
	// LastSix is the positional estimate of Boundary, kept for comparison
	LastSix types.BoundarySurfaceSet
}

type Synthesizer struct {
	// RelativeTolerance scales with the air box edge sum to compare kernel boxes
	RelativeTolerance float64
	logger            *zap.Logger
}

func NewSynthesizer(logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{RelativeTolerance: 1.e-7, logger: logger}
}

type bodyRecord struct {
	name string
	box  types.Box
}

/*
Synthesize checks bodies for duplicates, adds the air box and combines it with the bodies under
policy. Duplicate volumes fail with ErrDuplicateGeometry before any boolean is attempted, every
other kernel failure is wrapped with ErrDomainSynthesis.
*/
func (s *Synthesizer) Synthesize(ctx context.Context, k kernel.Kernel, bodies []types.Entity,
	air types.Box, policy Policy) (res Result, err error) {
	var (
		bodyBox types.Box
		removed int
		records = make(map[int]bodyRecord, len(bodies))
		tol     = s.RelativeTolerance * air.EdgeSum()
	)
	if len(bodies) == 0 {
		err = fmt.Errorf("%w: %v", ErrDomainSynthesis, kernel.ErrNoGeometry)
		return
	}
	if bodyBox, err = k.BoundingBox(ctx, bodies...); err != nil {
		err = fmt.Errorf("%w: %v", ErrDomainSynthesis, err)
		return
	}
	if !air.Contains(bodyBox, tol) {
		err = fmt.Errorf("%w: air box %s does not enclose the bodies %s", ErrDomainSynthesis, air, bodyBox)
		return
	}
	for _, b := range bodies {
		var rec bodyRecord
		if rec.name, err = k.EntityName(b); err != nil {
			err = fmt.Errorf("%w: %v", ErrDomainSynthesis, err)
			return
		}
		if rec.box, err = k.BoundingBox(ctx, b); err != nil {
			err = fmt.Errorf("%w: %v", ErrDomainSynthesis, err)
			return
		}
		records[b.Tag] = rec
	}

	if removed, err = k.RemoveDuplicates(ctx); err != nil {
		err = fmt.Errorf("%w: %v", ErrDomainSynthesis, err)
		return
	}
	if removed > 0 {
		err = fmt.Errorf("%w: kernel found %d coincident volumes", ErrDuplicateGeometry, removed)
		return
	}

	if res, err = s.combine(ctx, k, bodies, records, air, policy, tol); err != nil {
		err = fmt.Errorf("%w: %v", ErrDomainSynthesis, err)
		return
	}
	s.logger.Info("synthesized domain",
		zap.Stringer("policy", policy), zap.Int("airTag", res.Air.Tag), zap.Int("bodies", len(res.Bodies)),
		zap.Stringer("boundary", res.Boundary))
	if res.LastSix.String() != res.Boundary.String() {
		s.logger.Debug("positional boundary estimate differs",
			zap.Stringer("lastSix", res.LastSix), zap.Stringer("boundary", res.Boundary))
	}
	return
}

func (s *Synthesizer) combine(ctx context.Context, k kernel.Kernel, bodies []types.Entity,
	records map[int]bodyRecord, air types.Box, policy Policy, tol float64) (res Result, err error) {
	var (
		airVol  types.Entity
		results []types.Entity
	)
	if airVol, err = k.AddBox(ctx, air); err != nil {
		return
	}
	switch policy {
	case Fragment:
		if results, err = k.Fragment(ctx, []types.Entity{airVol}, bodies); err != nil {
			return
		}
		if err = s.classify(ctx, k, results, records, air, tol, &res); err != nil {
			return
		}
	case Cut:
		if results, err = k.Cut(ctx, []types.Entity{airVol}, bodies, false); err != nil {
			return
		}
		if len(results) != 1 {
			err = fmt.Errorf("cut produced %d air volumes, expected 1", len(results))
			return
		}
		res.Air = types.Body{Name: AirName, Tag: results[0].Tag, IsAir: true}
		for _, b := range bodies {
			res.Bodies = append(res.Bodies, types.Body{Name: records[b.Tag].name, Tag: b.Tag})
		}
	default:
		err = fmt.Errorf("unknown boolean policy %d", policy)
		return
	}
	return res, s.boundary(ctx, k, air, tol, &res)
}

// classify tells the air volume from the bodies by matching bounding boxes recorded before the boolean
func (s *Synthesizer) classify(ctx context.Context, k kernel.Kernel, results []types.Entity,
	records map[int]bodyRecord, air types.Box, tol float64, res *Result) error {
	used := make(map[int]bool)
	for _, v := range results {
		box, err := k.BoundingBox(ctx, v)
		if err != nil {
			return err
		}
		if box.Equal(air, tol) && res.Air.Tag == 0 {
			res.Air = types.Body{Name: AirName, Tag: v.Tag, IsAir: true}
			continue
		}
		match := 0
		for tag, rec := range records {
			if used[tag] || !rec.box.Equal(box, tol) {
				continue
			}
			if match == 0 || tag == v.Tag {
				match = tag
			}
		}
		if match == 0 {
			return fmt.Errorf("fragment volume %d with box %s matches no body", v.Tag, box)
		}
		used[match] = true
		res.Bodies = append(res.Bodies, types.Body{Name: records[match].name, Tag: v.Tag})
	}
	if res.Air.Tag == 0 {
		return fmt.Errorf("no fragment volume matches the air box %s", air)
	}
	if len(res.Bodies) != len(records) {
		return fmt.Errorf("fragment kept %d of %d bodies", len(res.Bodies), len(records))
	}
	sort.Slice(res.Bodies, func(i, j int) bool { return res.Bodies[i].Tag < res.Bodies[j].Tag })
	return nil
}

// boundary derives the outer air surfaces from adjacency instead of enumeration order
func (s *Synthesizer) boundary(ctx context.Context, k kernel.Kernel, air types.Box, tol float64, res *Result) error {
	var (
		bodySurfaces = make(map[int]bool)
		all          []types.Entity
		airSurfaces  []types.Entity
		err          error
	)
	for _, b := range res.Bodies {
		surfaces, err := k.BoundingSurfaces(ctx, types.Volume(b.Tag))
		if err != nil {
			return err
		}
		for _, sf := range surfaces {
			bodySurfaces[sf.Tag] = true
		}
	}
	for tag := range bodySurfaces {
		res.BodySurfaces = append(res.BodySurfaces, tag)
	}
	sort.Ints(res.BodySurfaces)

	if airSurfaces, err = k.BoundingSurfaces(ctx, types.Volume(res.Air.Tag)); err != nil {
		return err
	}
	for _, sf := range airSurfaces {
		if bodySurfaces[sf.Tag] {
			continue
		}
		box, err := k.BoundingBox(ctx, sf)
		if err != nil {
			return err
		}
		if onHull(box, air, tol) {
			res.Boundary = append(res.Boundary, sf.Tag)
		}
	}
	sort.Ints(res.Boundary)
	if len(res.Boundary) < 6 {
		return fmt.Errorf("found %d outer air surfaces, a box needs at least 6", len(res.Boundary))
	}

	if all, err = k.Entities(ctx, types.DimSurface); err != nil {
		return err
	}
	res.LastSix = types.LastSix(types.Tags(all))
	return nil
}

// onHull reports whether a planar surface box lies in one of the faces of the air box
func onHull(sf, air types.Box, tol float64) bool {
	if !air.Contains(sf, tol) {
		return false
	}
	lo, hi := sf.Values(), air.Values()
	for axis := 0; axis < 3; axis++ {
		flat := lo[axis+3]-lo[axis] <= tol
		if flat && (math.Abs(lo[axis]-hi[axis]) <= tol || math.Abs(lo[axis]-hi[axis+3]) <= tol) {
			return true
		}
	}
	return false
}
