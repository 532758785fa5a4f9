/*
Package geometry brings imported volumes into the canonical frame: lengths in meters and the
padded study domain starting at the origin.
*/
package geometry

import (
	"context"
	"errors"
	"fmt"

	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/types"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var ErrUnsupportedUnits = errors.New("unsupported units")

var scaleFactors = map[types.UnitsCode]float64{
	types.UnitsMM: 0.001,
	types.UnitsCM: 0.01,
	types.UnitsM:  1,
}

// ScaleFactor converts a length in the given unit to meters
func ScaleFactor(code types.UnitsCode) (float64, error) {
	if f, ok := scaleFactors[code]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnits, code)
}

// Frame records how geometry was moved into the canonical frame. All lengths are in meters.
type Frame struct {
	Units       types.UnitsCode
	Scale       float64
	Translation r3.Vec
	Padding     float64
	BodyBox     types.Box
	AirBox      types.Box // Always has its minimum corner at the origin
}

// ToCanonical converts a length given in the native units of the input
func (f Frame) ToCanonical(length float64) float64 {
	return length * f.Scale
}

type Normalizer struct {
	logger *zap.Logger
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

/*
Normalize scales vols about the origin into meters and translates them so the box padded by
padding (native units) has its minimum corner at the origin. The translation is applied even
when the padded box already lies in the positive octant, so the placement of the domain does
not depend on where the part was modeled.
*/
func (n *Normalizer) Normalize(ctx context.Context, k kernel.Kernel, vols []types.Entity,
	code types.UnitsCode, padding float64) (frame Frame, err error) {
	var (
		box types.Box
	)
	if len(vols) == 0 {
		err = kernel.ErrNoGeometry
		return
	}
	if padding <= 0 {
		err = fmt.Errorf("padding must be positive, have %g", padding)
		return
	}
	frame.Units = code
	if frame.Scale, err = ScaleFactor(code); err != nil {
		return
	}
	frame.Padding = frame.ToCanonical(padding)
	if frame.Scale != 1 {
		if err = k.Dilate(vols, frame.Scale); err != nil {
			return
		}
	}
	if box, err = k.BoundingBox(ctx, vols...); err != nil {
		return
	}
	n.logger.Info("scaled geometry",
		zap.Stringer("units", code), zap.Float64("scale", frame.Scale), zap.Stringer("bbox", box))

	frame.Translation = r3.Sub(r3.Vec{X: frame.Padding, Y: frame.Padding, Z: frame.Padding}, box.Min)
	if frame.Translation != (r3.Vec{}) {
		if err = k.Translate(vols, frame.Translation); err != nil {
			return
		}
	}
	if frame.BodyBox, err = k.BoundingBox(ctx, vols...); err != nil {
		return
	}
	size := r3.Add(box.Size(), r3.Scale(2, r3.Vec{X: frame.Padding, Y: frame.Padding, Z: frame.Padding}))
	frame.AirBox = types.NewBox(0, 0, 0, size.X, size.Y, size.Z)
	n.logger.Info("normalized geometry",
		zap.Float64("tx", frame.Translation.X), zap.Float64("ty", frame.Translation.Y), zap.Float64("tz", frame.Translation.Z),
		zap.Stringer("bodyBox", frame.BodyBox), zap.Stringer("airBox", frame.AirBox))
	return
}
