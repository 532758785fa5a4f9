/*
Package pipeline runs one geometry preparation and meshing job from exchange file to mesh, and
optionally the solver input, inside a single kernel session.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/notargets/airmesh/domain"
	"github.com/notargets/airmesh/geometry"
	"github.com/notargets/airmesh/iges"
	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/kernel/memkernel"
	"github.com/notargets/airmesh/materials"
	"github.com/notargets/airmesh/mesh"
	"github.com/notargets/airmesh/mesh/readers"
	"github.com/notargets/airmesh/refinement"
	"github.com/notargets/airmesh/solverconfig"
	"github.com/notargets/airmesh/types"
	"github.com/notargets/airmesh/utils"
	"go.uber.org/zap"
)

const DefaultPadding = 50.

var ErrOptions = errors.New("invalid options")

type Options struct {
	Input  string
	Output string
	// Units applies to inputs without an exchange file header, such as scene files
	Units       types.UnitsCode
	Padding     float64 // Native units of the input
	Overrides   refinement.Overrides
	Preset      refinement.Preset
	Policy      domain.Policy
	MultiThread bool
	NumCPU      int // Zero selects runtime.NumCPU
	// Jobs is the number of sessions sharing the processors, zero means one
	Jobs int
	// SolverConfig writes the solver case and bootstrap file into SolverDir, or next to Output
	SolverConfig   bool
	SolverDir      string
	CopyTo         string
	MaterialRules  []materials.Rule
	BodyForceRules []materials.Rule
	Opener         kernel.Opener
	Logger         *zap.Logger
}

type Result struct {
	Input    string
	Units    types.UnitsCode
	Frame    geometry.Frame
	Plan     types.MeshSizingPlan
	Bodies   []types.Body
	Boundary types.BoundarySurfaceSet
	Threads  int
	MeshFile string
	CaseFile string
	CopiedTo string
	Stats    mesh.Statistics
	MeshBox  types.Box // Span of the volumes read back from MeshFile
}

func (o *Options) validate() error {
	switch {
	case o.Input == "":
		return fmt.Errorf("%w: no input file", ErrOptions)
	case o.Output == "":
		return fmt.Errorf("%w: no output file", ErrOptions)
	case strings.ToLower(filepath.Ext(o.Output)) != ".msh":
		return fmt.Errorf("%w: output %s must be a .msh file", ErrOptions, o.Output)
	case o.Opener == nil:
		return fmt.Errorf("%w: no kernel", ErrOptions)
	case o.Padding <= 0:
		return fmt.Errorf("%w: padding must be positive, have %g", ErrOptions, o.Padding)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.NumCPU == 0 {
		o.NumCPU = runtime.NumCPU()
	}
	return nil
}

/*
ResolveUnits reads the units declared by an exchange file. Scene files carry no header and use
fallback; any other input must be an exchange file, so a bad header fails with iges.ErrFormat.
*/
func ResolveUnits(input string, fallback types.UnitsCode) (types.UnitsCode, error) {
	if !memkernel.IsScene(input) {
		return iges.ParseUnits(input)
	}
	if fallback == "" {
		return "", fmt.Errorf("%w: scene %s declares no units and none were given", ErrOptions, input)
	}
	return fallback, nil
}

/*
Run executes the job. The kernel session is closed on every path before Run returns; the copy
to CopyTo happens after that and a failed copy is logged without failing the job.
*/
func Run(ctx context.Context, opts Options) (res *Result, err error) {
	var (
		units  types.UnitsCode
		mapper *materials.Mapper
	)
	if err = opts.validate(); err != nil {
		return
	}
	logger := opts.Logger.With(zap.String("input", opts.Input))
	if units, err = ResolveUnits(opts.Input, opts.Units); err != nil {
		return
	}
	logger.Info("units", zap.Stringer("units", units))
	if mapper, err = materials.NewMapper(opts.MaterialRules, opts.BodyForceRules); err != nil {
		return
	}
	if res, err = runSession(ctx, opts, logger, units, mapper); err != nil {
		return
	}
	if opts.CopyTo != "" {
		if cerr := utils.CopyFile(res.MeshFile, opts.CopyTo); cerr != nil {
			logger.Warn("copy of mesh failed", zap.String("target", opts.CopyTo), zap.Error(cerr))
		} else {
			res.CopiedTo = opts.CopyTo
			logger.Info("copied mesh", zap.String("target", opts.CopyTo))
		}
	}
	return
}

func runSession(ctx context.Context, opts Options, logger *zap.Logger, units types.UnitsCode,
	mapper *materials.Mapper) (res *Result, err error) {
	var (
		k      kernel.Kernel
		vols   []types.Entity
		synth  domain.Result
		msh    *mesh.Mesh
		field  int
		bodies []types.Body
	)
	if k, err = opts.Opener(ctx); err != nil {
		return nil, fmt.Errorf("opening kernel: %w", err)
	}
	defer func() {
		if cerr := k.Close(); cerr != nil {
			logger.Warn("closing kernel", zap.Error(cerr))
		}
	}()
	res = &Result{Input: opts.Input, Units: units, MeshFile: opts.Output}

	if vols, err = k.Import(ctx, opts.Input); err != nil {
		return nil, fmt.Errorf("importing %s: %w", opts.Input, err)
	}
	logger.Info("imported", zap.Int("volumes", len(vols)))
	if res.Frame, err = geometry.NewNormalizer(logger).Normalize(ctx, k, vols, units, opts.Padding); err != nil {
		return nil, err
	}
	if synth, err = domain.NewSynthesizer(logger).Synthesize(ctx, k, vols, res.Frame.AirBox, opts.Policy); err != nil {
		return nil, err
	}
	res.Boundary = synth.Boundary
	bodies = append(append(bodies, synth.Bodies...), synth.Air)
	if opts.SolverConfig {
		// Materials are resolved before meshing so an unmapped body fails early
		if bodies, err = mapper.Assign(bodies); err != nil {
			return nil, err
		}
	}
	res.Bodies = bodies

	if err = addPhysicalGroups(ctx, k, bodies); err != nil {
		return nil, err
	}
	if res.Plan, err = refinement.Plan(res.Frame.BodyBox, res.Frame.Padding, opts.Overrides, opts.Preset, res.Frame.Scale); err != nil {
		return nil, err
	}
	logger.Info("sizing plan",
		zap.Stringer("preset", opts.Preset),
		zap.Float64("outerSize", res.Plan.OuterSize), zap.Float64("innerSize", res.Plan.InnerSize),
		zap.Float64("innerDistance", res.Plan.InnerDistance), zap.Float64("outerDistance", res.Plan.OuterDistance))
	if field, err = k.AddDistanceField(synth.BodySurfaces); err != nil {
		return nil, err
	}
	if field, err = k.AddThresholdField(field, res.Plan); err != nil {
		return nil, err
	}
	if err = k.SetBackgroundField(field); err != nil {
		return nil, err
	}
	res.Threads = utils.SharedKernelThreads(opts.MultiThread, opts.NumCPU, opts.Jobs)
	if err = k.SetThreads(res.Threads); err != nil {
		return nil, err
	}

	if err = k.Generate(ctx, types.DimVolume); err != nil {
		return nil, fmt.Errorf("generating mesh: %w", err)
	}
	if err = k.Write(ctx, opts.Output); err != nil {
		return nil, fmt.Errorf("writing mesh: %w", err)
	}
	if msh, err = readers.ReadMeshFile(opts.Output); err != nil {
		return nil, fmt.Errorf("reading back %s: %w", opts.Output, err)
	}
	res.Stats = msh.Statistics()
	res.MeshBox = msh.BoundingBox()
	logger.Info("wrote mesh", zap.String("file", opts.Output), zap.Stringer("bbox", res.MeshBox),
		zap.Int("vertices", res.Stats.Vertices), zap.Int("elements", res.Stats.Elements),
		zap.Int("volumes", res.Stats.Volumes), zap.Int("physicalGroups", res.Stats.PhysicalGroups))

	if opts.SolverConfig {
		dir := opts.SolverDir
		if dir == "" {
			dir = filepath.Dir(opts.Output)
		}
		data := solverconfig.NewData(MeshDirName(opts.Output), bodies, res.Boundary, nil, nil)
		if res.CaseFile, err = solverconfig.Write(dir, data); err != nil {
			return nil, fmt.Errorf("writing solver config: %w", err)
		}
		logger.Info("wrote solver config", zap.String("file", res.CaseFile))
	}
	return
}

// addPhysicalGroups gives every body a volume group and every surface a surface group, tagged like the entity
func addPhysicalGroups(ctx context.Context, k kernel.Kernel, bodies []types.Body) error {
	for _, b := range bodies {
		if err := k.AddPhysicalGroup(types.DimVolume, []int{b.Tag}, b.Tag, b.Name); err != nil {
			return err
		}
	}
	surfaces, err := k.Entities(ctx, types.DimSurface)
	if err != nil {
		return err
	}
	for _, s := range surfaces {
		if err = k.AddPhysicalGroup(types.DimSurface, []int{s.Tag}, s.Tag, ""); err != nil {
			return err
		}
	}
	return nil
}

// MeshDirName is the mesh database directory the solver expects for a mesh file
func MeshDirName(meshFile string) string {
	base := filepath.Base(meshFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
