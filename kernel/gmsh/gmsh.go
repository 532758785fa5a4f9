/*
Package gmsh binds the kernel contract to the gmsh executable. Every operation is recorded as
a statement of a .geo script. Queries regenerate the script, append a probe that saves the
model as MSH 4.1 and read the entity section back, so tags, bounding boxes and adjacency
always come from gmsh itself.
*/
package gmsh

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/mesh"
	"github.com/notargets/airmesh/mesh/readers"
	"github.com/notargets/airmesh/types"
	"github.com/notargets/airmesh/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	scriptName = "model.geo"
	probeName  = "probe.msh"
	meshName   = "mesh.msh"
)

type Kernel struct {
	runner      Runner
	logger      *zap.Logger
	workDir     string
	ownsWorkDir bool
	volumeNames map[int]string
	names       map[int]string
	ops         []string
	probe       *mesh.Mesh
	probeOps    int
	fields      map[int]string
	nextField   int
	generated   bool
	closed      bool
}

type Option func(*Kernel)

func WithRunner(r Runner) Option { return func(k *Kernel) { k.runner = r } }

func WithLogger(l *zap.Logger) Option { return func(k *Kernel) { k.logger = l } }

// WithWorkDir keeps scripts and probes in dir instead of a private temporary directory
func WithWorkDir(dir string) Option { return func(k *Kernel) { k.workDir = dir } }

// WithVolumeNames names imported volumes by tag, unnamed volumes get Shapes/volume_<tag>
func WithVolumeNames(names map[int]string) Option {
	return func(k *Kernel) {
		for tag, name := range names {
			k.volumeNames[tag] = name
		}
	}
}

func Open(opts ...Option) (k *Kernel, err error) {
	k = &Kernel{
		logger:      zap.NewNop(),
		volumeNames: make(map[int]string),
		names:       make(map[int]string),
		fields:      make(map[int]string),
		probeOps:    -1,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.runner == nil {
		k.runner = ExecRunner{Binary: DefaultBinary, Logger: k.logger}
	}
	if k.workDir == "" {
		if k.workDir, err = os.MkdirTemp("", "airmesh-gmsh-"); err != nil {
			return nil, err
		}
		k.ownsWorkDir = true
	}
	return k, nil
}

func Opener(opts ...Option) kernel.Opener {
	return func(ctx context.Context) (kernel.Kernel, error) {
		return Open(opts...)
	}
}

var _ kernel.Kernel = (*Kernel)(nil)

// Script returns the script recorded so far
func (k *Kernel) Script() string {
	return k.script()
}

func (k *Kernel) script(tail ...string) string {
	var b strings.Builder
	b.WriteString("SetFactory(\"OpenCASCADE\");\n")
	b.WriteString("General.Terminal = 1;\n")
	b.WriteString("Mesh.MshFileVersion = 4.1;\n")
	for _, op := range k.ops {
		b.WriteString(op)
		b.WriteString("\n")
	}
	for _, t := range tail {
		b.WriteString(t)
		b.WriteString("\n")
	}
	return b.String()
}

func (k *Kernel) record(format string, args ...interface{}) {
	k.ops = append(k.ops, fmt.Sprintf(format, args...))
}

func (k *Kernel) run(ctx context.Context, script string) error {
	if err := os.WriteFile(filepath.Join(k.workDir, scriptName), []byte(script), 0o644); err != nil {
		return err
	}
	out, err := k.runner.Run(ctx, k.workDir, scriptName)
	k.logger.Debug("gmsh finished", zap.Int("statements", len(k.ops)), zap.Int("outputBytes", len(out)))
	return err
}

// state probes the model, reusing the last probe while no statement was recorded since
func (k *Kernel) state(ctx context.Context) (*mesh.Mesh, error) {
	if k.closed {
		return nil, kernel.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k.probe != nil && k.probeOps == len(k.ops) {
		return k.probe, nil
	}
	probePath := filepath.Join(k.workDir, probeName)
	_ = os.Remove(probePath)
	if err := k.run(ctx, k.script("Mesh.SaveAll = 1;", fmt.Sprintf("Save %s;", quote(probeName)))); err != nil {
		return nil, err
	}
	msh, err := readers.ReadGmsh4(probePath)
	if err != nil {
		return nil, fmt.Errorf("reading gmsh probe: %w", err)
	}
	k.probe, k.probeOps = msh, len(k.ops)
	return msh, nil
}

func (k *Kernel) volumeTags(ctx context.Context) (tags []int, err error) {
	var msh *mesh.Mesh
	if msh, err = k.state(ctx); err != nil {
		return
	}
	for _, e := range msh.EntitiesOfDim(types.DimVolume) {
		tags = append(tags, e.Tag)
	}
	return
}

func (k *Kernel) Import(ctx context.Context, path string) (vols []types.Entity, err error) {
	var before, after []int
	if path, err = filepath.Abs(path); err != nil {
		return
	}
	if len(k.ops) > 0 {
		if before, err = k.volumeTags(ctx); err != nil {
			return
		}
	}
	k.record("ShapeFromFile(%s);", quote(path))
	if after, err = k.volumeTags(ctx); err != nil {
		return
	}
	existing := intSet(before)
	for _, tag := range after {
		if existing[tag] {
			continue
		}
		name, ok := k.volumeNames[tag]
		if !ok {
			name = fmt.Sprintf("Shapes/volume_%d", tag)
		}
		k.names[tag] = name
		vols = append(vols, types.Volume(tag))
	}
	if len(vols) == 0 {
		err = fmt.Errorf("%s: %w", path, kernel.ErrNoGeometry)
	}
	return
}

func (k *Kernel) Entities(ctx context.Context, dim types.Dim) (ents []types.Entity, err error) {
	var msh *mesh.Mesh
	if msh, err = k.state(ctx); err != nil {
		return
	}
	for _, e := range msh.EntitiesOfDim(dim) {
		ents = append(ents, types.Entity{Dim: dim, Tag: e.Tag})
	}
	return
}

func (k *Kernel) EntityName(e types.Entity) (string, error) {
	if k.closed {
		return "", kernel.ErrClosed
	}
	if e.Dim != types.DimVolume {
		return "", nil
	}
	return k.names[e.Tag], nil
}

func (k *Kernel) BoundingBox(ctx context.Context, ents ...types.Entity) (box types.Box, err error) {
	var msh *mesh.Mesh
	if msh, err = k.state(ctx); err != nil {
		return
	}
	box = types.EmptyBox()
	if len(ents) == 0 {
		vols := msh.EntitiesOfDim(types.DimVolume)
		if len(vols) == 0 {
			err = kernel.ErrNoGeometry
			return
		}
		for _, v := range vols {
			box = box.Union(v.Box())
		}
		return
	}
	for _, e := range ents {
		ent, ok := msh.Entities[e]
		if !ok {
			err = fmt.Errorf("%w %s", kernel.ErrEntityUnknown, e)
			return
		}
		box = box.Union(ent.Box())
	}
	return
}

func (k *Kernel) Dilate(ents []types.Entity, factor float64) error {
	if k.closed {
		return kernel.ErrClosed
	}
	if factor <= 0 {
		return fmt.Errorf("dilation factor must be positive, have %g", factor)
	}
	f := num(factor)
	k.record("Dilate {{0, 0, 0}, {%s, %s, %s}} { %s }", f, f, f, entityList(ents))
	return nil
}

func (k *Kernel) Translate(ents []types.Entity, d r3.Vec) error {
	if k.closed {
		return kernel.ErrClosed
	}
	k.record("Translate {%s, %s, %s} { %s }", num(d.X), num(d.Y), num(d.Z), entityList(ents))
	return nil
}

// RemoveDuplicates records a Coherence pass and compares the volume counts around it
func (k *Kernel) RemoveDuplicates(ctx context.Context) (removed int, err error) {
	var before, after []int
	if before, err = k.volumeTags(ctx); err != nil {
		return
	}
	k.record("Coherence;")
	if after, err = k.volumeTags(ctx); err != nil {
		return
	}
	if removed = len(before) - len(after); removed < 0 {
		removed = 0
	}
	return
}

func (k *Kernel) AddBox(ctx context.Context, b types.Box) (ent types.Entity, err error) {
	var tags []int
	if b.IsEmpty() {
		err = fmt.Errorf("box has min above max: %s", b)
		return
	}
	if tags, err = k.volumeTags(ctx); err != nil {
		return
	}
	tag := 1
	for _, t := range tags {
		if t >= tag {
			tag = t + 1
		}
	}
	s := b.Size()
	k.record("Box(%d) = {%s, %s, %s, %s, %s, %s};", tag,
		num(b.Min.X), num(b.Min.Y), num(b.Min.Z), num(s.X), num(s.Y), num(s.Z))
	return types.Volume(tag), nil
}

func (k *Kernel) Cut(ctx context.Context, objects, tools []types.Entity, removeTool bool) ([]types.Entity, error) {
	toolDelete := ""
	if removeTool {
		toolDelete = " Delete;"
	}
	return k.boolean(ctx, objects, tools, func() {
		k.record("BooleanDifference{ %s Delete; }{ %s%s }", entityList(objects), entityList(tools), toolDelete)
	}, false)
}

func (k *Kernel) Fragment(ctx context.Context, objects, tools []types.Entity) ([]types.Entity, error) {
	return k.boolean(ctx, objects, tools, func() {
		k.record("BooleanFragments{ %s Delete; }{ %s Delete; }", entityList(objects), entityList(tools))
	}, true)
}

/*
boolean records an operation and derives its result from the volumes present before and after.
Volumes not taking part keep their tags, every other volume present afterwards is a result.
Kept tools are excluded from the result.
*/
func (k *Kernel) boolean(ctx context.Context, objects, tools []types.Entity, record func(), toolsInResult bool) (result []types.Entity, err error) {
	var before, after []int
	if before, err = k.volumeTags(ctx); err != nil {
		return
	}
	present := intSet(before)
	for _, e := range append(append([]types.Entity{}, objects...), tools...) {
		if e.Dim != types.DimVolume || !present[e.Tag] {
			err = fmt.Errorf("%w %s", kernel.ErrEntityUnknown, e)
			return
		}
	}
	participants := intSet(types.Tags(objects))
	if toolsInResult {
		for _, t := range types.Tags(tools) {
			participants[t] = true
		}
	}
	bystanders := make(map[int]bool)
	for _, t := range before {
		if !participants[t] {
			bystanders[t] = true
		}
	}
	record()
	if after, err = k.volumeTags(ctx); err != nil {
		return
	}
	for _, t := range after {
		if !bystanders[t] {
			result = append(result, types.Volume(t))
		}
	}
	return
}

func (k *Kernel) BoundingSurfaces(ctx context.Context, vol types.Entity) (surfaces []types.Entity, err error) {
	var msh *mesh.Mesh
	if msh, err = k.state(ctx); err != nil {
		return
	}
	ent, ok := msh.Entities[vol]
	if vol.Dim != types.DimVolume || !ok {
		err = fmt.Errorf("%w %s", kernel.ErrEntityUnknown, vol)
		return
	}
	for _, s := range ent.BoundingEntities {
		if s < 0 {
			s = -s
		}
		surfaces = append(surfaces, types.Surface(s))
	}
	return
}

func (k *Kernel) AddPhysicalGroup(dim types.Dim, tags []int, tag int, name string) error {
	if k.closed {
		return kernel.ErrClosed
	}
	var kind string
	switch dim {
	case types.DimSurface:
		kind = "Surface"
	case types.DimVolume:
		kind = "Volume"
	default:
		return fmt.Errorf("physical groups of dimension %d are not supported", dim)
	}
	label := strconv.Itoa(tag)
	if name != "" {
		label = quote(name) + ", " + label
	}
	k.record("Physical %s(%s) = {%s};", kind, label, joinInts(tags))
	return nil
}

func (k *Kernel) AddDistanceField(surfaces []int) (int, error) {
	if k.closed {
		return 0, kernel.ErrClosed
	}
	k.nextField++
	f := k.nextField
	k.fields[f] = "Distance"
	k.record("Field[%d] = Distance;", f)
	k.record("Field[%d].SurfacesList = {%s};", f, joinInts(surfaces))
	return f, nil
}

func (k *Kernel) AddThresholdField(inField int, plan types.MeshSizingPlan) (int, error) {
	if k.closed {
		return 0, kernel.ErrClosed
	}
	if k.fields[inField] != "Distance" {
		return 0, fmt.Errorf("threshold input field %d is not a distance field", inField)
	}
	k.nextField++
	f := k.nextField
	k.fields[f] = "Threshold"
	k.record("Field[%d] = Threshold;", f)
	k.record("Field[%d].InField = %d;", f, inField)
	k.record("Field[%d].SizeMin = %s;", f, num(plan.InnerSize))
	k.record("Field[%d].SizeMax = %s;", f, num(plan.OuterSize))
	k.record("Field[%d].DistMin = %s;", f, num(plan.InnerDistance))
	k.record("Field[%d].DistMax = %s;", f, num(plan.OuterDistance))
	return f, nil
}

func (k *Kernel) SetBackgroundField(f int) error {
	if k.closed {
		return kernel.ErrClosed
	}
	if _, ok := k.fields[f]; !ok {
		return fmt.Errorf("unknown field %d", f)
	}
	k.record("Background Field = %d;", f)
	return nil
}

func (k *Kernel) SetThreads(n int) error {
	if k.closed {
		return kernel.ErrClosed
	}
	if n < 1 {
		return fmt.Errorf("thread count must be at least 1, have %d", n)
	}
	k.record("General.NumThreads = %d;", n)
	return nil
}

// Generate meshes the model and keeps the result in the work directory until Write
func (k *Kernel) Generate(ctx context.Context, dim types.Dim) error {
	if k.closed {
		return kernel.ErrClosed
	}
	if dim < types.DimCurve || dim > types.DimVolume {
		return fmt.Errorf("can not generate a mesh of dimension %d", dim)
	}
	k.record("Mesh %d;", dim)
	if err := k.run(ctx, k.script(fmt.Sprintf("Save %s;", quote(meshName)))); err != nil {
		return err
	}
	k.generated = true
	return nil
}

func (k *Kernel) Write(ctx context.Context, path string) (err error) {
	if k.closed {
		return kernel.ErrClosed
	}
	if !k.generated {
		var abs string
		if abs, err = filepath.Abs(path); err != nil {
			return
		}
		return k.run(ctx, k.script(fmt.Sprintf("Save %s;", quote(abs))))
	}
	return utils.CopyFile(filepath.Join(k.workDir, meshName), path)
}

func (k *Kernel) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	if k.ownsWorkDir {
		return os.RemoveAll(k.workDir)
	}
	return nil
}

// entityList formats entities as gmsh selections grouped by dimension, e.g. Volume{1, 2};
func entityList(ents []types.Entity) string {
	byDim := make(map[types.Dim][]int)
	for _, e := range ents {
		byDim[e.Dim] = append(byDim[e.Dim], e.Tag)
	}
	dims := make([]int, 0, len(byDim))
	for d := range byDim {
		dims = append(dims, int(d))
	}
	sort.Ints(dims)
	var parts []string
	for _, d := range dims {
		parts = append(parts, fmt.Sprintf("%s{%s};", types.Dim(d), joinInts(byDim[types.Dim(d)])))
	}
	return strings.Join(parts, " ")
}

func joinInts(vals []int) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ", ")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func quote(s string) string {
	return strconv.Quote(s)
}

func intSet(vals []int) map[int]bool {
	set := make(map[int]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
