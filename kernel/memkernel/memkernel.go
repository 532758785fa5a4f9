/*
Package memkernel is an in-process geometry kernel whose solids are axis aligned boxes. It
implements the full kernel contract except element generation: Generate records that a mesh
was requested and Write emits the entity skeleton of the model as an MSH 4.1 file. It backs
dry runs, scene files and the tests of everything above the kernel boundary.
*/
package memkernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/mesh"
	"github.com/notargets/airmesh/types"
	"gonum.org/v1/gonum/spatial/r3"
)

const DefaultTolerance = 1.e-9

// Shape is one named box solid of a scene
type Shape struct {
	Name string     `json:"Name"`
	Min  [3]float64 `json:"Min"`
	Max  [3]float64 `json:"Max"`
}

func (s Shape) Box() types.Box {
	return types.NewBox(s.Min[0], s.Min[1], s.Min[2], s.Max[0], s.Max[1], s.Max[2])
}

// Scene is the YAML form of a list of shapes
type Scene struct {
	Shapes []Shape `json:"Shapes"`
}

// IsScene reports whether path names a YAML scene file
func IsScene(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func LoadScene(path string) (shapes []Shape, err error) {
	var (
		data  []byte
		scene Scene
	)
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	if err = yaml.Unmarshal(data, &scene); err != nil {
		err = fmt.Errorf("%s: %w", path, err)
		return
	}
	for i, s := range scene.Shapes {
		if s.Box().IsEmpty() {
			err = fmt.Errorf("%s: shape %d (%s) has min above max", path, i, s.Name)
			return
		}
	}
	return scene.Shapes, nil
}

type volume struct {
	tag      int
	name     string
	box      types.Box
	surfaces []int
}

type field struct {
	kind     string
	surfaces []int
	inField  int
	plan     types.MeshSizingPlan
}

type Kernel struct {
	tolerance   float64
	shapes      map[string][]Shape
	volumes     map[int]*volume
	surfaces    map[int]types.Box
	nextVolume  int
	nextSurface int
	physical    map[types.Entity]*mesh.PhysicalGroup
	fields      map[int]*field
	nextField   int
	background  int
	threads     int
	generated   bool
	closed      bool
}

type Option func(*Kernel)

// WithShapes registers the shapes Import returns for a path
func WithShapes(path string, shapes ...Shape) Option {
	return func(k *Kernel) { k.shapes[path] = shapes }
}

func WithTolerance(tol float64) Option {
	return func(k *Kernel) { k.tolerance = tol }
}

func New(opts ...Option) *Kernel {
	k := &Kernel{
		tolerance: DefaultTolerance,
		shapes:    make(map[string][]Shape),
		volumes:   make(map[int]*volume),
		surfaces:  make(map[int]types.Box),
		physical:  make(map[types.Entity]*mesh.PhysicalGroup),
		fields:    make(map[int]*field),
		threads:   1,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Opener adapts New to kernel.Opener
func Opener(opts ...Option) kernel.Opener {
	return func(ctx context.Context) (kernel.Kernel, error) {
		return New(opts...), nil
	}
}

var _ kernel.Kernel = (*Kernel)(nil)

func (k *Kernel) check(ctx context.Context) error {
	if k.closed {
		return kernel.ErrClosed
	}
	if ctx != nil {
		return ctx.Err()
	}
	return nil
}

func (k *Kernel) Import(ctx context.Context, path string) (vols []types.Entity, err error) {
	if err = k.check(ctx); err != nil {
		return
	}
	shapes, ok := k.shapes[path]
	if !ok {
		if !IsScene(path) {
			err = fmt.Errorf("memkernel: no shapes registered for %s", path)
			return
		}
		if shapes, err = LoadScene(path); err != nil {
			return
		}
	}
	for _, s := range shapes {
		v := k.addVolume(s.Name, s.Box())
		if v.name == "" {
			v.name = fmt.Sprintf("Shapes/volume_%d", v.tag)
		}
		vols = append(vols, types.Volume(v.tag))
	}
	return
}

func (k *Kernel) addVolume(name string, box types.Box) *volume {
	k.nextVolume++
	v := &volume{tag: k.nextVolume, name: name, box: box}
	lo, hi := box.Min, box.Max
	faces := []types.Box{
		types.NewBox(lo.X, lo.Y, lo.Z, lo.X, hi.Y, hi.Z),
		types.NewBox(hi.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z),
		types.NewBox(lo.X, lo.Y, lo.Z, hi.X, lo.Y, hi.Z),
		types.NewBox(lo.X, hi.Y, lo.Z, hi.X, hi.Y, hi.Z),
		types.NewBox(lo.X, lo.Y, lo.Z, hi.X, hi.Y, lo.Z),
		types.NewBox(lo.X, lo.Y, hi.Z, hi.X, hi.Y, hi.Z),
	}
	for _, f := range faces {
		v.surfaces = append(v.surfaces, k.addSurface(f))
	}
	k.volumes[v.tag] = v
	return v
}

func (k *Kernel) addSurface(b types.Box) int {
	k.nextSurface++
	k.surfaces[k.nextSurface] = b
	return k.nextSurface
}

func (k *Kernel) Entities(ctx context.Context, dim types.Dim) (ents []types.Entity, err error) {
	if err = k.check(ctx); err != nil {
		return
	}
	switch dim {
	case types.DimVolume:
		for _, tag := range sortedKeys(k.volumes) {
			ents = append(ents, types.Volume(tag))
		}
	case types.DimSurface:
		for _, tag := range sortedKeys(k.surfaces) {
			ents = append(ents, types.Surface(tag))
		}
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
	v, ok := k.volumes[e.Tag]
	if !ok {
		return "", fmt.Errorf("%w %s", kernel.ErrEntityUnknown, e)
	}
	return v.name, nil
}

func (k *Kernel) BoundingBox(ctx context.Context, ents ...types.Entity) (box types.Box, err error) {
	if err = k.check(ctx); err != nil {
		return
	}
	box = types.EmptyBox()
	if len(ents) == 0 {
		if len(k.volumes) == 0 {
			err = kernel.ErrNoGeometry
			return
		}
		for _, v := range k.volumes {
			box = box.Union(v.box)
		}
		return
	}
	for _, e := range ents {
		var b types.Box
		if b, err = k.entityBox(e); err != nil {
			return
		}
		box = box.Union(b)
	}
	return
}

func (k *Kernel) entityBox(e types.Entity) (types.Box, error) {
	switch e.Dim {
	case types.DimVolume:
		if v, ok := k.volumes[e.Tag]; ok {
			return v.box, nil
		}
	case types.DimSurface:
		if b, ok := k.surfaces[e.Tag]; ok {
			return b, nil
		}
	}
	return types.Box{}, fmt.Errorf("%w %s", kernel.ErrEntityUnknown, e)
}

// transform applies fn once to every listed entity and every surface bounding a listed volume
func (k *Kernel) transform(ents []types.Entity, fn func(types.Box) types.Box) error {
	if k.closed {
		return kernel.ErrClosed
	}
	var (
		vols     []*volume
		surfaces = make(map[int]bool)
	)
	for _, e := range ents {
		if _, err := k.entityBox(e); err != nil {
			return err
		}
		switch e.Dim {
		case types.DimVolume:
			v := k.volumes[e.Tag]
			vols = append(vols, v)
			for _, s := range v.surfaces {
				surfaces[s] = true
			}
		case types.DimSurface:
			surfaces[e.Tag] = true
		}
	}
	for _, v := range vols {
		v.box = fn(v.box)
	}
	for s := range surfaces {
		k.surfaces[s] = fn(k.surfaces[s])
	}
	return nil
}

func (k *Kernel) Dilate(ents []types.Entity, factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("dilation factor must be positive, have %g", factor)
	}
	return k.transform(ents, func(b types.Box) types.Box { return b.Scale(factor) })
}

func (k *Kernel) Translate(ents []types.Entity, d r3.Vec) error {
	return k.transform(ents, func(b types.Box) types.Box { return b.Translate(d) })
}

func (k *Kernel) RemoveDuplicates(ctx context.Context) (removed int, err error) {
	if err = k.check(ctx); err != nil {
		return
	}
	var kept []*volume
	for _, tag := range sortedKeys(k.volumes) {
		v := k.volumes[tag]
		dup := false
		for _, kv := range kept {
			if kv.box.Equal(v.box, k.tolerance) {
				dup = true
				break
			}
		}
		if dup {
			k.deleteVolume(v.tag)
			removed++
			continue
		}
		kept = append(kept, v)
	}
	return
}

// deleteVolume removes a volume and any of its surfaces no other volume uses
func (k *Kernel) deleteVolume(tag int) {
	v := k.volumes[tag]
	delete(k.volumes, tag)
	used := make(map[int]bool)
	for _, other := range k.volumes {
		for _, s := range other.surfaces {
			used[s] = true
		}
	}
	for _, s := range v.surfaces {
		if !used[s] {
			delete(k.surfaces, s)
		}
	}
}

func (k *Kernel) AddBox(ctx context.Context, b types.Box) (types.Entity, error) {
	if err := k.check(ctx); err != nil {
		return types.Entity{}, err
	}
	if b.IsEmpty() {
		return types.Entity{}, fmt.Errorf("box has min above max: %s", b)
	}
	v := k.addVolume("", b)
	return types.Volume(v.tag), nil
}

func (k *Kernel) volumesOf(ents []types.Entity) (vols []*volume, err error) {
	for _, e := range ents {
		v, ok := k.volumes[e.Tag]
		if e.Dim != types.DimVolume || !ok {
			return nil, fmt.Errorf("%w %s", kernel.ErrEntityUnknown, e)
		}
		vols = append(vols, v)
	}
	return
}

// checkNesting rejects pairs of volumes whose interiors cross without one enclosing the other
func (k *Kernel) checkNesting(vols []*volume) error {
	for i, a := range vols {
		for _, b := range vols[i+1:] {
			if !a.box.Overlaps(b.box, k.tolerance) {
				continue
			}
			if a.box.Equal(b.box, k.tolerance) {
				return fmt.Errorf("volumes %d and %d are coincident", a.tag, b.tag)
			}
			if !a.box.Contains(b.box, k.tolerance) && !b.box.Contains(a.box, k.tolerance) {
				return fmt.Errorf("volumes %d and %d intersect, only nested boxes are supported", a.tag, b.tag)
			}
		}
	}
	return nil
}

func (k *Kernel) Cut(ctx context.Context, objects, tools []types.Entity, removeTool bool) (result []types.Entity, err error) {
	var objVols, toolVols []*volume
	if err = k.check(ctx); err != nil {
		return
	}
	if objVols, err = k.volumesOf(objects); err != nil {
		return
	}
	if toolVols, err = k.volumesOf(tools); err != nil {
		return
	}
	if err = k.checkNesting(toolVols); err != nil {
		return
	}
	for _, obj := range objVols {
		var inside []*volume
		for _, tool := range toolVols {
			if !obj.box.Overlaps(tool.box, k.tolerance) {
				continue
			}
			if !obj.box.Contains(tool.box, k.tolerance) || obj.box.Equal(tool.box, k.tolerance) {
				err = fmt.Errorf("cut of volume %d by volume %d leaves no closed region", obj.tag, tool.tag)
				return
			}
			inside = append(inside, tool)
		}
		// The cut volume gets its own copies of the tool faces, they are not shared with the tools
		k.nextVolume++
		cut := &volume{tag: k.nextVolume, name: obj.name, box: obj.box}
		cut.surfaces = append(cut.surfaces, obj.surfaces...)
		for _, tool := range inside {
			for _, s := range tool.surfaces {
				cut.surfaces = append(cut.surfaces, k.addSurface(k.surfaces[s]))
			}
		}
		delete(k.volumes, obj.tag)
		k.volumes[cut.tag] = cut
		result = append(result, types.Volume(cut.tag))
	}
	if removeTool {
		for _, tool := range toolVols {
			k.deleteVolume(tool.tag)
		}
	}
	return
}

func (k *Kernel) Fragment(ctx context.Context, objects, tools []types.Entity) (result []types.Entity, err error) {
	var all []*volume
	if err = k.check(ctx); err != nil {
		return
	}
	if all, err = k.volumesOf(append(append([]types.Entity{}, objects...), tools...)); err != nil {
		return
	}
	if err = k.checkNesting(all); err != nil {
		return
	}
	var resultTags []int
	for _, a := range all {
		children := directChildren(a, all, k.tolerance)
		if len(children) == 0 {
			resultTags = append(resultTags, a.tag)
			continue
		}
		// The enclosing volume is renumbered and shares the faces of the volumes it encloses
		k.nextVolume++
		frag := &volume{tag: k.nextVolume, name: a.name, box: a.box}
		frag.surfaces = append(frag.surfaces, a.surfaces...)
		for _, c := range children {
			frag.surfaces = append(frag.surfaces, c.surfaces...)
		}
		delete(k.volumes, a.tag)
		k.volumes[frag.tag] = frag
		resultTags = append(resultTags, frag.tag)
	}
	sort.Ints(resultTags)
	for _, tag := range resultTags {
		result = append(result, types.Volume(tag))
	}
	return
}

func directChildren(a *volume, all []*volume, tol float64) (children []*volume) {
	var inside []*volume
	for _, b := range all {
		if b != a && a.box.Overlaps(b.box, tol) && a.box.Contains(b.box, tol) {
			inside = append(inside, b)
		}
	}
	for _, b := range inside {
		nested := false
		for _, c := range inside {
			if c != b && c.box.Contains(b.box, tol) {
				nested = true
				break
			}
		}
		if !nested {
			children = append(children, b)
		}
	}
	return
}

func (k *Kernel) BoundingSurfaces(ctx context.Context, vol types.Entity) (surfaces []types.Entity, err error) {
	if err = k.check(ctx); err != nil {
		return
	}
	v, ok := k.volumes[vol.Tag]
	if vol.Dim != types.DimVolume || !ok {
		err = fmt.Errorf("%w %s", kernel.ErrEntityUnknown, vol)
		return
	}
	for _, s := range v.surfaces {
		surfaces = append(surfaces, types.Surface(s))
	}
	return
}

func (k *Kernel) AddPhysicalGroup(dim types.Dim, tags []int, tag int, name string) error {
	if k.closed {
		return kernel.ErrClosed
	}
	key := types.Entity{Dim: dim, Tag: tag}
	if _, exists := k.physical[key]; exists {
		return fmt.Errorf("physical group %s already exists", key)
	}
	for _, t := range tags {
		if _, err := k.entityBox(types.Entity{Dim: dim, Tag: t}); err != nil {
			return err
		}
	}
	k.physical[key] = &mesh.PhysicalGroup{
		Dimension: dim,
		Tag:       tag,
		Name:      name,
		Entities:  append([]int{}, tags...),
	}
	return nil
}

func (k *Kernel) AddDistanceField(surfaces []int) (int, error) {
	if k.closed {
		return 0, kernel.ErrClosed
	}
	for _, s := range surfaces {
		if _, ok := k.surfaces[s]; !ok {
			return 0, fmt.Errorf("%w %s", kernel.ErrEntityUnknown, types.Surface(s))
		}
	}
	k.nextField++
	k.fields[k.nextField] = &field{kind: "Distance", surfaces: append([]int{}, surfaces...)}
	return k.nextField, nil
}

func (k *Kernel) AddThresholdField(inField int, plan types.MeshSizingPlan) (int, error) {
	if k.closed {
		return 0, kernel.ErrClosed
	}
	if f, ok := k.fields[inField]; !ok || f.kind != "Distance" {
		return 0, fmt.Errorf("threshold input field %d is not a distance field", inField)
	}
	k.nextField++
	k.fields[k.nextField] = &field{kind: "Threshold", inField: inField, plan: plan}
	return k.nextField, nil
}

func (k *Kernel) SetBackgroundField(f int) error {
	if k.closed {
		return kernel.ErrClosed
	}
	if _, ok := k.fields[f]; !ok {
		return fmt.Errorf("unknown field %d", f)
	}
	k.background = f
	return nil
}

func (k *Kernel) SetThreads(n int) error {
	if n < 1 {
		return fmt.Errorf("thread count must be at least 1, have %d", n)
	}
	k.threads = n
	return nil
}

func (k *Kernel) Generate(ctx context.Context, dim types.Dim) error {
	if err := k.check(ctx); err != nil {
		return err
	}
	if len(k.volumes) == 0 {
		return kernel.ErrNoGeometry
	}
	if dim < types.DimCurve || dim > types.DimVolume {
		return fmt.Errorf("can not generate a mesh of dimension %d", dim)
	}
	k.generated = true
	return nil
}

// Write emits the model entities, their adjacency and the physical groups as MSH 4.1
func (k *Kernel) Write(ctx context.Context, path string) (err error) {
	if err = k.check(ctx); err != nil {
		return
	}
	msh := mesh.NewMesh()
	physTags := func(e types.Entity) (tags []int) {
		for key, g := range k.physical {
			if key.Dim != e.Dim {
				continue
			}
			for _, t := range g.Entities {
				if t == e.Tag {
					tags = append(tags, key.Tag)
				}
			}
		}
		sort.Ints(tags)
		return
	}
	for _, tag := range sortedKeys(k.surfaces) {
		b := k.surfaces[tag]
		msh.AddEntity(&mesh.Entity{
			Dimension:    types.DimSurface,
			Tag:          tag,
			BoundingBox:  boxCorners(b),
			PhysicalTags: physTags(types.Surface(tag)),
		})
	}
	for _, tag := range sortedKeys(k.volumes) {
		v := k.volumes[tag]
		msh.AddEntity(&mesh.Entity{
			Dimension:        types.DimVolume,
			Tag:              tag,
			BoundingBox:      boxCorners(v.box),
			PhysicalTags:     physTags(types.Volume(tag)),
			BoundingEntities: append([]int{}, v.surfaces...),
		})
	}
	for key, g := range k.physical {
		cp := *g
		msh.PhysicalGroups[key] = &cp
	}
	var file *os.File
	if file, err = os.Create(path); err != nil {
		return
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return msh.WriteGmsh4(file)
}

func (k *Kernel) Close() error {
	k.closed = true
	return nil
}

// Threads, Background, PhysicalGroup, Generated and Closed expose session state for inspection
func (k *Kernel) Threads() int { return k.threads }

func (k *Kernel) Background() (plan types.MeshSizingPlan, surfaces []int, ok bool) {
	f, exists := k.fields[k.background]
	if !exists || f.kind != "Threshold" {
		return
	}
	return f.plan, k.fields[f.inField].surfaces, true
}

func (k *Kernel) PhysicalGroup(dim types.Dim, tag int) (mesh.PhysicalGroup, bool) {
	g, ok := k.physical[types.Entity{Dim: dim, Tag: tag}]
	if !ok {
		return mesh.PhysicalGroup{}, false
	}
	return *g, true
}

func (k *Kernel) Generated() bool { return k.generated }
func (k *Kernel) Closed() bool    { return k.closed }

func boxCorners(b types.Box) [2][3]float64 {
	return [2][3]float64{{b.Min.X, b.Min.Y, b.Min.Z}, {b.Max.X, b.Max.Y, b.Max.Z}}
}

func sortedKeys[V any](m map[int]V) (keys []int) {
	keys = make([]int, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return
}
