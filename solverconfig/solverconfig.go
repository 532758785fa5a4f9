/*
Package solverconfig renders the Elmer solver input for a meshed study domain: one Body per
physical volume, the materials and body forces those bodies refer to and a far field condition
on the outer air surfaces.
*/
package solverconfig

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/template"

	"github.com/notargets/airmesh/types"
)

const (
	DefaultCaseFile = "case.sif"
	BootstrapFile   = "ELMERSOLVER_STARTINFO"
	// RunMode is the fixed flag following the case file name in the bootstrap file
	RunMode = 1
)

//go:embed templates/case.sif.tmpl
var caseTemplate string

var tpl = template.Must(template.New("case").Funcs(template.FuncMap{
	"num": func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) },
}).Parse(caseTemplate))

type Material struct {
	ID                   int
	Name                 string
	RelativePermeability float64
	Magnetization        [3]float64 // A/m
}

func (m Material) HasMagnetization() bool { return m.Magnetization != [3]float64{} }

type BodyForce struct {
	ID             int
	Name           string
	CurrentDensity [3]float64 // A/m^2
}

// Remanent magnetization of a 1.2 T magnet, Br / mu0
const magnetization = 954929.66

var DefaultMaterials = map[int]Material{
	1: {ID: 1, Name: "Air", RelativePermeability: 1},
	2: {ID: 2, Name: "Magnet +X", RelativePermeability: 1.05, Magnetization: [3]float64{magnetization, 0, 0}},
	3: {ID: 3, Name: "Magnet -X", RelativePermeability: 1.05, Magnetization: [3]float64{-magnetization, 0, 0}},
	4: {ID: 4, Name: "Magnet +Y", RelativePermeability: 1.05, Magnetization: [3]float64{0, magnetization, 0}},
	5: {ID: 5, Name: "Magnet -Y", RelativePermeability: 1.05, Magnetization: [3]float64{0, -magnetization, 0}},
	6: {ID: 6, Name: "Magnet +Z", RelativePermeability: 1.05, Magnetization: [3]float64{0, 0, magnetization}},
	7: {ID: 7, Name: "Magnet -Z", RelativePermeability: 1.05, Magnetization: [3]float64{0, 0, -magnetization}},
	8: {ID: 8, Name: "Iron", RelativePermeability: 1000},
}

var DefaultBodyForces = map[int]BodyForce{
	1: {ID: 1, Name: "Coil", CurrentDensity: [3]float64{0, 0, 1.e6}},
}

type Data struct {
	MeshDir    string
	ResultsDir string
	PostFile   string
	Bodies     []types.Body
	Boundary   types.BoundarySurfaceSet
	Materials  []Material
	BodyForces []BodyForce
}

/*
NewData assembles the template input. Every material and body force referred to by a body is
looked up in the given tables, falling back to the defaults; an id found in neither is written
as a plain material of unit permeability or a zero body force.
*/
func NewData(meshDir string, bodies []types.Body, boundary types.BoundarySurfaceSet,
	materials map[int]Material, forces map[int]BodyForce) (d Data) {
	d = Data{
		MeshDir:    meshDir,
		ResultsDir: "results",
		PostFile:   "case.vtu",
		Bodies:     bodies,
		Boundary:   boundary,
	}
	var (
		matIDs   = make(map[int]bool)
		forceIDs = make(map[int]bool)
	)
	for _, b := range bodies {
		matIDs[b.Material] = true
		if b.HasBodyForce() {
			forceIDs[b.BodyForce] = true
		}
	}
	for _, id := range sortedIDs(matIDs) {
		m, ok := materials[id]
		if !ok {
			if m, ok = DefaultMaterials[id]; !ok {
				m = Material{Name: fmt.Sprintf("Material %d", id), RelativePermeability: 1}
			}
		}
		m.ID = id
		d.Materials = append(d.Materials, m)
	}
	for _, id := range sortedIDs(forceIDs) {
		f, ok := forces[id]
		if !ok {
			if f, ok = DefaultBodyForces[id]; !ok {
				f = BodyForce{Name: fmt.Sprintf("BodyForce %d", id)}
			}
		}
		f.ID = id
		d.BodyForces = append(d.BodyForces, f)
	}
	return
}

func sortedIDs(set map[int]bool) (ids []int) {
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return
}

func Render(d Data) (string, error) {
	if len(d.Bodies) == 0 {
		return "", fmt.Errorf("no bodies to configure")
	}
	if len(d.Boundary) == 0 {
		return "", fmt.Errorf("no boundary surfaces to configure")
	}
	for _, b := range d.Bodies {
		if b.Material <= 0 {
			return "", fmt.Errorf("body %d (%s) has no material", b.Tag, b.Name)
		}
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Bootstrap gives the single line naming the case file followed by the run mode
func Bootstrap(caseFile string) string {
	return fmt.Sprintf("%s %d\n", caseFile, RunMode)
}

// Write renders the case into dir and points the bootstrap file at it
func Write(dir string, d Data) (casePath string, err error) {
	var text string
	if text, err = Render(d); err != nil {
		return
	}
	casePath = filepath.Join(dir, DefaultCaseFile)
	if err = os.WriteFile(casePath, []byte(text), 0o644); err != nil {
		return
	}
	err = os.WriteFile(filepath.Join(dir, BootstrapFile), []byte(Bootstrap(DefaultCaseFile)), 0o644)
	return
}
