package InputParameters

import (
	"fmt"
	"os"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/notargets/airmesh/materials"
	"github.com/notargets/airmesh/refinement"
)

/*
MeshParameters is read from the YAML parameter file. Lengths are in the native units of the
input geometry. Absent values stay nil so they can be told apart from explicit ones.
*/
type MeshParameters struct {
	Title            string           `json:"Title"`
	Units            string           `json:"Units"` // For inputs without an exchange file header
	Padding          *float64         `json:"Padding"`
	OuterSize        *float64         `json:"OuterSize"`
	RefinementFactor *float64         `json:"RefinementFactor"`
	InnerDistance    *float64         `json:"InnerDistance"`
	OuterDistance    *float64         `json:"OuterDistance"`
	Preset           string           `json:"Preset"`
	Policy           string           `json:"Policy"`
	MultiThread      *bool            `json:"MultiThread"`
	Materials        []materials.Rule `json:"Materials"`
	BodyForces       []materials.Rule `json:"BodyForces"`
	VolumeNames      map[int]string   `json:"VolumeNames"`
}

func (mp *MeshParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, mp)
}

func ReadFile(path string) (mp *MeshParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	mp = &MeshParameters{}
	if err = mp.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return
}

func user(v *float64) refinement.Setting {
	if v == nil {
		return refinement.Setting{}
	}
	return refinement.User(*v)
}

// Overrides marks every sizing value present in the file as set by the user
func (mp *MeshParameters) Overrides() refinement.Overrides {
	return refinement.Overrides{
		OuterSize:        user(mp.OuterSize),
		RefinementFactor: user(mp.RefinementFactor),
		InnerDistance:    user(mp.InnerDistance),
		OuterDistance:    user(mp.OuterDistance),
	}
}

func (mp *MeshParameters) Print() {
	pf := func(label string, v *float64) {
		if v == nil {
			fmt.Printf("[unset]\t\t\t= %s\n", label)
			return
		}
		fmt.Printf("%8.5f\t\t= %s\n", *v, label)
	}
	fmt.Printf("\"%s\"\t\t= Title\n", mp.Title)
	if mp.Units != "" {
		fmt.Printf("[%s]\t\t\t= Units\n", mp.Units)
	}
	pf("Padding", mp.Padding)
	pf("Outer Size", mp.OuterSize)
	pf("Refinement Factor", mp.RefinementFactor)
	pf("Inner Distance", mp.InnerDistance)
	pf("Outer Distance", mp.OuterDistance)
	fmt.Printf("[%s]\t\t\t= Preset\n", mp.Preset)
	fmt.Printf("[%s]\t\t\t= Policy\n", mp.Policy)
	for _, r := range mp.Materials {
		fmt.Printf("Materials[%s] = %d\n", r.Pattern, r.ID)
	}
	for _, r := range mp.BodyForces {
		fmt.Printf("BodyForces[%s] = %d\n", r.Pattern, r.ID)
	}
	tags := make([]int, 0, len(mp.VolumeNames))
	for tag := range mp.VolumeNames {
		tags = append(tags, tag)
	}
	sort.Ints(tags)
	for _, tag := range tags {
		fmt.Printf("VolumeNames[%d] = %s\n", tag, mp.VolumeNames[tag])
	}
}
