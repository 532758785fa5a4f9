/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/notargets/airmesh/InputParameters"
	"github.com/notargets/airmesh/domain"
	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/kernel/gmsh"
	"github.com/notargets/airmesh/kernel/memkernel"
	"github.com/notargets/airmesh/pipeline"
	"github.com/notargets/airmesh/refinement"
	"github.com/notargets/airmesh/types"
	"github.com/notargets/airmesh/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const exampleParams = `
########################################
Title: "Two magnets in an iron yoke"
Padding: 50          # native units of the input
RefinementFactor: 0.02
InnerDistance: 2
OuterDistance: 10
Preset: default      # draft, default or fine
Policy: fragment     # fragment or cut
MultiThread: true
Materials:
  - pattern: Shapes/magnet
    id: 2
  - pattern: Shapes/iron
    id: 8
VolumeNames:
  1: Shapes/magnet_1
  2: Shapes/iron
########################################
`

// addMeshFlags registers the flags shared by the mesh and batch commands
func addMeshFlags(c *cobra.Command) {
	c.Flags().String("params", "", "mesh parameter file (YAML), for an example run with --params-example")
	c.Flags().Bool("params-example", false, "print an example parameter file and exit")
	c.Flags().Float64("padding", pipeline.DefaultPadding, "air padding around the bodies, in input units")
	c.Flags().Float64("outer-size", 0, "element size far from the bodies, in input units (default from the preset)")
	c.Flags().Float64("refinement-factor", refinement.DefaultRefinementFactor, "element size at the bodies as a fraction of the outer size")
	c.Flags().Float64("inner-distance", refinement.DefaultInnerDistance, "distance from the bodies with the fine size, in input units")
	c.Flags().Float64("outer-distance", refinement.DefaultOuterDistance, "distance from the bodies reaching the outer size, in input units")
	c.Flags().Bool("draft", false, "coarse sizing preset")
	c.Flags().Bool("fine", false, "fine sizing preset")
	c.MarkFlagsMutuallyExclusive("draft", "fine")
	c.Flags().String("policy", domain.Fragment.String(), "boolean policy combining air and bodies: fragment or cut")
	c.Flags().Bool("multi-thread", false, "let the meshing kernel use all but one processor")
	c.Flags().Bool("solver-config", false, "also write the Elmer case and startinfo files")
	c.Flags().String("units", "", "units for inputs without an exchange file header: MM, CM or M")
	c.Flags().String("kernel", "gmsh", "meshing kernel: gmsh or memory")
	c.Flags().String("gmsh", gmsh.DefaultBinary, "gmsh executable")
}

// settings resolves each value from an explicit flag, then the parameter file, then env or config
type settings struct {
	cmd    *cobra.Command
	params *InputParameters.MeshParameters
}

func newSettings(cmd *cobra.Command) (s settings, err error) {
	var (
		path string
	)
	s.cmd = cmd
	s.params = &InputParameters.MeshParameters{}
	if path, err = s.stringValue("params", ""); err != nil || path == "" {
		return
	}
	if path, err = utils.ExpandPath(path); err != nil {
		return
	}
	if s.params, err = InputParameters.ReadFile(path); err != nil {
		return
	}
	if verbose {
		s.params.Print()
	}
	return
}

func (s settings) float(key string, file *float64) (v float64, user bool, err error) {
	switch {
	case s.cmd.Flags().Changed(key):
		v, err = s.cmd.Flags().GetFloat64(key)
		return v, true, err
	case file != nil:
		return *file, true, nil
	case envOrConfigSet(key):
		raw := fmt.Sprint(viper.Get(key))
		if v, err = strconv.ParseFloat(raw, 64); err != nil {
			return 0, false, fmt.Errorf("%s: %w", key, err)
		}
		return v, true, nil
	}
	v, err = s.cmd.Flags().GetFloat64(key)
	return
}

/*
setting resolves a sizing value. A parameter file value keeps the origin given by
MeshParameters.Overrides; a zero flag default means unset.
*/
func (s settings) setting(key string, file refinement.Setting) (refinement.Setting, error) {
	if file.IsSet() && !s.cmd.Flags().Changed(key) {
		return file, nil
	}
	v, user, err := s.float(key, nil)
	switch {
	case err != nil:
		return refinement.Setting{}, err
	case user:
		return refinement.User(v), nil
	case v > 0:
		return refinement.DefaultSetting(v), nil
	}
	return refinement.Setting{}, nil
}

func (s settings) stringValue(key, file string) (string, error) {
	switch {
	case s.cmd.Flags().Changed(key):
		return s.cmd.Flags().GetString(key)
	case file != "":
		return file, nil
	case envOrConfigSet(key):
		return viper.GetString(key), nil
	}
	return s.cmd.Flags().GetString(key)
}

func (s settings) boolValue(key string, file *bool) (bool, error) {
	switch {
	case s.cmd.Flags().Changed(key):
		return s.cmd.Flags().GetBool(key)
	case file != nil:
		return *file, nil
	case envOrConfigSet(key):
		return strconv.ParseBool(viper.GetString(key))
	}
	return s.cmd.Flags().GetBool(key)
}

func (s settings) preset() (refinement.Preset, error) {
	draft, err := s.boolValue("draft", nil)
	if err != nil {
		return 0, err
	}
	fine, err := s.boolValue("fine", nil)
	if err != nil {
		return 0, err
	}
	switch {
	case draft && fine:
		return 0, fmt.Errorf("%w: draft and fine presets are mutually exclusive", pipeline.ErrOptions)
	case draft:
		return refinement.Draft, nil
	case fine:
		return refinement.Fine, nil
	case s.params.Preset != "":
		return refinement.NewPreset(s.params.Preset)
	}
	return refinement.Default, nil
}

func (s settings) opener(logger *zap.Logger) (kernel.Opener, error) {
	name, err := s.stringValue("kernel", "")
	if err != nil {
		return nil, err
	}
	switch name {
	case "gmsh":
		binary, err := s.stringValue("gmsh", "")
		if err != nil {
			return nil, err
		}
		return gmsh.Opener(
			gmsh.WithRunner(gmsh.ExecRunner{Binary: binary, Logger: logger}),
			gmsh.WithLogger(logger),
			gmsh.WithVolumeNames(s.params.VolumeNames),
		), nil
	case "memory":
		return memkernel.Opener(), nil
	}
	return nil, fmt.Errorf("%w: unknown kernel %q, use gmsh or memory", pipeline.ErrOptions, name)
}

// options builds the job settings shared by every input; Input and Output are left to the caller
func (s settings) options(logger *zap.Logger) (opts pipeline.Options, err error) {
	var (
		p      = s.params
		units  string
		policy string
	)
	opts.Logger = logger
	if opts.Padding, _, err = s.float("padding", p.Padding); err != nil {
		return
	}
	file := p.Overrides()
	if opts.Overrides.OuterSize, err = s.setting("outer-size", file.OuterSize); err != nil {
		return
	}
	if opts.Overrides.RefinementFactor, err = s.setting("refinement-factor", file.RefinementFactor); err != nil {
		return
	}
	if opts.Overrides.InnerDistance, err = s.setting("inner-distance", file.InnerDistance); err != nil {
		return
	}
	if opts.Overrides.OuterDistance, err = s.setting("outer-distance", file.OuterDistance); err != nil {
		return
	}
	if opts.Preset, err = s.preset(); err != nil {
		return
	}
	if policy, err = s.stringValue("policy", p.Policy); err != nil {
		return
	}
	if opts.Policy, err = domain.NewPolicy(policy); err != nil {
		return
	}
	if opts.MultiThread, err = s.boolValue("multi-thread", p.MultiThread); err != nil {
		return
	}
	if opts.SolverConfig, err = s.boolValue("solver-config", nil); err != nil {
		return
	}
	if units, err = s.stringValue("units", p.Units); err != nil {
		return
	}
	if units != "" {
		opts.Units = types.NewUnitsCode(units)
	}
	opts.MaterialRules = p.Materials
	opts.BodyForceRules = p.BodyForces
	opts.Opener, err = s.opener(logger)
	return
}

// printParamsExample reports whether the example was requested and printed
func printParamsExample(cmd *cobra.Command) bool {
	if ok, _ := cmd.Flags().GetBool("params-example"); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "Example File:%s\n", exampleParams)
		return true
	}
	return false
}

func expandPaths(paths ...*string) (err error) {
	for _, p := range paths {
		if *p == "" {
			continue
		}
		if *p, err = utils.ExpandPath(*p); err != nil {
			return
		}
	}
	return
}
