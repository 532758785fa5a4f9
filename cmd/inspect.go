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

	"github.com/notargets/airmesh/geometry"
	"github.com/notargets/airmesh/iges"
	"github.com/notargets/airmesh/kernel"
	"github.com/notargets/airmesh/kernel/gmsh"
	"github.com/notargets/airmesh/pipeline"
	"github.com/notargets/airmesh/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// InspectCmd represents the inspect command
var InspectCmd = &cobra.Command{
	Use:   "inspect <input>",
	Short: "Print the units, solids and imported volumes of a geometry file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			s      settings
			opener kernel.Opener
			units  string
			input  = args[0]
		)
		if s, err = newSettings(cmd); err != nil {
			return
		}
		if units, err = s.stringValue("units", s.params.Units); err != nil {
			return
		}
		if opener, err = s.opener(logger); err != nil {
			return
		}
		if err = expandPaths(&input); err != nil {
			return
		}
		return inspect(cmd, opener, input, types.NewUnitsCode(units))
	},
}

func init() {
	rootCmd.AddCommand(InspectCmd)
	InspectCmd.Flags().String("params", "", "mesh parameter file (YAML), used for volume names")
	InspectCmd.Flags().String("units", "", "units for inputs without an exchange file header: MM, CM or M")
	InspectCmd.Flags().String("kernel", "gmsh", "meshing kernel: gmsh or memory")
	InspectCmd.Flags().String("gmsh", gmsh.DefaultBinary, "gmsh executable")
}

func inspect(cmd *cobra.Command, opener kernel.Opener, input string, fallback types.UnitsCode) (err error) {
	var (
		ctx   = cmd.Context()
		w     = cmd.OutOrStdout()
		units types.UnitsCode
		k     kernel.Kernel
		vols  []types.Entity
	)
	if units, err = pipeline.ResolveUnits(input, fallback); err != nil {
		return
	}
	fmt.Fprintf(w, "[%s]\t\t\t= Units\n", units)
	if scale, serr := geometry.ScaleFactor(units); serr != nil {
		fmt.Fprintf(w, "[%v]\t= Scale\n", serr)
	} else {
		fmt.Fprintf(w, "%8.5f\t\t= Scale\n", scale)
	}
	if iges.IsExchangeFile(input) {
		var entries []iges.DirectoryEntry
		if entries, err = iges.ReadDirectory(input); err != nil {
			return
		}
		for _, de := range entries {
			if de.IsSolid() {
				fmt.Fprintf(w, "Solid[%d] = %s %q\n", de.Sequence, de.TypeName(), de.Label)
			}
		}
	}

	if k, err = opener(ctx); err != nil {
		return
	}
	defer func() {
		if cerr := k.Close(); cerr != nil {
			logger.Warn("closing kernel", zap.Error(cerr))
		}
	}()
	if vols, err = k.Import(ctx, input); err != nil {
		return
	}
	for _, v := range vols {
		var (
			name string
			box  types.Box
		)
		if name, err = k.EntityName(v); err != nil {
			return
		}
		if box, err = k.BoundingBox(ctx, v); err != nil {
			return
		}
		fmt.Fprintf(w, "Volume[%d] = %s %v\n", v.Tag, name, box)
	}
	return
}
