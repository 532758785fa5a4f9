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
	"os"
	"path/filepath"

	"github.com/notargets/airmesh/pipeline"
	"github.com/notargets/airmesh/utils"
	"github.com/spf13/cobra"
)

// MeshCmd represents the mesh command
var MeshCmd = &cobra.Command{
	Use:   "mesh <input>",
	Short: "Mesh one geometry file embedded in a padded air box",
	Long: `
Reads the units of an IGES file, scales the geometry to meters, moves it to the origin, fragments
it with a padded air box, refines the mesh near the bodies and writes the mesh. With
--solver-config the Elmer case file and its startinfo file are written next to the mesh.

airmesh mesh two_magnets.igs -o two_magnets.msh --fine --multi-thread`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			s    settings
			opts pipeline.Options
			res  *pipeline.Result
		)
		if printParamsExample(cmd) {
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("%w: must supply an input geometry file", pipeline.ErrOptions)
		}
		if s, err = newSettings(cmd); err != nil {
			return
		}
		if opts, err = s.options(logger); err != nil {
			return
		}
		opts.Input = args[0]
		opts.Output, _ = cmd.Flags().GetString("output")
		opts.SolverDir, _ = cmd.Flags().GetString("solver-dir")
		opts.CopyTo, _ = cmd.Flags().GetString("copy-to")
		if opts.Output == "" {
			opts.Output = pipeline.MeshDirName(opts.Input) + ".msh"
		}
		if err = expandPaths(&opts.Input, &opts.Output, &opts.SolverDir, &opts.CopyTo); err != nil {
			return
		}
		if opts.SolverConfig && opts.SolverDir != "" {
			if err = os.MkdirAll(opts.SolverDir, 0o755); err != nil {
				return
			}
		}
		if res, err = pipeline.Run(cmd.Context(), opts); err != nil {
			return
		}
		printResult(cmd, res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(MeshCmd)
	addMeshFlags(MeshCmd)
	MeshCmd.Flags().StringP("output", "o", "", "mesh file to write (default <input stem>.msh)")
	MeshCmd.Flags().String("solver-dir", "", "directory for the solver files (default the mesh directory)")
	MeshCmd.Flags().String("copy-to", "", "also copy the finished mesh to this path")
}

func printResult(cmd *cobra.Command, res *pipeline.Result) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", filepath.Base(res.Input))
	fmt.Fprintf(w, "[%s]\t\t\t= Units\n", res.Units)
	fmt.Fprintf(w, "%8.5f\t\t= Scale\n", res.Frame.Scale)
	fmt.Fprintf(w, "%v\t= Air Box\n", res.Frame.AirBox)
	fmt.Fprintf(w, "%8.5f\t\t= Outer Size\n", res.Plan.OuterSize)
	fmt.Fprintf(w, "%8.5f\t\t= Inner Size\n", res.Plan.InnerSize)
	fmt.Fprintf(w, "%8.5f\t\t= Inner Distance\n", res.Plan.InnerDistance)
	fmt.Fprintf(w, "%8.5f\t\t= Outer Distance\n", res.Plan.OuterDistance)
	fmt.Fprintf(w, "[%d]\t\t\t= Threads\n", res.Threads)
	for _, b := range res.Bodies {
		fmt.Fprintf(w, "Body[%d] = %s, Material %d\n", b.Tag, b.Name, b.Material)
	}
	fmt.Fprintf(w, "Boundary = %s\n", res.Boundary)
	fmt.Fprintf(w, "Mesh = %s, %d vertices, %d elements\n", res.MeshFile, res.Stats.Vertices, res.Stats.Elements)
	if res.CaseFile != "" {
		fmt.Fprintf(w, "Solver = %s\n", res.CaseFile)
	}
	if res.CopiedTo != "" {
		fmt.Fprintf(w, "Copied = %s\n", res.CopiedTo)
	}
	if verbose {
		fmt.Fprintln(w, utils.GetMemUsage())
	}
}
