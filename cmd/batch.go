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
	"runtime"

	"github.com/notargets/airmesh/pipeline"
	"github.com/spf13/cobra"
)

// BatchCmd represents the batch command
var BatchCmd = &cobra.Command{
	Use:   "batch <input>...",
	Short: "Mesh several geometry files concurrently, one kernel session each",
	Long: `
Meshes every input with the same settings. Each input writes <stem>.msh into --out-dir and, with
--solver-config, its solver files into <out-dir>/<stem>.

airmesh batch parts/*.igs --out-dir meshes --jobs 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			s       settings
			opts    pipeline.Options
			jobs    int
			results []*pipeline.Result
			inputs  = append([]string(nil), args...)
		)
		if s, err = newSettings(cmd); err != nil {
			return
		}
		if opts, err = s.options(logger); err != nil {
			return
		}
		if jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
			return
		}
		opts.Output, _ = cmd.Flags().GetString("out-dir")
		opts.CopyTo, _ = cmd.Flags().GetString("copy-to")
		for i := range inputs {
			if err = expandPaths(&inputs[i]); err != nil {
				return
			}
		}
		if err = expandPaths(&opts.Output, &opts.CopyTo); err != nil {
			return
		}
		if results, err = pipeline.RunBatch(cmd.Context(), opts, inputs, jobs); err != nil {
			return
		}
		for _, res := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s, %d elements\n", res.Input, res.MeshFile, res.Stats.Elements)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(BatchCmd)
	addMeshFlags(BatchCmd)
	BatchCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "number of inputs meshed at the same time")
	BatchCmd.Flags().String("out-dir", ".", "directory receiving the meshes")
	BatchCmd.Flags().String("copy-to", "", "also copy every finished mesh into this directory")
}
