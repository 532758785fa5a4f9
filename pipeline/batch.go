package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

/*
RunBatch meshes several inputs with at most jobs sessions at a time. base.Output and a non
empty base.CopyTo name directories; each input writes <stem>.msh there and its solver files
into <output>/<stem>. With MultiThread the kernel threads are divided among the jobs running
at once. The first failure cancels the remaining jobs.
*/
func RunBatch(ctx context.Context, base Options, inputs []string, jobs int) ([]*Result, error) {
	if jobs < 1 {
		jobs = 1
	}
	if base.Output == "" {
		return nil, fmt.Errorf("%w: no output directory", ErrOptions)
	}
	if base.Logger == nil {
		base.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(base.Output, 0o755); err != nil {
		return nil, err
	}
	seen := make(map[string]string, len(inputs))
	for _, input := range inputs {
		stem := MeshDirName(input)
		if other, ok := seen[stem]; ok {
			return nil, fmt.Errorf("%w: %s and %s would write the same mesh", ErrOptions, other, input)
		}
		seen[stem] = input
	}

	// Concurrent sessions split the kernel thread budget
	base.Jobs = min(jobs, len(inputs))
	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, input := range inputs {
		opts := base
		stem := MeshDirName(input)
		opts.Input = input
		opts.Output = filepath.Join(base.Output, stem+".msh")
		if base.SolverConfig {
			opts.SolverDir = filepath.Join(base.Output, stem)
		}
		if base.CopyTo != "" {
			opts.CopyTo = filepath.Join(base.CopyTo, stem+".msh")
		}
		g.Go(func() error {
			if opts.SolverDir != "" {
				if err := os.MkdirAll(opts.SolverDir, 0o755); err != nil {
					return err
				}
			}
			res, err := Run(gctx, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	base.Logger.Info("batch finished", zap.Int("inputs", len(inputs)), zap.Int("jobs", jobs))
	return results, nil
}
