package gmsh

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const DefaultBinary = "gmsh"

// Runner executes a script file found in dir and returns the combined output
type Runner interface {
	Run(ctx context.Context, dir, script string) (output []byte, err error)
}

// ExecRunner runs the gmsh executable
type ExecRunner struct {
	Binary string
	Logger *zap.Logger
}

func (r ExecRunner) Run(ctx context.Context, dir, script string) ([]byte, error) {
	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, script, "-parse_and_exit")
	cmd.Dir = dir
	cmd.Stdout = &out
	cmd.Stderr = &out
	if r.Logger != nil {
		r.Logger.Debug("running gmsh", zap.String("binary", binary), zap.String("dir", dir), zap.String("script", script))
	}
	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("%s %s: %w: %s", binary, script, err, lastLines(out.String(), 5))
	}
	return out.Bytes(), nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
