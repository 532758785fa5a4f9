package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelThreads(t *testing.T) {
	assert.Equal(t, 1, KernelThreads(false, 16))
	assert.Equal(t, 1, KernelThreads(true, 1))
	assert.Equal(t, 2, KernelThreads(true, 2))
	assert.Equal(t, 2, KernelThreads(true, 3))
	assert.Equal(t, 15, KernelThreads(true, 16))
	assert.Equal(t, 1, KernelThreads(true, 0))
}

func TestSharedKernelThreads(t *testing.T) {
	assert.Equal(t, 15, SharedKernelThreads(true, 16, 1))
	assert.Equal(t, 15, SharedKernelThreads(true, 16, 0))
	assert.Equal(t, 7, SharedKernelThreads(true, 16, 2))
	assert.Equal(t, 3, SharedKernelThreads(true, 8, 2))
	// More jobs than processors still gives every session one thread
	assert.Equal(t, 1, SharedKernelThreads(true, 8, 16))
	assert.Equal(t, 1, SharedKernelThreads(false, 16, 4))
	for ncpu := 3; ncpu <= 32; ncpu++ {
		for jobs := 1; jobs < ncpu; jobs++ {
			assert.LessOrEqual(t, jobs*SharedKernelThreads(true, ncpu, jobs), ncpu-1, "ncpu %d jobs %d", ncpu, jobs)
		}
	}
}

func TestGetMemUsage(t *testing.T) {
	assert.True(t, strings.HasPrefix(GetMemUsage(), "Alloc = "))
}

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)
	p, err := ExpandPath("~/meshes/out.msh")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "meshes", "out.msh"), p)

	p, err = ExpandPath("data/../out.msh")
	require.NoError(t, err)
	assert.Equal(t, "out.msh", p)

	p, err = ExpandPath("")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.msh")
	require.NoError(t, os.WriteFile(src, []byte("$MeshFormat"), 0o644))
	dst := filepath.Join(dir, "b.msh")
	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "$MeshFormat", string(data))

	assert.Error(t, CopyFile(filepath.Join(dir, "missing"), dst))
	assert.Error(t, CopyFile(src, filepath.Join(dir, "no", "such", "dir.msh")))
}
