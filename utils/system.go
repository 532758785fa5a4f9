package utils

import (
	"fmt"
	"runtime"
)

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}

/*
KernelThreads is the worker count requested from the meshing kernel. Above two processors one
is left free for the controlling process.
*/
func KernelThreads(enabled bool, ncpu int) int {
	switch {
	case !enabled || ncpu < 1:
		return 1
	case ncpu > 2:
		return ncpu - 1
	default:
		return ncpu
	}
}

// SharedKernelThreads divides the KernelThreads budget among jobs sessions running at once
func SharedKernelThreads(enabled bool, ncpu, jobs int) int {
	n := KernelThreads(enabled, ncpu)
	if jobs > 1 {
		n /= jobs
	}
	if n < 1 {
		return 1
	}
	return n
}
