//go:build !windows

package sdr

import (
	"fmt"
	"os/exec"
)

// FindRuntime locates a sweep tool binary in PATH
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRuntimeNotFound, runtime, err)
	}

	return binPath, nil
}
