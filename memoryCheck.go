package main

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bob-anderson-ok/FresnelVolume/fresnel"
)

// memoryHeadroom is the fraction of available memory a run may claim.
const memoryHeadroom = 0.8

// availableMemory is replaced in tests.
var availableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// checkMemory refuses a run whose volume stack and intensity export would not fit in
// the memory currently available. It returns the bytes the run needs.
func checkMemory(n, numZ int) (uint64, error) {
	need := fresnel.VolumeBytes(n, numZ)
	avail, err := availableMemory()
	if err != nil {
		return need, fmt.Errorf("could not read available memory: %w", err)
	}
	if float64(need) > memoryHeadroom*float64(avail) {
		return need, fmt.Errorf("the run needs %s but only %s is available (grid_points=%d, num_z=%d)",
			formatBytes(need), formatBytes(avail), n, numZ)
	}
	return need, nil
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
