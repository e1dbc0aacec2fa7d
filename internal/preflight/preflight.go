// Package preflight verifies the daemon's external requirements at
// startup: the detector install, weights, writable data root, and free
// disk space.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"

	"urchin/internal/config"
)

// Result reports one check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the disk headroom required under the data root.
// Extraction and dataset builds both copy full-size images.
const minFreeBytes = 1 << 30

// Run evaluates all checks. A failed check never aborts startup; the
// daemon reports results and degrades the affected feature.
func Run(cfg *config.Config) []Result {
	return []Result{
		checkPython(cfg.Detector),
		checkDetectorInstall(cfg.Detector),
		checkWeights(cfg.Detector),
		checkDataRoot(cfg.Paths.DataRoot),
		checkDiskSpace(cfg.Paths.DataRoot),
	}
}

// Passed reports whether every check in results passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func checkPython(cfg config.Detector) Result {
	result := Result{Name: "python"}
	if cfg.PythonBin == "" {
		result.Detail = "python_bin not configured"
		return result
	}
	if _, err := exec.LookPath(cfg.PythonBin); err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", cfg.PythonBin)
		return result
	}
	result.Passed = true
	return result
}

func checkDetectorInstall(cfg config.Detector) Result {
	result := Result{Name: "detector_install"}
	entry := filepath.Join(cfg.InstallDir, "train.py")
	if info, err := os.Stat(entry); err != nil || info.IsDir() {
		result.Detail = fmt.Sprintf("training entry point %s not found", entry)
		return result
	}
	result.Passed = true
	return result
}

func checkWeights(cfg config.Detector) Result {
	result := Result{Name: "pretrained_weights"}
	if cfg.PretrainedWeights == "" {
		result.Detail = "pretrained_weights not configured"
		return result
	}
	if _, err := os.Stat(cfg.PretrainedWeights); err != nil {
		result.Detail = fmt.Sprintf("weights file %s not found", cfg.PretrainedWeights)
		return result
	}
	result.Passed = true
	return result
}

func checkDataRoot(dataRoot string) Result {
	result := Result{Name: "data_root"}
	if err := unix.Access(dataRoot, unix.W_OK); err != nil {
		result.Detail = fmt.Sprintf("%s not writable: %v", dataRoot, err)
		return result
	}
	result.Passed = true
	return result
}

func checkDiskSpace(dataRoot string) Result {
	result := Result{Name: "disk_space"}
	var stats unix.Statfs_t
	if err := unix.Statfs(dataRoot, &stats); err != nil {
		result.Detail = fmt.Sprintf("statfs %s: %v", dataRoot, err)
		return result
	}
	free := stats.Bavail * uint64(stats.Bsize)
	if free < minFreeBytes {
		result.Detail = fmt.Sprintf("only %d MiB free under %s", free>>20, dataRoot)
		return result
	}
	result.Passed = true
	result.Detail = fmt.Sprintf("%d GiB free", free>>30)
	return result
}
