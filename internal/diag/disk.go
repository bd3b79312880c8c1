package diag

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/sys/unix"
)

// DiskResult is the outcome of a disk usage check.
type DiskResult struct {
	Path        string  `json:"path"`
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	PercentUsed float64 `json:"percent_used"`
	Status      string  `json:"status"` // ok, warning, critical
}

// SanitizePath rejects empty or traversal-carrying paths and
// substitutes the filesystem root. The model never gets to walk
// outside what a plain absolute path can reach.
func SanitizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || strings.Contains(path, "..") {
		return "/"
	}
	return path
}

// DiskUsage reports filesystem usage for path via statfs.
func (r *Runner) DiskUsage(path string) (*DiskResult, error) {
	path = SanitizePath(path)

	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", path, err)
	}

	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bfree * bsize
	used := total - free

	if total == 0 {
		return nil, fmt.Errorf("statfs %s: zero-size filesystem", path)
	}

	percent := float64(used) / float64(total) * 100

	status := "ok"
	switch {
	case percent > 90:
		status = "critical"
	case percent > 80:
		status = "warning"
	}

	r.logger.Debug("disk usage", "path", path, "percent_used", percent)

	return &DiskResult{
		Path:        path,
		TotalGB:     roundTo(bytesToGB(total), 2),
		UsedGB:      roundTo(bytesToGB(used), 2),
		FreeGB:      roundTo(bytesToGB(free), 2),
		PercentUsed: roundTo(percent, 1),
		Status:      status,
	}, nil
}

func bytesToGB(b uint64) float64 {
	return float64(b) / (1 << 30)
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
