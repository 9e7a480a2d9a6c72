package supervise

import (
	"context"
	"fmt"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// ResourceUsage is a point-in-time sample of a child's resource
// consumption.
type ResourceUsage struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	NumThreads int32   `json:"num_threads"`
}

// Usage samples memory and CPU consumption of a running child. Partial
// data is returned when the platform withholds a metric; a dead process
// is an error.
func (p *Process) Usage(ctx context.Context) (ResourceUsage, error) {
	snap := p.Poll()
	if snap.State.Terminal() || snap.PID == 0 {
		return ResourceUsage{}, fmt.Errorf("%s: no usage for %s process", p.name, snap.State)
	}

	proc, err := gopsproc.NewProcessWithContext(ctx, int32(snap.PID))
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("%s: open pid %d: %w", p.name, snap.PID, err)
	}

	var usage ResourceUsage
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		usage.RSSBytes = mem.RSS
	}
	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		usage.CPUPercent = cpu
	}
	if threads, err := proc.NumThreadsWithContext(ctx); err == nil {
		usage.NumThreads = threads
	}
	return usage, nil
}
