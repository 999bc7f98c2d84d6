package daemon

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"hackyplayer/internal/api"
	"hackyplayer/internal/build"
	"hackyplayer/internal/deps"
	"hackyplayer/internal/preflight"
)

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	checks := deps.CheckBinaries(deps.ToolRequirements(d.cfg))
	checks = append(checks, deps.CheckFiles(d.cfg.Paths.ResourceDir, build.RequiredResources)...)
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		Host:         hostStatus(ctx, d.cfg.Paths.OutputDir),
		Workflow:     api.FromStatusSummary(d.pool.Status(ctx)),
		Dependencies: api.FromDependencies(checks),
		Directories:  api.FromDirectoryChecks(preflight.CheckDirectories(d.cfg)),
	}
}

// hostStatus samples the node the daemon runs on. Unavailable metrics stay zero.
func hostStatus(ctx context.Context, outputDir string) api.HostStatus {
	var status api.HostStatus
	if info, err := host.InfoWithContext(ctx); err == nil {
		status.Hostname = info.Hostname
		status.UptimeSecs = info.Uptime
	} else if name, err := os.Hostname(); err == nil {
		status.Hostname = name
	}
	if count, err := cpu.CountsWithContext(ctx, true); err == nil {
		status.CPUs = count
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		status.Load1 = avg.Load1
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemoryUsed = vm.UsedPercent
	}
	if usage, err := disk.UsageWithContext(ctx, outputDir); err == nil {
		status.DiskFreeOut = usage.Free
	}
	return status
}
