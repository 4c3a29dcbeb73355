// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package system

import (
	"context"
	"net/url"
	"os"
	"runtime"
	"time"
)

// SysStat is a process snapshot. All sizes in bytes.
type SysStat struct {
	Hostname      string    `json:"hostname"`
	ContainerName string    `json:"container_name,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Uptime        float64   `json:"uptime"` // seconds

	NumCpu       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	NumThreads   uint64 `json:"num_threads"`
	TotalMem     uint64 `json:"total_mem"`
	TotalSwap    uint64 `json:"total_swap"`

	VmPageFaults uint64 `json:"vm_page_faults"`
	VmPeak       uint64 `json:"vm_peak"`
	VmSize       uint64 `json:"vm_size"`
	VmSwap       uint64 `json:"vm_swap"`
	VmRss        uint64 `json:"vm_rss"`

	MemMallocs    uint64 `json:"mem_mallocs"`
	MemFrees      uint64 `json:"mem_frees"`
	MemHeapAlloc  uint64 `json:"mem_heap"`
	MemStackInuse uint64 `json:"mem_stack"`
	NumGC         uint32 `json:"num_gc"`

	DiskSize uint64 `json:"disk_size"`
	DiskUsed uint64 `json:"disk_used"`
	DiskFree uint64 `json:"disk_free"`

	CpuUser  float64 `json:"cpu_user"`
	CpuSys   float64 `json:"cpu_system"`
	CpuTotal float64 `json:"cpu_total"`
}

var startTime = time.Now()

// GetSysStat collects runtime statistics and, where the platform allows,
// process and disk statistics for the volume holding dataPath.
func GetSysStat(ctx context.Context, dataPath string) (SysStat, error) {
	now := time.Now()
	s := SysStat{
		Timestamp: now.UTC(),
		Uptime:    now.Sub(startTime).Seconds(),
	}
	host, _ := os.Hostname()
	s.Hostname = host
	if n := os.Getenv("HOST_HOSTNAME"); n != "" {
		s.ContainerName = host
		u, _ := url.Parse(n)
		s.Hostname = u.Hostname()
	}
	s.NumCpu = runtime.NumCPU()
	s.NumGoroutine = runtime.NumGoroutine()

	memStats := &runtime.MemStats{}
	runtime.ReadMemStats(memStats)
	s.MemMallocs = memStats.Mallocs
	s.MemFrees = memStats.Frees
	s.MemHeapAlloc = memStats.HeapAlloc
	s.MemStackInuse = memStats.StackInuse
	s.NumGC = memStats.NumGC

	if err := readProcStat(ctx, &s, dataPath); err != nil {
		return s, err
	}
	return s, nil
}
