// Copyright (c) 2020-2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package system

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/echa/goprocinfo/linux"
)

const cpuSampleInterval = 5 * time.Second

// https://man7.org/linux/man-pages/man5/proc.5.html
func readProcStat(_ context.Context, s *SysStat, dataPath string) error {
	cpuOnce.Do(startCpuMonitor)

	var si syscall.Sysinfo_t
	_ = syscall.Sysinfo(&si)
	s.TotalMem = si.Totalram
	s.TotalSwap = si.Totalswap

	p := filepath.Join("/proc", strconv.Itoa(os.Getpid()))
	if st, err := linux.ReadProcessStatus(filepath.Join(p, "status")); err == nil {
		s.NumThreads = st.Threads
		s.VmPeak = st.VmPeak * 1024
		s.VmSize = st.VmSize * 1024
		s.VmSwap = st.VmSwap * 1024
		s.VmRss = st.VmRSS * 1024
	}
	if st, err := linux.ReadProcessStat(filepath.Join(p, "stat")); err == nil {
		s.VmPageFaults = st.Majflt
	}

	s.CpuUser = float64(atomic.LoadInt64(&cpuUser)) / 100.0
	s.CpuSys = float64(atomic.LoadInt64(&cpuSys)) / 100.0
	s.CpuTotal = s.CpuUser + s.CpuSys

	if dataPath != "" {
		if d, err := linux.ReadDisk(dataPath); err == nil {
			s.DiskSize = d.All
			s.DiskUsed = d.Used
			s.DiskFree = d.Free
		}
	}
	return nil
}

var (
	cpuOnce   sync.Once
	lastUsage syscall.Rusage
	lastTime  time.Time
	cpuUser   int64 // 1/100 percent
	cpuSys    int64
)

// startCpuMonitor samples process CPU usage in the background.
func startCpuMonitor() {
	_ = updateCpuUsage()
	ticker := time.NewTicker(cpuSampleInterval)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			_ = updateCpuUsage()
		}
	}()
}

func updateCpuUsage() error {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return err
	}
	now := time.Now()

	if lastTime.IsZero() {
		lastTime = now
		lastUsage = rusage
		return nil
	}

	ns := int64(now.Sub(lastTime))
	if ns > 0 {
		usr := syscall.TimevalToNsec(rusage.Utime) - syscall.TimevalToNsec(lastUsage.Utime)
		sys := syscall.TimevalToNsec(rusage.Stime) - syscall.TimevalToNsec(lastUsage.Stime)
		atomic.StoreInt64(&cpuUser, usr*10000/ns)
		atomic.StoreInt64(&cpuSys, sys*10000/ns)
	}
	lastTime = now
	lastUsage = rusage
	return nil
}
