// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// loadScale converts sysinfo(2) fixed-point load averages
// (SI_LOAD_SHIFT is 16).
const loadScale = 1 << 16

// Host is a point-in-time view of the machine.
type Host struct {
	Hostname string `json:"hostname"`
	Kernel   string `json:"kernel"`
	CPUs     int    `json:"cpus"`

	// Memory figures are bytes.
	MemoryTotal uint64 `json:"memoryTotal"`
	MemoryUsed  uint64 `json:"memoryUsed"`

	// LoadAverage is the 1, 5 and 15 minute run-queue average.
	LoadAverage [3]float64 `json:"loadAverage"`

	// Uptime is seconds since boot.
	Uptime int64 `json:"uptime"`
}

// Probe reads the current host snapshot.
func Probe() Host {
	return probeFrom(unix.Sysinfo, unix.Uname)
}

// probeFrom is Probe with the syscalls injected for tests.
func probeFrom(sysinfo func(*unix.Sysinfo_t) error, uname func(*unix.Utsname) error) Host {
	host := Host{CPUs: runtime.NumCPU()}
	host.Hostname, _ = os.Hostname()

	var utsname unix.Utsname
	if err := uname(&utsname); err == nil {
		host.Kernel = unix.ByteSliceToString(utsname.Release[:])
	}

	var info unix.Sysinfo_t
	if err := sysinfo(&info); err != nil {
		return host
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	host.MemoryTotal = uint64(info.Totalram) * unit
	free := uint64(info.Freeram) * unit
	if host.MemoryTotal > free {
		host.MemoryUsed = host.MemoryTotal - free
	}
	for i, load := range info.Loads {
		host.LoadAverage[i] = float64(load) / loadScale
	}
	host.Uptime = int64(info.Uptime)
	return host
}
