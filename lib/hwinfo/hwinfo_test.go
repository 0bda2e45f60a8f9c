// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func TestProbeFrom(t *testing.T) {
	sysinfo := func(info *unix.Sysinfo_t) error {
		info.Unit = 4096
		info.Totalram = 1000
		info.Freeram = 250
		info.Loads[0] = loadScale / 2
		info.Loads[1] = loadScale
		info.Loads[2] = 3 * loadScale
		info.Uptime = 3600
		return nil
	}
	uname := func(utsname *unix.Utsname) error {
		copy(utsname.Release[:], "6.8.0-warden")
		return nil
	}

	host := probeFrom(sysinfo, uname)

	if host.MemoryTotal != 1000*4096 {
		t.Errorf("MemoryTotal = %d, want %d", host.MemoryTotal, 1000*4096)
	}
	if host.MemoryUsed != 750*4096 {
		t.Errorf("MemoryUsed = %d, want %d", host.MemoryUsed, 750*4096)
	}
	if host.LoadAverage != [3]float64{0.5, 1, 3} {
		t.Errorf("LoadAverage = %v, want [0.5 1 3]", host.LoadAverage)
	}
	if host.Uptime != 3600 {
		t.Errorf("Uptime = %d, want 3600", host.Uptime)
	}
	if host.Kernel != "6.8.0-warden" {
		t.Errorf("Kernel = %q", host.Kernel)
	}
	if host.CPUs < 1 {
		t.Errorf("CPUs = %d", host.CPUs)
	}
}

func TestProbeFrom_SyscallFailures(t *testing.T) {
	failed := errors.New("not permitted")
	host := probeFrom(
		func(*unix.Sysinfo_t) error { return failed },
		func(*unix.Utsname) error { return failed },
	)
	if host.MemoryTotal != 0 || host.Kernel != "" {
		t.Errorf("host = %+v, want zero memory and kernel", host)
	}
	if host.CPUs < 1 {
		t.Errorf("CPUs = %d, want runtime count", host.CPUs)
	}
}

func TestProbe(t *testing.T) {
	host := Probe()
	if host.MemoryTotal == 0 {
		t.Skip("sysinfo unavailable")
	}
	if host.MemoryUsed > host.MemoryTotal {
		t.Errorf("MemoryUsed %d exceeds MemoryTotal %d", host.MemoryUsed, host.MemoryTotal)
	}
}
