// Copyright (C) 2026 vpnwarden Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
//

package monitor

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// Stats is one full host snapshot for the statistics view. Down and Up are
// bits per second measured over a one second window on the busiest
// interface.
type Stats struct {
	Interface string
	Uptime    time.Duration
	CPU       float64
	Memory    float64
	DiskUsed  uint64
	DiskTotal uint64
	Recv      uint64
	Sent      uint64
	Down      float64
	Up        float64
}

// Sample collects a full snapshot. CPU and network speed each block for a
// second, callers should not hold any dispatcher state while sampling.
func Sample(x context.Context) (Stats, error) {
	var s Stats
	c, err := cpu.PercentWithContext(x, time.Second, false)
	if err != nil {
		return s, err
	}
	if len(c) > 0 {
		s.CPU = c[0]
	}
	v, err := mem.VirtualMemoryWithContext(x)
	if err != nil {
		return s, err
	}
	s.Memory = v.UsedPercent
	if d, err2 := disk.UsageWithContext(x, "/"); err2 == nil {
		s.DiskUsed, s.DiskTotal = d.Used, d.Total
	}
	if u, err2 := host.UptimeWithContext(x); err2 == nil {
		s.Uptime = time.Duration(u) * time.Second
	}
	s.Interface, s.Recv, s.Sent, s.Down, s.Up = speed(x)
	return s, nil
}

// speed picks the interface with the most total traffic and measures its
// throughput over a one second window. Failures degrade to zeros, the stats
// view still renders.
func speed(x context.Context) (string, uint64, uint64, float64, float64) {
	a, err := net.IOCountersWithContext(x, true)
	if err != nil || len(a) == 0 {
		return "", 0, 0, 0, 0
	}
	p := 0
	for i := range a {
		if a[i].BytesRecv+a[i].BytesSent > a[p].BytesRecv+a[p].BytesSent {
			p = i
		}
	}
	n := a[p].Name
	select {
	case <-x.Done():
		return n, a[p].BytesRecv, a[p].BytesSent, 0, 0
	case <-time.After(time.Second):
	}
	b, err := net.IOCountersWithContext(x, true)
	if err != nil {
		return n, a[p].BytesRecv, a[p].BytesSent, 0, 0
	}
	for i := range b {
		if b[i].Name != n {
			continue
		}
		var (
			d = float64(b[i].BytesRecv-a[p].BytesRecv) * 8
			u = float64(b[i].BytesSent-a[p].BytesSent) * 8
		)
		return n, b[i].BytesRecv, b[i].BytesSent, d, u
	}
	return n, a[p].BytesRecv, a[p].BytesSent, 0, 0
}

// Uptime reads the host uptime, used by the startup notice to distinguish a
// host reboot from a bot restart.
func Uptime(x context.Context) (time.Duration, error) {
	u, err := host.UptimeWithContext(x)
	if err != nil {
		return 0, err
	}
	return time.Duration(u) * time.Second, nil
}
