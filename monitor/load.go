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
	"strconv"
	"time"

	"github.com/PurpleSec/logx"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"vpnwarden/store"
)

// Cadence of the load loop and the minimum spacing between two alerts to the
// same administrator.
const (
	CheckInterval = time.Minute
	AlertCooldown = 30 * time.Minute
)

// Sampler reads current host utilization. The production sampler blocks for
// about a second measuring CPU.
type Sampler interface {
	Sample(x context.Context) (float64, float64, error)
}

// Loop is the background load watcher. Notify pushes alert text onto the
// owner's delivery queue without blocking and reports whether the alert was
// accepted, a dropped alert must not stamp the cooldown.
type Loop struct {
	Settings *store.Settings
	Sampler  Sampler
	Notify   func(to int64, text string) bool
	Log      logx.Log
	now      func() time.Time
	last     map[int64]time.Time
	Admins   []int64
	Interval time.Duration
	Cooldown time.Duration
}
type sysSampler struct{}

// SystemSampler returns the gopsutil backed production sampler.
func SystemSampler() Sampler {
	return sysSampler{}
}
func (sysSampler) Sample(x context.Context) (float64, float64, error) {
	c, err := cpu.PercentWithContext(x, time.Second, false)
	if err != nil {
		return 0, 0, err
	}
	v, err := mem.VirtualMemoryWithContext(x)
	if err != nil {
		return 0, 0, err
	}
	if len(c) == 0 {
		return 0, v.UsedPercent, nil
	}
	return c[0], v.UsedPercent, nil
}

// Gauge returns the traffic light for a utilization percentage.
func Gauge(p float64) string {
	switch {
	case p < 50:
		return "🟢"
	case p < 80:
		return "🟡"
	}
	return "🔴"
}

// Run drives the loop until the context is cancelled. Each iteration is
// fully isolated, a failed sample is logged and skipped without touching
// cooldown state.
func (l *Loop) Run(x context.Context) {
	if l.Interval <= 0 {
		l.Interval = CheckInterval
	}
	if l.Cooldown <= 0 {
		l.Cooldown = AlertCooldown
	}
	l.Log.Info("[monitor] Starting load watcher thread, interval %s...", l.Interval.String())
	t := time.NewTicker(l.Interval)
	for {
		select {
		case <-x.Done():
			l.Log.Info("[monitor] Stopping load watcher thread.")
			t.Stop()
			return
		case <-t.C:
			l.check(x)
		}
	}
}
func (l *Loop) time() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// check runs one iteration: sample, compare against thresholds and fan the
// alert out to every administrator with both notification flags enabled and
// an expired cooldown.
func (l *Loop) check(x context.Context) {
	if len(l.Admins) == 0 {
		return
	}
	c, m, err := l.Sampler.Sample(x)
	if err != nil {
		l.Log.Error("[monitor] Could not sample host load: %s!", err.Error())
		return
	}
	ct, mt := l.Settings.Thresholds()
	if c < float64(ct) && m < float64(mt) {
		return
	}
	l.Log.Debug("[monitor] Load over threshold: cpu=%.1f/%d, memory=%.1f/%d.", c, ct, m, mt)
	if l.last == nil {
		l.last = make(map[int64]time.Time, len(l.Admins))
	}
	var (
		n = l.time()
		t = "⚠️ Высокая нагрузка на сервер\n\n" +
			Gauge(c) + " ЦП: " + strconv.FormatFloat(c, 'f', 1, 64) + "%\n" +
			Gauge(m) + " ОЗУ: " + strconv.FormatFloat(m, 'f', 1, 64) + "%"
	)
	for _, a := range l.Admins {
		v := l.Settings.Admin(a)
		if !v.Notify || !v.NotifyLoad {
			continue
		}
		if s, ok := l.last[a]; ok && n.Sub(s) < l.Cooldown {
			continue
		}
		if !l.Notify(a, t) {
			l.Log.Warning("[monitor] Load alert for admin %d was dropped!", a)
			continue
		}
		l.last[a] = n
		l.Log.Info("[monitor] Load alert queued for admin %d.", a)
	}
}
