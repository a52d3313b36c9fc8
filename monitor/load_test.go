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
	"path/filepath"
	"testing"
	"time"

	"github.com/PurpleSec/logx"
	"github.com/stretchr/testify/require"
	"vpnwarden/store"
	"vpnwarden/xerr"
)

type fakeSampler struct {
	err error
	cpu float64
	mem float64
}

func (f fakeSampler) Sample(_ context.Context) (float64, float64, error) {
	return f.cpu, f.mem, f.err
}
func testLoop(t *testing.T, s Sampler) (*Loop, *[]int64, *time.Time) {
	var (
		sent []int64
		now  = time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local)
	)
	l := &Loop{
		Log:      logx.NOP,
		Admins:   []int64{100, 200},
		Sampler:  s,
		Settings: &store.Settings{Log: logx.NOP, Path: filepath.Join(t.TempDir(), "settings.json")},
		Cooldown: AlertCooldown,
		Notify: func(to int64, _ string) bool {
			sent = append(sent, to)
			return true
		},
		now: func() time.Time { return now },
	}
	return l, &sent, &now
}
func TestCheckBelowThreshold(t *testing.T) {
	l, sent, _ := testLoop(t, fakeSampler{cpu: 10, mem: 20})
	l.check(context.Background())
	require.Empty(t, *sent)
}
func TestCheckAlertsAndCooldown(t *testing.T) {
	l, sent, now := testLoop(t, fakeSampler{cpu: 95, mem: 20})
	l.check(context.Background())
	require.Equal(t, []int64{100, 200}, *sent)

	// Inside the cooldown window nothing more goes out.
	*now = now.Add(10 * time.Minute)
	l.check(context.Background())
	require.Len(t, *sent, 2)

	// Past the window the alert repeats.
	*now = now.Add(25 * time.Minute)
	l.check(context.Background())
	require.Equal(t, []int64{100, 200, 100, 200}, *sent)
}
func TestCheckSampleError(t *testing.T) {
	l, sent, _ := testLoop(t, fakeSampler{err: xerr.New("no metrics")})
	l.check(context.Background())
	require.Empty(t, *sent)
}
func TestCheckRespectsFlags(t *testing.T) {
	l, sent, _ := testLoop(t, fakeSampler{cpu: 95, mem: 95})
	l.Settings.SetNotifyLoad(200, false)
	l.check(context.Background())
	require.Equal(t, []int64{100}, *sent)
}
func TestCheckDroppedAlertKeepsCooldownClear(t *testing.T) {
	l, sent, _ := testLoop(t, fakeSampler{cpu: 95, mem: 95})
	ok := false
	l.Notify = func(to int64, _ string) bool {
		if !ok {
			return false
		}
		*sent = append(*sent, to)
		return true
	}
	l.check(context.Background())
	require.Empty(t, *sent)

	// The dropped alert must not have stamped the cooldown, the next
	// iteration retries immediately.
	ok = true
	l.check(context.Background())
	require.Equal(t, []int64{100, 200}, *sent)
}
func TestGauge(t *testing.T) {
	require.Equal(t, "🟢", Gauge(10))
	require.Equal(t, "🟡", Gauge(50))
	require.Equal(t, "🔴", Gauge(80))
	require.Equal(t, "🔴", Gauge(99))
}
