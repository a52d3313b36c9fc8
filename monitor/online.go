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

// Package monitor samples host load and classifies which VPN clients are
// currently connected. Every per-iteration failure is logged and skipped so
// one bad sample or unreadable file never halts the loop.
package monitor

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PurpleSec/logx"
)

// Peers whose latest handshake is older than this are considered offline.
// WireGuard rekeys roughly every two minutes on an active tunnel.
const onlineWindow = 3 * time.Minute

const handshakeFormat = "2006-01-02 15:04:05"

// Online classifies connected clients from two sources: OpenVPN status logs
// and the WireGuard peer table.
type Online struct {
	Log     logx.Log
	WG      string
	Logs    []string
	Configs []string
}

// OpenVPN scans the configured status logs for CLIENT_LIST entries and
// returns the distinct client names, sorted. A missing log file is an
// expected, silent condition.
func (o *Online) OpenVPN() []string {
	c := make(map[string]struct{})
	for i := range o.Logs {
		f, err := os.Open(o.Logs[i])
		if err != nil {
			if !os.IsNotExist(err) {
				o.Log.Warning(`[monitor] Could not read status log "%s": %s!`, o.Logs[i], err.Error())
			}
			continue
		}
		for s := bufio.NewScanner(f); s.Scan(); {
			v := strings.TrimSpace(s.Text())
			if !strings.HasPrefix(v, "CLIENT_LIST") {
				continue
			}
			p := strings.Split(v, ",")
			if len(p) < 2 {
				continue
			}
			switch n := strings.TrimSpace(p[1]); n {
			case "", "UNDEF", "Common Name":
			default:
				c[n] = struct{}{}
			}
		}
		f.Close()
	}
	r := make([]string, 0, len(c))
	for v := range c {
		r = append(r, v)
	}
	sort.Strings(r)
	return r
}

// WireGuard queries the peer table and returns the names of peers with a
// recent handshake, sorted. A failed query yields an empty set, never an
// error.
func (o *Online) WireGuard(x context.Context) []string {
	w := o.WG
	if len(w) == 0 {
		w = "/usr/bin/wg"
	}
	b, err := exec.CommandContext(x, w, "show").Output()
	if err != nil {
		o.Log.Warning("[monitor] Peer table query failed: %s!", err.Error())
		return nil
	}
	m := make(map[string]string)
	for i := range o.Configs {
		readPeerNames(o.Configs[i], m)
	}
	return ParsePeers(string(b), m, time.Now())
}

// ParsePeers walks "peer:" / "latest handshake:" block pairs and collects
// peers whose handshake falls inside the recency window. Peer ids are
// translated through the names map, unmapped ids pass through raw.
func ParsePeers(out string, names map[string]string, now time.Time) []string {
	var (
		c = make(map[string]struct{})
		p string
	)
	for _, v := range strings.Split(out, "\n") {
		if v = strings.TrimSpace(v); strings.HasPrefix(v, "peer:") {
			p = strings.TrimSpace(v[5:])
			continue
		}
		if !strings.HasPrefix(v, "latest handshake:") || len(p) == 0 {
			continue
		}
		t := ParseHandshake(strings.TrimSpace(v[17:]), now)
		if !t.IsZero() && now.Sub(t) <= onlineWindow {
			if n, ok := names[p]; ok {
				c[n] = struct{}{}
			} else {
				c[p] = struct{}{}
			}
		}
		p = ""
	}
	r := make([]string, 0, len(c))
	for v := range c {
		r = append(r, v)
	}
	sort.Strings(r)
	return r
}

// ParseHandshake converts a peer table handshake value into a point in time.
// The value may be the literal "now", a never-connected marker, a relative
// duration in mixed units or an absolute timestamp. Anything unparsable
// returns the zero time, which classifies the peer offline.
func ParseHandshake(s string, now time.Time) time.Time {
	if s = strings.TrimSpace(s); len(s) == 0 {
		return time.Time{}
	}
	switch strings.ToLower(s) {
	case "now":
		return now
	case "never", "n/a", "(none)", "none":
		return time.Time{}
	}
	if d, ok := parseRelative(s); ok {
		return now.Add(-d)
	}
	if t, err := time.ParseInLocation(handshakeFormat, s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// parseRelative handles values like "1 minute, 30 seconds ago". Units may be
// mixed and are summed, Russian unit names are accepted since the peer table
// follows the host locale.
func parseRelative(s string) (time.Duration, bool) {
	var (
		d time.Duration
		k bool
	)
	s = strings.TrimSuffix(strings.TrimSpace(s), "ago")
	for _, p := range strings.Split(s, ",") {
		f := strings.Fields(strings.TrimSpace(p))
		if len(f) < 2 {
			continue
		}
		n, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil {
			continue
		}
		switch u := strings.TrimRight(strings.ToLower(f[1]), "s"); {
		case strings.HasPrefix(u, "second") || strings.HasPrefix(u, "сек"):
			d += time.Duration(n) * time.Second
		case strings.HasPrefix(u, "minute") || strings.HasPrefix(u, "мин"):
			d += time.Duration(n) * time.Minute
		case strings.HasPrefix(u, "hour") || strings.HasPrefix(u, "час"):
			d += time.Duration(n) * time.Hour
		case strings.HasPrefix(u, "day") || strings.HasPrefix(u, "дн") || strings.HasPrefix(u, "день"):
			d += time.Duration(n) * 24 * time.Hour
		case strings.HasPrefix(u, "week") || strings.HasPrefix(u, "нед"):
			d += time.Duration(n) * 7 * 24 * time.Hour
		default:
			continue
		}
		k = true
	}
	return d, k
}

// readPeerNames extracts peer-id to client-name pairs from a WireGuard
// config. The lifecycle tool writes each peer as a "# name" comment followed
// by the [Peer] block holding the public key.
func readPeerNames(path string, m map[string]string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	var n string
	for s := bufio.NewScanner(f); s.Scan(); {
		v := strings.TrimSpace(s.Text())
		switch {
		case strings.HasPrefix(v, "#"):
			n = strings.TrimSpace(strings.TrimLeft(v, "# "))
		case strings.HasPrefix(v, "PublicKey"):
			p := strings.IndexByte(v, '=')
			if p <= 0 {
				continue
			}
			if k := strings.TrimSpace(v[p+1:]); len(k) > 0 && len(n) > 0 {
				m[k] = n
			}
		case strings.HasPrefix(v, "[Peer]"):
		case len(v) == 0:
			n = ""
		}
	}
	f.Close()
}
