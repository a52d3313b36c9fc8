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

package script

import (
	"strings"
	"time"
)

// Expiration date format used by the lifecycle tool's OpenVPN listing.
const expireFormat = "02-01-2006"

// Client statuses derived from the expiration date at render time.
const (
	Active Status = iota
	ExpiringSoon
	Expired
)

// Status is the derived lifetime state of a client record.
type Status uint8

// Client is one roster entry. Expires is the zero time for the WireGuard
// family, whose listing carries no expiration metadata, and for OpenVPN
// entries whose expiration text could not be parsed (Raw keeps the original
// text for display in that case).
type Client struct {
	Expires time.Time
	Name    string
	Raw     string
}

// Parse converts lifecycle tool stdout into client records. Banner and blank
// lines are skipped, as is any line that does not match the family's shape.
// Parsing never fails, a fully malformed listing yields an empty roster.
func Parse(f Family, stdout string) []Client {
	var (
		l = strings.Split(stdout, "\n")
		r = make([]Client, 0, len(l))
	)
	for i := range l {
		v := strings.TrimSpace(l[i])
		if len(v) == 0 || strings.HasPrefix(v, "OpenVPN") || strings.HasPrefix(v, "WireGuard") {
			continue
		}
		if f == WireGuard {
			r = append(r, Client{Name: v})
			continue
		}
		p := strings.IndexByte(v, '|')
		if p <= 0 || p == len(v)-1 {
			continue
		}
		var (
			n = strings.TrimSpace(v[:p])
			e = strings.TrimSpace(v[p+1:])
		)
		if len(n) == 0 {
			continue
		}
		c := Client{Name: n, Raw: e}
		if t, err := time.ParseInLocation(expireFormat, e, time.Local); err == nil {
			c.Expires = t
		}
		r = append(r, c)
	}
	return r
}

// Status derives the lifetime state against the supplied reference day. It
// is a pure function recomputed on every read, the record itself never
// caches it.
func (c Client) Status(now time.Time) Status {
	switch d := c.DaysLeft(now); {
	case c.Expires.IsZero():
		return Active
	case d < 0:
		return Expired
	case d <= 30:
		return ExpiringSoon
	}
	return Active
}

// DaysLeft returns whole days until expiration, negative once past. Records
// without expiration metadata report zero, check Expires.IsZero first.
func (c Client) DaysLeft(now time.Time) int {
	if c.Expires.IsZero() {
		return 0
	}
	var (
		y1, m1, d1 = c.Expires.Date()
		y2, m2, d2 = now.Date()
		a          = time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
		b          = time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	)
	return int(a.Sub(b) / (24 * time.Hour))
}
func (s Status) String() string {
	switch s {
	case Expired:
		return "❌ Истёк"
	case ExpiringSoon:
		return "⚠️ Скоро"
	}
	return "✅"
}
