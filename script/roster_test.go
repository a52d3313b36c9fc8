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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseOpenVPN(t *testing.T) {
	c := Parse(OpenVPN, "OpenVPN clients:\n\nalice | 30-09-2026\nbob | 01-01-2030\nbroken line\ncarol | not-a-date\n")
	require.Len(t, c, 3)
	require.Equal(t, "alice", c[0].Name)
	require.Equal(t, time.Date(2026, 9, 30, 0, 0, 0, 0, time.Local), c[0].Expires)
	require.Equal(t, "bob", c[1].Name)
	require.Equal(t, "carol", c[2].Name)
	require.True(t, c[2].Expires.IsZero())
	require.Equal(t, "not-a-date", c[2].Raw)
}
func TestParseWireGuard(t *testing.T) {
	c := Parse(WireGuard, "WireGuard clients:\nalice\nbob\n\n")
	require.Len(t, c, 2)
	require.Equal(t, "alice", c[0].Name)
	require.Equal(t, "bob", c[1].Name)
	require.True(t, c[0].Expires.IsZero())
}
func TestParseEmpty(t *testing.T) {
	require.Empty(t, Parse(OpenVPN, ""))
	require.Empty(t, Parse(OpenVPN, "OpenVPN clients:\n"))
}
func TestStatus(t *testing.T) {
	n := time.Date(2026, 8, 31, 15, 30, 0, 0, time.Local)
	for _, v := range []struct {
		expire string
		days   int
		status Status
	}{
		{"30-09-2026", 30, ExpiringSoon},
		{"01-10-2026", 31, Active},
		{"30-08-2026", -1, Expired},
		{"31-08-2026", 0, ExpiringSoon},
		{"31-08-2031", 1826, Active},
	} {
		e, err := time.ParseInLocation(expireFormat, v.expire, time.Local)
		require.NoError(t, err)
		c := Client{Name: "x", Expires: e}
		require.Equal(t, v.days, c.DaysLeft(n), "expire %s", v.expire)
		require.Equal(t, v.status, c.Status(n), "expire %s", v.expire)
	}
}
func TestStatusNoExpire(t *testing.T) {
	require.Equal(t, Active, Client{Name: "x"}.Status(time.Now()))
}
func TestStatusIsPure(t *testing.T) {
	e, err := time.ParseInLocation(expireFormat, "15-09-2026", time.Local)
	require.NoError(t, err)
	c := Client{Name: "x", Expires: e}
	require.Equal(t, ExpiringSoon, c.Status(time.Date(2026, 8, 31, 0, 0, 0, 0, time.Local)))
	require.Equal(t, Expired, c.Status(time.Date(2026, 10, 1, 0, 0, 0, 0, time.Local)))
	require.Equal(t, Active, c.Status(time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)))
}
