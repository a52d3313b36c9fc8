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
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/PurpleSec/logx"
	"github.com/stretchr/testify/require"
)

func testTool(t *testing.T, body string) *Gateway {
	if runtime.GOOS == "windows" {
		t.Skip("shell tool tests need a posix shell")
	}
	p := filepath.Join(t.TempDir(), "client.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0700))
	return &Gateway{Log: logx.NOP, Path: p}
}
func TestRun(t *testing.T) {
	g := testTool(t, `echo "op=$1 name=$2 days=$3"`)
	r := g.Run(context.Background(), OpCreateOpenVPN, "alice", "365")
	require.True(t, r.Ok())
	require.Equal(t, "op=1 name=alice days=365", r.Stdout)
	require.Empty(t, r.Stderr)
}
func TestRunFailure(t *testing.T) {
	g := testTool(t, `echo "boom" >&2; exit 3`)
	r := g.Run(context.Background(), OpDeleteOpenVPN, "alice")
	require.False(t, r.Ok())
	require.Equal(t, 3, r.Code)
	require.Equal(t, "boom", r.Stderr)
}
func TestRunMissingTool(t *testing.T) {
	g := &Gateway{Log: logx.NOP, Path: filepath.Join(t.TempDir(), "nope.sh")}
	r := g.Run(context.Background(), OpListOpenVPN)
	require.False(t, r.Ok())
	require.Contains(t, r.Stderr, "не найден")
}
func TestRunRejectsBadArgs(t *testing.T) {
	g := testTool(t, `echo reached; exit 0`)
	for _, v := range []string{"", "has space", "a;rm -rf /", "кириллица", "waytoolongname_waytoolongname_wayt"} {
		r := g.Run(context.Background(), OpCreateOpenVPN, v, "10")
		require.False(t, r.Ok(), "name %q must be rejected", v)
		require.NotContains(t, r.Stdout, "reached")
	}
	r := g.Run(context.Background(), OpCreateOpenVPN, "alice", "notanumber")
	require.False(t, r.Ok())
	require.NotContains(t, r.Stdout, "reached")
}
func TestFamilyOps(t *testing.T) {
	require.Equal(t, OpCreateOpenVPN, Create(OpenVPN))
	require.Equal(t, OpCreateWireGuard, Create(WireGuard))
	require.Equal(t, OpDeleteWireGuard, Delete(WireGuard))
	require.Equal(t, OpListOpenVPN, List(OpenVPN))
}
func TestParseFamily(t *testing.T) {
	f, ok := ParseFamily("openvpn")
	require.True(t, ok)
	require.Equal(t, OpenVPN, f)
	f, ok = ParseFamily("wireguard")
	require.True(t, ok)
	require.Equal(t, WireGuard, f)
	_, ok = ParseFamily("bogus")
	require.False(t, ok)
}
func TestStripPrefix(t *testing.T) {
	require.Equal(t, "alice", StripPrefix("antizapret-alice"))
	require.Equal(t, "alice", StripPrefix("vpn-alice"))
	require.Equal(t, "alice", StripPrefix("alice"))
}
