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

// Package script invokes the external client lifecycle tool and turns its
// output into structured client records.
//
// A non-zero exit from the tool is a normal result and is reported through
// the Result struct, never as an error. Only launch failures (tool missing,
// spawn error) produce the pre-formed failure Result with code 1.
package script

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/PurpleSec/logx"
)

// Search path handed to the lifecycle tool. The tool calls easy-rsa and wg
// directly and must not pick up anything from the caller's environment.
const execPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// Lifecycle tool opcodes. One create/delete/list triple per VPN family.
const (
	OpCreateOpenVPN   Op = "1"
	OpDeleteOpenVPN   Op = "2"
	OpListOpenVPN     Op = "3"
	OpCreateWireGuard Op = "4"
	OpDeleteWireGuard Op = "5"
	OpListWireGuard   Op = "6"
	OpRegenerate      Op = "7"
	OpBackup          Op = "8"
)

// VPN family selectors.
const (
	OpenVPN Family = iota
	WireGuard
)

var nameArg = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

// Op is a single opcode from the lifecycle tool's fixed vocabulary.
type Op string

// Family selects one of the two supported VPN families.
type Family uint8

// Result is the full outcome of one tool invocation.
type Result struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Code   int    `json:"returncode"`
}

// Gateway runs the lifecycle tool at the configured path.
type Gateway struct {
	Log  logx.Log
	Path string
}

// Ok is true when the tool completed with a zero exit code.
func (r Result) Ok() bool {
	return r.Code == 0
}

// Create returns the create opcode for the family.
func Create(f Family) Op {
	if f == WireGuard {
		return OpCreateWireGuard
	}
	return OpCreateOpenVPN
}

// Delete returns the delete opcode for the family.
func Delete(f Family) Op {
	if f == WireGuard {
		return OpDeleteWireGuard
	}
	return OpDeleteOpenVPN
}

// List returns the list opcode for the family.
func List(f Family) Op {
	if f == WireGuard {
		return OpListWireGuard
	}
	return OpListOpenVPN
}
func (f Family) String() string {
	if f == WireGuard {
		return "wireguard"
	}
	return "openvpn"
}
func fail(s string) Result {
	return Result{Code: 1, Stderr: s}
}

// ParseFamily maps the menu family token back to a Family. The second return
// is false for anything outside the vocabulary.
func ParseFamily(s string) (Family, bool) {
	switch s {
	case "openvpn":
		return OpenVPN, true
	case "wireguard":
		return WireGuard, true
	}
	return 0, false
}

// StripPrefix removes the interface prefixes the lifecycle tool prepends to
// generated artifact names.
func StripPrefix(n string) string {
	n = strings.TrimPrefix(n, "antizapret-")
	return strings.TrimPrefix(n, "vpn-")
}

// Run invokes the tool with the opcode and optional client name and day
// count. Arguments were validated by the caller but are re-checked here, the
// gateway is the last hop before the shell boundary.
func (g *Gateway) Run(x context.Context, op Op, args ...string) Result {
	if _, err := os.Stat(g.Path); err != nil {
		g.Log.Error(`[script] Lifecycle tool "%s" is not accessible: %s!`, g.Path, err.Error())
		return fail(`файл ` + g.Path + ` не найден`)
	}
	v := make([]string, 1, len(args)+1)
	v[0] = string(op)
	for i := range args {
		if i == 0 {
			if !nameArg.MatchString(args[0]) {
				g.Log.Error(`[script] Refusing invalid client name argument %q!`, args[0])
				return fail("некорректное имя клиента")
			}
			v = append(v, args[0])
			continue
		}
		if _, err := strconv.ParseUint(args[i], 10, 16); err != nil {
			g.Log.Error(`[script] Refusing invalid numeric argument %q!`, args[i])
			return fail("некорректный срок действия")
		}
		v = append(v, args[i])
	}
	var (
		o, e bytes.Buffer
		c    = exec.CommandContext(x, g.Path, v...)
	)
	c.Stdout, c.Stderr = &o, &e
	c.Env = append(os.Environ(), "PATH="+execPath)
	g.Log.Debug("[script] Running %q with args %v..", g.Path, v)
	if err := c.Run(); err != nil {
		var z *exec.ExitError
		if !errors.As(err, &z) {
			g.Log.Error(`[script] Could not launch "%s": %s!`, g.Path, err.Error())
			return fail("ошибка при выполнении скрипта: " + err.Error())
		}
	}
	r := Result{
		Code:   c.ProcessState.ExitCode(),
		Stdout: strings.TrimSpace(o.String()),
		Stderr: strings.TrimSpace(e.String()),
	}
	g.Log.Debug("[script] Tool exited with code %d.", r.Code)
	return r
}
