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

package vpnwarden

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"vpnwarden/script"
)

// startConfig opens the config retrieval conversation for a client. The
// owned flag marks a mapped client fetching their own config, which narrows
// the callbacks they may use and the back target.
func (m *Manager) startConfig(u Update, s *session, f script.Family, n string, owned bool) {
	s.reset()
	s.family, s.client, s.owned = f, n, owned
	s.state = stateChoosingConfig
	b := "page_view_" + f.String() + "_1"
	if owned {
		b = "main_menu"
	}
	m.queue(u.Chat, "📥 Конфигурация для "+n+"\nВыберите вариант маршрутизации:", configTypeMenu(b))
}

// configCallback advances the config conversation one step. Every step
// re-checks the state it expects, a stale button press gets the expired
// notice instead of acting on leftovers.
func (m *Manager) configCallback(x context.Context, u Update, s *session, d string) {
	r := roleAdmin
	if s.owned {
		r = roleClient
	}
	switch {
	case d == "conf_vpn" || d == "conf_antizapret":
		if s.state != stateChoosingConfig || len(s.client) == 0 {
			s.reset()
			m.queue(u.Chat, expired, m.mainMenu(r))
			return
		}
		if s.iface = "vpn"; d == "conf_antizapret" {
			s.iface = "antizapret"
		}
		if s.family == script.OpenVPN {
			s.state = stateChoosingProtocol
			m.queue(u.Chat, "🔌 Выберите протокол:", protocolMenu())
			return
		}
		s.state = stateChoosingWgType
		m.queue(u.Chat, "⚙️ Выберите тип конфигурации:", wgTypeMenu())
	case d == "back_conf":
		if s.state != stateChoosingProtocol && s.state != stateChoosingWgType {
			s.reset()
			m.queue(u.Chat, expired, m.mainMenu(r))
			return
		}
		s.state, s.iface = stateChoosingConfig, ""
		b := "page_view_" + s.family.String() + "_1"
		if s.owned {
			b = "main_menu"
		}
		m.queue(u.Chat, "📥 Конфигурация для "+s.client+"\nВыберите вариант маршрутизации:", configTypeMenu(b))
	case strings.HasPrefix(d, "proto_"):
		if s.state != stateChoosingProtocol {
			s.reset()
			m.queue(u.Chat, expired, m.mainMenu(r))
			return
		}
		p := d[6:]
		if p != "udp" && p != "tcp" {
			return
		}
		f := m.findConfig(script.OpenVPN, s.iface, s.client, p)
		if len(f) == 0 {
			s.reset()
			m.log.Warning("[flow] No openvpn config found for %q (%s, %s)!", s.client, s.iface, p)
			m.queue(u.Chat, "❌ Файл конфигурации не найден", m.mainMenu(r))
			return
		}
		m.deliverConfig(x, u, s, f, filepath.Base(f), r)
	case strings.HasPrefix(d, "wgtype_"):
		if s.state != stateChoosingWgType {
			s.reset()
			m.queue(u.Chat, expired, m.mainMenu(r))
			return
		}
		k := d[7:]
		if k != "wg" && k != "am" {
			return
		}
		f := m.findConfig(script.WireGuard, s.iface, s.client, k)
		if len(f) == 0 {
			s.reset()
			m.log.Warning("[flow] No wireguard config found for %q (%s, %s)!", s.client, s.iface, k)
			m.queue(u.Chat, "❌ Файл конфигурации не найден", m.mainMenu(r))
			return
		}
		// Generated names carry the interface and host and overflow the
		// 32 char interface name limit on import, offer a short rename.
		s.file, s.original = f, filepath.Base(f)
		s.short = script.StripPrefix(s.client) + ".conf"
		s.state = stateConfirmRename
		m.queue(u.Chat, "📄 Файл: "+s.original+"\n\nИмя длинновато для импорта. Переименовать в "+s.short+"?", renameMenu())
	case d == "confirm_rename" || d == "no_rename":
		if s.state != stateConfirmRename || len(s.file) == 0 {
			s.reset()
			m.queue(u.Chat, expired, m.mainMenu(r))
			return
		}
		n := s.original
		if d == "confirm_rename" {
			n = s.short
		}
		m.deliverConfig(x, u, s, s.file, n, r)
	}
}

// deliverConfig re-validates the file right before sending, the conversation
// may have been parked for a while and the file can be gone or rewritten.
func (m *Manager) deliverConfig(x context.Context, u Update, s *session, path, name string, r role) {
	c := s.client
	s.reset()
	i, err := os.Stat(path)
	if err != nil {
		m.log.Warning(`[flow] Config "%s" vanished before sending: %s!`, path, err.Error())
		m.queue(u.Chat, "❌ Файл конфигурации больше не существует", m.mainMenu(r))
		return
	}
	if i.Size() == 0 {
		m.log.Warning(`[flow] Config "%s" is empty!`, path)
		m.queue(u.Chat, "❌ Файл конфигурации пуст", m.mainMenu(r))
		return
	}
	if i.Size() > maxFileSize {
		m.log.Warning(`[flow] Config "%s" exceeds the size limit (%d bytes)!`, path, i.Size())
		m.queue(u.Chat, "❌ Файл конфигурации слишком большой для отправки", m.mainMenu(r))
		return
	}
	if err = m.sendFile(x, u.Chat, path, name, "📄 "+c); err != nil {
		m.log.Error(`[flow] Could not send config "%s": %s!`, path, err.Error())
		m.queue(u.Chat, "❌ Не удалось отправить файл", m.mainMenu(r))
		return
	}
	m.audit.Info("[flow] Config %q sent to %d as %q.", path, u.Chat, name)
	m.queue(u.Chat, "✅ Готово", m.mainMenu(r))
}

// findConfig locates one config file by family, interface variant, client
// and flavor. The exact generated name embeds the host, so matching is by
// prefix and suffix.
func (m *Manager) findConfig(f script.Family, iface, name, kind string) string {
	if f == script.OpenVPN {
		g, _ := filepath.Glob(filepath.Join(m.Config.OpenVPNDir, "*.ovpn"))
		var loose string
		for i := range g {
			b := strings.TrimSuffix(filepath.Base(g[i]), ".ovpn")
			if !strings.Contains(b, name) {
				continue
			}
			if strings.HasPrefix(b, iface+"-") && strings.HasSuffix(b, "-"+kind) {
				return g[i]
			}
			if len(loose) == 0 {
				loose = g[i]
			}
		}
		return loose
	}
	d := "wireguard"
	if kind == "am" {
		d = "amneziawg"
	}
	g, _ := filepath.Glob(filepath.Join(m.Config.ClientDir, d, "*", "*.conf"))
	var loose string
	for i := range g {
		b := strings.TrimSuffix(filepath.Base(g[i]), ".conf")
		if !strings.Contains(b, name) {
			continue
		}
		if strings.HasPrefix(b, iface+"-") {
			return g[i]
		}
		if len(loose) == 0 {
			loose = g[i]
		}
	}
	return loose
}
