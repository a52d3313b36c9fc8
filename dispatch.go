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
	"strconv"
	"strings"

	"vpnwarden/script"
)

const expired = "⏳ Сессия истекла, начните заново с /start"

// handle processes one incoming update under the actor's session lock, so an
// actor never has two transitions in flight while different actors proceed
// independently.
func (m *Manager) handle(x context.Context, u Update) {
	s := m.sessions.get(u.ID)
	s.lock.Lock()
	defer s.lock.Unlock()
	r, c := m.classify(u.ID)
	if r == roleAdmin {
		m.settings.Upsert(u.ID, display(u), u.Username)
	}
	m.log.Debug("[dispatch] Update from %d (role %d, state %s).", u.ID, r, s.state.String())
	switch {
	case len(u.Callback) > 0:
		m.callback(x, u, s, r, c)
	case strings.HasPrefix(u.Text, "/"):
		m.command(x, u, s, r, c)
	default:
		m.text(x, u, s, r)
	}
}
func (m *Manager) command(x context.Context, u Update, s *session, r role, c string) {
	v, _, _ := strings.Cut(strings.TrimSpace(u.Text), " ")
	switch v {
	case "/id":
		// Open to everyone, this is how a new deployment learns the ids
		// to put into the admin allowlist.
		m.queue(u.Chat, "🆔 Ваш ID: "+strconv.FormatInt(u.ID, 10), nil)
		return
	case "/start":
		if r == roleNone {
			// A fresh deployment has an empty allowlist, answer with the
			// setup steps instead of a dead-end denial.
			if len(m.Config.Admins) == 0 {
				m.queue(u.Chat, "🛠 Бот ещё не настроен.\n🆔 Ваш ID: "+strconv.FormatInt(u.ID, 10)+
					"\n\nДобавьте этот ID в список администраторов в конфигурации и перезапустите бота.", nil)
				return
			}
			m.deny(u)
			return
		}
		s.reset()
		m.audit.Info("[dispatch] Actor %d (%q) opened the console.", u.ID, u.Username)
		m.queue(u.Chat, "👋 Добро пожаловать!", m.mainMenu(r))
		return
	case "/client":
		switch r {
		case roleClient:
			m.startConfig(u, s, script.WireGuard, c, true)
		case roleAdmin:
			// Mapping management: an inline "id:name" binds directly, a
			// bare /client prompts for one.
			a := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(u.Text), "/client"))
			if s.state = stateEnteringMapping; len(a) == 0 {
				m.queue(u.Chat, "✏️ Введите привязку в формате id:имя\nНапример: 123456789:alice", nil)
				return
			}
			v := u
			v.Text = a
			m.mappingEntry(v, s)
		default:
			m.deny(u)
		}
		return
	}
	if r == roleNone {
		m.deny(u)
		return
	}
	m.queue(u.Chat, "🤷 Неизвестная команда", m.mainMenu(r))
}

// text routes a plain message by the current conversation state. Stray text
// outside an entry state is dropped.
func (m *Manager) text(x context.Context, u Update, s *session, r role) {
	if r != roleAdmin {
		if r == roleNone {
			m.deny(u)
		}
		return
	}
	switch s.state {
	case stateEnteringName:
		m.createName(u, s)
	case stateEnteringDays:
		m.createDays(x, u, s, u.Text)
	case stateDeletingClient:
		m.deleteByName(u, s)
	case stateEnteringMapping:
		m.mappingEntry(u, s)
	case stateEnteringCPU, stateEnteringMemory:
		m.thresholdEntry(u, s)
	default:
		m.log.Debug("[dispatch] Ignoring stray text from %d in state %s.", u.ID, s.state.String())
	}
}
func (m *Manager) callback(x context.Context, u Update, s *session, r role, c string) {
	d := u.Callback
	if d == "no_action" {
		m.ack(u.CallbackID)
		return
	}
	if r == roleNone {
		m.deny(u)
		return
	}
	if r == roleClient {
		m.clientCallback(x, u, s, c, d)
		return
	}
	m.ack(u.CallbackID)
	switch d {
	case "main_menu":
		s.reset()
		m.queue(u.Chat, "🏠 Главное меню", m.mainMenu(roleAdmin))
	case "openvpn_menu":
		s.reset()
		s.state = stateChoosingOption
		m.queue(u.Chat, "🔒 OpenVPN", familyMenu(script.OpenVPN))
	case "wireguard_menu":
		s.reset()
		s.state = stateChoosingOption
		m.queue(u.Chat, "⚡ WireGuard", familyMenu(script.WireGuard))
	case "server_menu", "server_stats", "server_online", "server_services",
		"server_thresholds", "server_reboot", "server_reboot_confirm",
		"set_cpu_threshold", "set_memory_threshold":
		m.serverCallback(x, u, s, d)
	case "clients_menu", "clientmap_add", "admins_menu", "notifications_menu",
		"toggle_notifications", "toggle_load_notifications":
		m.adminCallback(u, s, d)
	case string(script.OpCreateOpenVPN):
		m.beginCreate(u, s, script.OpenVPN)
	case string(script.OpCreateWireGuard):
		m.beginCreate(u, s, script.WireGuard)
	case string(script.OpDeleteOpenVPN):
		m.showRoster(x, u, s, script.OpenVPN, "delete", 1)
	case string(script.OpDeleteWireGuard):
		m.showRoster(x, u, s, script.WireGuard, "delete", 1)
	case string(script.OpListOpenVPN):
		m.showRoster(x, u, s, script.OpenVPN, "view", 1)
	case string(script.OpListWireGuard):
		m.showRoster(x, u, s, script.WireGuard, "view", 1)
	case "skip_expire":
		if s.state != stateEnteringDays {
			m.queue(u.Chat, expired, m.mainMenu(roleAdmin))
			return
		}
		m.createRun(x, u, s, defaultDays)
	case "cancel_delete":
		f := s.family
		s.reset()
		s.state = stateChoosingOption
		m.queue(u.Chat, "❌ Удаление отменено", familyMenu(f))
	case "conf_vpn", "conf_antizapret", "back_conf", "confirm_rename", "no_rename":
		m.configCallback(x, u, s, d)
	default:
		switch {
		case strings.HasPrefix(d, "proto_"), strings.HasPrefix(d, "wgtype_"):
			m.configCallback(x, u, s, d)
		case strings.HasPrefix(d, "page_"):
			m.pageCallback(x, u, s, d[5:])
		case strings.HasPrefix(d, "delete_"):
			m.pickDelete(u, s, d[7:])
		case strings.HasPrefix(d, "confirm_"):
			m.deleteRun(x, u, s, d[8:])
		case strings.HasPrefix(d, "client_"):
			f, n, ok := cutFamily(d[7:])
			if !ok || !nameExp.MatchString(n) {
				m.queue(u.Chat, expired, m.mainMenu(roleAdmin))
				return
			}
			m.startConfig(u, s, f, n, false)
		case strings.HasPrefix(d, "clientmap_del_"):
			m.pickUnmap(u, d[14:])
		case strings.HasPrefix(d, "clientmap_confirm_"):
			m.unmapRun(u, s, d[18:])
		default:
			m.log.Warning("[dispatch] Unknown menu action %q from %d!", d, u.ID)
		}
	}
}

// clientCallback is the reduced vocabulary available to a mapped client:
// the main menu, starting the config flow for their own client and the flow
// steps of a conversation they own.
func (m *Manager) clientCallback(x context.Context, u Update, s *session, c, d string) {
	m.ack(u.CallbackID)
	switch {
	case d == "main_menu":
		s.reset()
		m.queue(u.Chat, "🏠 Главное меню", m.mainMenu(roleClient))
	case d == "my_config":
		m.startConfig(u, s, script.WireGuard, c, true)
	case s.owned && (d == "conf_vpn" || d == "conf_antizapret" || d == "back_conf" ||
		d == "confirm_rename" || d == "no_rename" ||
		strings.HasPrefix(d, "proto_") || strings.HasPrefix(d, "wgtype_")):
		m.configCallback(x, u, s, d)
	default:
		m.deny(u)
	}
}
func (m *Manager) pageCallback(x context.Context, u Update, s *session, v string) {
	a, r, ok := strings.Cut(v, "_")
	if !ok || (a != "view" && a != "delete") {
		return
	}
	t, r, ok := strings.Cut(r, "_")
	if !ok {
		return
	}
	f, ok := script.ParseFamily(t)
	if !ok {
		return
	}
	p, err := strconv.Atoi(r)
	if err != nil || p < 1 {
		return
	}
	m.showRoster(x, u, s, f, a, p)
}
func cutFamily(s string) (script.Family, string, bool) {
	if n, ok := strings.CutPrefix(s, "openvpn_"); ok {
		return script.OpenVPN, n, true
	}
	if n, ok := strings.CutPrefix(s, "wireguard_"); ok {
		return script.WireGuard, n, true
	}
	return 0, "", false
}
