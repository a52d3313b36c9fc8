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

type role uint8

// Authorization classes. Administrators come from static configuration,
// mapped clients from the env store, everyone else is rejected with the
// same generic denial.
const (
	roleNone role = iota
	roleClient
	roleAdmin
)

const denied = "Доступ запрещен"

// classify resolves an actor against the admin allowlist and the client
// mapping. Both sources are consulted on every update, a revoked actor loses
// access on the next interaction.
func (m *Manager) classify(id int64) (role, string) {
	for i := range m.Config.Admins {
		if m.Config.Admins[i] == id {
			return roleAdmin, ""
		}
	}
	if n := m.env.ClientFor(id); len(n) > 0 {
		return roleClient, n
	}
	return roleNone, ""
}

// deny logs the rejected update and answers with the generic denial. The
// message is identical for unknown actors and known actors hitting an
// operation above their class.
func (m *Manager) deny(u Update) {
	m.log.Warning("[auth] Denied actor %d (%q)!", u.ID, u.Username)
	m.audit.Info("[auth] Access denied for actor %d (%q).", u.ID, u.Username)
	if len(u.CallbackID) > 0 {
		m.alert(u.CallbackID, denied)
		return
	}
	m.queue(u.Chat, denied, nil)
}
