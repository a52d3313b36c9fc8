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
	"strconv"
	"strings"
	"time"

	"vpnwarden/script"
)

// beginCreate starts the create conversation for the family.
func (m *Manager) beginCreate(u Update, s *session, f script.Family) {
	s.reset()
	s.state, s.family, s.action = stateEnteringName, f, script.Create(f)
	m.queue(u.Chat, "✏️ Введите имя нового клиента\n(латиница, цифры и _ . - , до 32 символов):", nil)
}

// createName consumes the typed client name. An invalid name keeps the state
// so the actor can retry.
func (m *Manager) createName(u Update, s *session) {
	if len(s.action) == 0 {
		s.reset()
		m.queue(u.Chat, expired, m.mainMenu(roleAdmin))
		return
	}
	n := strings.TrimSpace(u.Text)
	if !nameExp.MatchString(n) {
		m.queue(u.Chat, "⚠️ Некорректное имя. Допустимы латиница, цифры и _ . - , не длиннее 32 символов. Попробуйте еще раз:", nil)
		return
	}
	s.client, s.state = n, stateEnteringDays
	m.queue(u.Chat, "📅 Введите срок действия в днях (1-"+strconv.Itoa(defaultDays)+"):", skipMenu())
}
func (m *Manager) createDays(x context.Context, u Update, s *session, v string) {
	d, ok := parseDays(v)
	if !ok {
		m.queue(u.Chat, "⚠️ Срок должен быть числом от 1 до "+strconv.Itoa(defaultDays)+". Попробуйте еще раз:", skipMenu())
		return
	}
	m.createRun(x, u, s, d)
}

// createRun invokes the lifecycle tool. The session lock is released for the
// duration of the call and the result is dropped if the conversation was
// reset while it ran.
func (m *Manager) createRun(x context.Context, u Update, s *session, days uint16) {
	if s.state != stateEnteringDays || len(s.client) == 0 {
		s.reset()
		m.queue(u.Chat, expired, m.mainMenu(roleAdmin))
		return
	}
	var (
		n = s.client
		f = s.family
		e = s.epoch
	)
	m.queue(u.Chat, "⏳ Создаю клиента "+n+"...", nil)
	s.lock.Unlock()
	r := m.run.Run(x, script.Create(f), n, strconv.FormatUint(uint64(days), 10))
	s.lock.Lock()
	if s.epoch != e {
		m.log.Info("[flow] Dropping stale create result for %q, conversation was reset.", n)
		return
	}
	s.reset()
	if !r.Ok() {
		m.log.Error("[flow] Create of %q (%s) for %d failed with code %d: %s!", n, f.String(), u.ID, r.Code, failText(r))
		m.queue(u.Chat, "❌ Ошибка при создании клиента:\n"+failText(r), m.mainMenu(roleAdmin))
		return
	}
	m.audit.Info("[flow] Client %q (%s) created by %d, valid for %s.", n, f.String(), u.ID, formatDays(int(days)))
	m.queue(u.Chat, "✅ Клиент создан!\n📅 Срок действия: "+formatDays(int(days)), m.mainMenu(roleAdmin))
	m.sendArtifacts(x, u.Chat, f, n)
}

// showRoster lists the family's clients and renders one page, wired either
// for viewing or for deletion.
func (m *Manager) showRoster(x context.Context, u Update, s *session, f script.Family, action string, page int) {
	e := s.epoch
	s.lock.Unlock()
	r := m.run.Run(x, script.List(f))
	s.lock.Lock()
	if s.epoch != e {
		return
	}
	if !r.Ok() {
		m.log.Error("[flow] Roster query for %s failed with code %d: %s!", f.String(), r.Code, failText(r))
		m.queue(u.Chat, "❌ Не удалось получить список клиентов:\n"+failText(r), familyMenu(f))
		return
	}
	c := script.Parse(f, r.Stdout)
	if len(c) == 0 {
		m.queue(u.Chat, "📭 Клиентов пока нет", familyMenu(f))
		return
	}
	s.family = f
	t := "📋 Клиенты (" + strconv.Itoa(len(c)) + ")"
	if s.state = stateChoosingOption; action == "delete" {
		// Picking from the list and typing the name both funnel into the
		// confirmation step.
		s.state, t = stateDeletingClient, "➖ Выберите клиента для удаления или введите имя"
	}
	m.queue(u.Chat, t, rosterMenu(c, f, action, page, time.Now()))
}

// pickDelete asks for confirmation before anything is destroyed.
func (m *Manager) pickDelete(u Update, s *session, v string) {
	f, n, ok := cutFamily(v)
	if !ok || !nameExp.MatchString(n) {
		m.queue(u.Chat, expired, m.mainMenu(roleAdmin))
		return
	}
	s.family, s.client, s.state = f, n, stateListForDelete
	m.queue(u.Chat, "⚠️ Удалить клиента "+n+"? Это действие необратимо.", confirmDeleteMenu(f, n))
}

// deleteByName handles a typed client name while a delete conversation is
// active, it still funnels into the same confirmation step.
func (m *Manager) deleteByName(u Update, s *session) {
	n := strings.TrimSpace(u.Text)
	if !nameExp.MatchString(n) {
		m.queue(u.Chat, "⚠️ Некорректное имя клиента. Попробуйте еще раз:", nil)
		return
	}
	s.client, s.state = n, stateListForDelete
	m.queue(u.Chat, "⚠️ Удалить клиента "+n+"? Это действие необратимо.", confirmDeleteMenu(s.family, n))
}
func (m *Manager) deleteRun(x context.Context, u Update, s *session, v string) {
	f, n, ok := cutFamily(v)
	if !ok || !nameExp.MatchString(n) || s.state != stateListForDelete {
		s.reset()
		m.queue(u.Chat, expired, m.mainMenu(roleAdmin))
		return
	}
	e := s.epoch
	s.lock.Unlock()
	r := m.run.Run(x, script.Delete(f), n)
	s.lock.Lock()
	if s.epoch != e {
		m.log.Info("[flow] Dropping stale delete result for %q, conversation was reset.", n)
		return
	}
	s.reset()
	if !r.Ok() {
		m.log.Error("[flow] Delete of %q (%s) for %d failed with code %d: %s!", n, f.String(), u.ID, r.Code, failText(r))
		m.queue(u.Chat, "❌ Ошибка при удалении клиента:\n"+failText(r), m.mainMenu(roleAdmin))
		return
	}
	m.audit.Info("[flow] Client %q (%s) deleted by %d.", n, f.String(), u.ID)
	t := "🗑 Клиент " + n + " удален"
	if f == script.OpenVPN {
		if k := m.cleanupArtifacts(n); k > 0 {
			t += "\n🧹 Удалено файлов конфигурации: " + strconv.Itoa(k)
		}
	}
	m.queue(u.Chat, t, m.mainMenu(roleAdmin))
}

// cleanupArtifacts removes exported profiles left behind after a delete and
// returns how many were removed. The lifecycle tool only tears down keys, the
// web export directory keeps stale copies.
func (m *Manager) cleanupArtifacts(n string) int {
	var (
		a = m.findArtifacts(script.OpenVPN, script.StripPrefix(n))
		k int
	)
	for i := range a {
		if err := os.Remove(a[i]); err != nil {
			m.log.Warning(`[flow] Could not remove leftover profile "%s": %s!`, a[i], err.Error())
			continue
		}
		k++
	}
	if k > 0 {
		m.log.Info("[flow] Removed %d leftover profiles for %q.", k, n)
	}
	return k
}

// sendArtifacts pushes the freshly generated config files to the chat. A
// missing artifact is reported, the create itself already succeeded.
func (m *Manager) sendArtifacts(x context.Context, chat int64, f script.Family, n string) {
	a := m.findArtifacts(f, n)
	if len(a) == 0 {
		m.log.Warning("[flow] No artifacts found for new client %q (%s)!", n, f.String())
		m.queue(chat, "⚠️ Файл конфигурации не найден, запросите его через меню клиентов", nil)
		return
	}
	for i := range a {
		if err := m.sendFile(x, chat, a[i], filepath.Base(a[i]), "📄 "+n); err != nil {
			m.log.Error(`[flow] Could not send artifact "%s": %s!`, a[i], err.Error())
		}
	}
}

// findArtifacts locates generated config files for the client. OpenVPN
// profiles live flat in one directory, WireGuard configs are grouped by
// variant and interface.
func (m *Manager) findArtifacts(f script.Family, n string) []string {
	var r []string
	if f == script.OpenVPN {
		g, _ := filepath.Glob(filepath.Join(m.Config.OpenVPNDir, "*.ovpn"))
		for i := range g {
			b := strings.TrimSuffix(filepath.Base(g[i]), ".ovpn")
			if b == n || script.StripPrefix(b) == n || strings.Contains(b, "-"+n+"-") {
				r = append(r, g[i])
			}
		}
		return r
	}
	for _, d := range []string{"wireguard", "amneziawg"} {
		g, _ := filepath.Glob(filepath.Join(m.Config.ClientDir, d, "*", "*.conf"))
		for i := range g {
			b := strings.TrimSuffix(filepath.Base(g[i]), ".conf")
			if b == n || script.StripPrefix(b) == n || strings.Contains(b, "-"+n+"-") {
				r = append(r, g[i])
			}
		}
	}
	return r
}
func failText(r script.Result) string {
	if len(r.Stderr) > 0 {
		return r.Stderr
	}
	if len(r.Stdout) > 0 {
		return r.Stdout
	}
	return "код завершения " + strconv.Itoa(r.Code)
}
