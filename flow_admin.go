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
	"os/exec"
	"strconv"
	"strings"

	"vpnwarden/monitor"
)

// serverCallback handles the host administration submenu.
func (m *Manager) serverCallback(x context.Context, u Update, s *session, d string) {
	switch d {
	case "server_menu":
		s.reset()
		s.state = stateChoosingOption
		m.queue(u.Chat, "🖥 Управление сервером", serverMenu())
	case "server_stats":
		m.showStats(x, u, s)
	case "server_online":
		m.showOnline(x, u, s)
	case "server_services":
		m.showServices(x, u)
	case "server_thresholds":
		c, v := m.settings.Thresholds()
		m.queue(u.Chat, "📈 Пороги оповещения о нагрузке\n\nЦП: "+strconv.Itoa(c)+"%\nОЗУ: "+strconv.Itoa(v)+"%", m.thresholdsMenu())
	case "set_cpu_threshold":
		s.state = stateEnteringCPU
		m.queue(u.Chat, "✏️ Введите порог ЦП в процентах (1-100):", nil)
	case "set_memory_threshold":
		s.state = stateEnteringMemory
		m.queue(u.Chat, "✏️ Введите порог ОЗУ в процентах (1-100):", nil)
	case "server_reboot":
		m.queue(u.Chat, "⚠️ Перезагрузить сервер? Все клиенты будут отключены.", rebootMenu())
	case "server_reboot_confirm":
		m.audit.Info("[admin] Host reboot requested by %d (%q).", u.ID, u.Username)
		m.queue(u.Chat, "🔄 Перезагружаюсь...", nil)
		if err := exec.Command("/sbin/shutdown", "-r", "now").Start(); err != nil {
			m.log.Error("[admin] Could not start reboot: %s!", err.Error())
			m.queue(u.Chat, "❌ Не удалось запустить перезагрузку: "+err.Error(), serverMenu())
		}
	}
}

// showStats renders the host snapshot. Sampling blocks for about two
// seconds, the session lock is released for the duration.
func (m *Manager) showStats(x context.Context, u Update, s *session) {
	e := s.epoch
	s.lock.Unlock()
	var (
		t, err = monitor.Sample(x)
		o      = m.online()
		ov     = o.OpenVPN()
		wv     = o.WireGuard(x)
	)
	s.lock.Lock()
	if s.epoch != e {
		return
	}
	if err != nil {
		m.log.Error("[admin] Could not sample host stats: %s!", err.Error())
		m.queue(u.Chat, "❌ Не удалось собрать статистику: "+err.Error(), serverMenu())
		return
	}
	var b strings.Builder
	b.WriteString("📊 Статистика сервера\n\n")
	b.WriteString("⏱ Аптайм: " + formatUptime(t.Uptime) + "\n")
	b.WriteString(monitor.Gauge(t.CPU) + " ЦП: " + strconv.FormatFloat(t.CPU, 'f', 1, 64) + "%\n")
	b.WriteString(monitor.Gauge(t.Memory) + " ОЗУ: " + strconv.FormatFloat(t.Memory, 'f', 1, 64) + "%\n")
	if t.DiskTotal > 0 {
		b.WriteString("💽 Диск: " + formatBytes(t.DiskUsed) + " из " + formatBytes(t.DiskTotal) + "\n")
	}
	if len(t.Interface) > 0 {
		b.WriteString("🌐 " + t.Interface + ": ↓ " + formatSpeed(t.Down) + " ↑ " + formatSpeed(t.Up) + "\n")
		b.WriteString("📦 Трафик: ↓ " + formatBytes(t.Recv) + " ↑ " + formatBytes(t.Sent) + "\n")
	}
	b.WriteString("\n🔒 OpenVPN онлайн: " + strconv.Itoa(len(ov)))
	b.WriteString("\n⚡ WireGuard онлайн: " + strconv.Itoa(len(wv)))
	m.queue(u.Chat, b.String(), serverMenu())
}

// showOnline lists the currently connected clients by family.
func (m *Manager) showOnline(x context.Context, u Update, s *session) {
	e := s.epoch
	s.lock.Unlock()
	var (
		o  = m.online()
		ov = o.OpenVPN()
		wv = o.WireGuard(x)
	)
	s.lock.Lock()
	if s.epoch != e {
		return
	}
	var b strings.Builder
	b.WriteString("🌐 Клиенты онлайн\n\n🔒 OpenVPN (" + strconv.Itoa(len(ov)) + ")")
	for i := range ov {
		b.WriteString("\n  • " + ov[i])
	}
	b.WriteString("\n\n⚡ WireGuard (" + strconv.Itoa(len(wv)) + ")")
	for i := range wv {
		b.WriteString("\n  • " + wv[i])
	}
	if len(ov) == 0 && len(wv) == 0 {
		b.WriteString("\n\n📭 Сейчас никто не подключен")
	}
	m.queue(u.Chat, b.String(), serverMenu())
}

// showServices renders the supervisor process table, one status line per
// managed service.
func (m *Manager) showServices(x context.Context, u Update) {
	b, err := exec.CommandContext(x, "supervisorctl", "status").Output()
	if err != nil && len(b) == 0 {
		m.log.Error("[admin] Could not query services: %s!", err.Error())
		m.queue(u.Chat, "❌ Не удалось получить статус служб: "+err.Error(), serverMenu())
		return
	}
	var o strings.Builder
	o.WriteString("⚙️ Службы\n")
	for _, v := range strings.Split(string(b), "\n") {
		f := strings.Fields(v)
		if len(f) < 2 {
			continue
		}
		if o.WriteString("\n"); f[1] == "RUNNING" {
			o.WriteString("✅ " + f[0])
			continue
		}
		o.WriteString("❌ " + f[0] + " (" + f[1] + ")")
	}
	m.queue(u.Chat, o.String(), serverMenu())
}

// adminCallback handles the mapping, admin list and notification submenus.
func (m *Manager) adminCallback(u Update, s *session, d string) {
	switch d {
	case "clients_menu":
		s.reset()
		s.state = stateChoosingOption
		m.queue(u.Chat, "👥 Привязки клиентов к аккаунтам", m.clientsMenu())
	case "clientmap_add":
		s.state = stateEnteringMapping
		m.queue(u.Chat, "✏️ Введите привязку в формате id:имя\nНапример: 123456789:alice", nil)
	case "admins_menu":
		var b strings.Builder
		b.WriteString("👤 Администраторы (" + strconv.Itoa(len(m.Config.Admins)) + ")")
		for _, a := range m.Config.Admins {
			b.WriteString("\n  • " + m.settings.Label(a))
		}
		m.queue(u.Chat, b.String(), &Menu{Rows: [][]Button{backRow("main_menu")}})
	case "notifications_menu":
		m.queue(u.Chat, "🔔 Настройки уведомлений", notificationsMenu(m.settings.Admin(u.ID)))
	case "toggle_notifications":
		v := m.settings.Admin(u.ID)
		m.settings.SetNotify(u.ID, !v.Notify)
		m.queue(u.Chat, "🔔 Настройки уведомлений", notificationsMenu(m.settings.Admin(u.ID)))
	case "toggle_load_notifications":
		v := m.settings.Admin(u.ID)
		m.settings.SetNotifyLoad(u.ID, !v.NotifyLoad)
		m.queue(u.Chat, "🔔 Настройки уведомлений", notificationsMenu(m.settings.Admin(u.ID)))
	}
}

// thresholdEntry consumes a typed threshold value for whichever threshold
// the session is entering.
func (m *Manager) thresholdEntry(u Update, s *session) {
	v, ok := parseThreshold(u.Text)
	if !ok {
		m.queue(u.Chat, "⚠️ Порог должен быть числом от 1 до 100. Попробуйте еще раз:", nil)
		return
	}
	if s.state == stateEnteringCPU {
		m.settings.SetThresholds(v, -1)
	} else {
		m.settings.SetThresholds(-1, v)
	}
	m.audit.Info("[admin] Load threshold updated by %d (%s=%d).", u.ID, s.state.String(), v)
	s.reset()
	c, w := m.settings.Thresholds()
	m.queue(u.Chat, "✅ Порог обновлен\n\nЦП: "+strconv.Itoa(c)+"%\nОЗУ: "+strconv.Itoa(w)+"%", m.thresholdsMenu())
}

// mappingEntry consumes a typed "id:name" binding.
func (m *Manager) mappingEntry(u Update, s *session) {
	v := mapExp.FindStringSubmatch(strings.TrimSpace(u.Text))
	if v == nil {
		m.queue(u.Chat, "⚠️ Неверный формат. Ожидается id:имя, например 123456789:alice. Попробуйте еще раз:", nil)
		return
	}
	i, err := strconv.ParseInt(v[1], 10, 64)
	if err != nil {
		m.queue(u.Chat, "⚠️ Некорректный идентификатор. Попробуйте еще раз:", nil)
		return
	}
	if err = m.env.SetMapping(i, v[2]); err != nil {
		m.log.Error("[admin] Could not persist mapping %d -> %q: %s!", i, v[2], err.Error())
		m.queue(u.Chat, "❌ Не удалось сохранить привязку: "+err.Error(), m.clientsMenu())
		return
	}
	m.audit.Info("[admin] Mapping %d -> %q added by %d.", i, v[2], u.ID)
	s.reset()
	m.queue(u.Chat, "✅ Привязка сохранена", m.clientsMenu())
}
func (m *Manager) pickUnmap(u Update, v string) {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}
	n := m.env.ClientFor(i)
	if len(n) == 0 {
		m.queue(u.Chat, "⚠️ Привязка уже удалена", m.clientsMenu())
		return
	}
	m.queue(u.Chat, "⚠️ Удалить привязку "+strconv.FormatInt(i, 10)+" → "+n+"?", confirmUnmapMenu(i))
}
func (m *Manager) unmapRun(u Update, s *session, v string) {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}
	if err = m.env.RemoveMapping(i); err != nil {
		m.log.Error("[admin] Could not remove mapping for %d: %s!", i, err.Error())
		m.queue(u.Chat, "❌ Не удалось удалить привязку: "+err.Error(), m.clientsMenu())
		return
	}
	m.audit.Info("[admin] Mapping for %d removed by %d.", i, u.ID)
	s.reset()
	m.queue(u.Chat, "✅ Привязка удалена", m.clientsMenu())
}
