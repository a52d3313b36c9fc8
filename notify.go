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
	"io"
	"net/http"
	"strings"
	"time"

	"vpnwarden/monitor"
)

// A host that has been up for less than this at startup was just rebooted,
// which changes the wording of the startup notice.
const rebootWindow = 2 * time.Minute

// queue places a notice on the delivery queue without blocking. A full queue
// drops the notice and reports false to the caller.
func (m *Manager) queue(to int64, text string, u *Menu) bool {
	select {
	case m.deliver <- notice{to: to, text: text, menu: u}:
		return true
	default:
		m.log.Warning("[notify] Delivery queue is full, dropping notice for %d!", to)
		return false
	}
}

// push is the menu-less variant handed to the load watcher.
func (m *Manager) push(to int64, text string) bool {
	return m.queue(to, text, nil)
}
func (m *Manager) ack(id string) {
	if len(id) == 0 {
		return
	}
	if err := m.sink.Ack(context.Background(), id); err != nil {
		m.log.Debug("[notify] Could not ack callback %q: %s.", id, err.Error())
	}
}
func (m *Manager) alert(id, text string) {
	if len(id) == 0 {
		return
	}
	if err := m.sink.Alert(context.Background(), id, text); err != nil {
		m.log.Debug("[notify] Could not alert callback %q: %s.", id, err.Error())
	}
}
func (m *Manager) sendFile(x context.Context, chat int64, path, name, caption string) error {
	return m.sink.SendFile(x, chat, path, name, caption)
}

// deliverLoop drains the delivery queue one notice at a time until the
// context is cancelled. Send failures are logged and the notice is dropped,
// a dead chat must not wedge the queue.
func (m *Manager) deliverLoop(x context.Context) {
	m.log.Info("[notify] Starting delivery thread...")
	for {
		select {
		case <-x.Done():
			m.log.Info("[notify] Stopping delivery thread.")
			return
		case n := <-m.deliver:
			if err := m.sink.Send(x, n.to, n.text, n.menu); err != nil {
				m.log.Error("[notify] Could not deliver notice to %d: %s!", n.to, err.Error())
			}
		}
	}
}

// startupNotice tells every administrator with notifications enabled that
// the daemon is up, distinguishing a host reboot from a plain restart.
func (m *Manager) startupNotice(x context.Context) {
	t := "🤖 Бот был перезапущен"
	if u, err := monitor.Uptime(x); err == nil && u < rebootWindow {
		t = "🔄 Сервер был перезагружен"
	}
	if len(m.ip) > 0 {
		t += "\n🌍 IP: " + m.ip
	}
	for _, a := range m.Config.Admins {
		if !m.settings.Admin(a).Notify {
			continue
		}
		m.queue(a, t, nil)
	}
}

// externalIP asks a public echo service for the host's outside address,
// best effort with a short timeout.
func externalIP(x context.Context) string {
	y, f := context.WithTimeout(x, 5*time.Second)
	defer f()
	r, err := http.NewRequestWithContext(y, http.MethodGet, "https://api.ipify.org", nil)
	if err != nil {
		return ""
	}
	o, err := http.DefaultClient.Do(r)
	if err != nil {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(o.Body, 64))
	if o.Body.Close(); err != nil || o.StatusCode != http.StatusOK {
		return ""
	}
	return strings.TrimSpace(string(b))
}
