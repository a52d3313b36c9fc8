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
	"sort"
	"strconv"
	"time"

	"vpnwarden/script"
	"vpnwarden/store"
)

// Button is one inline menu entry, Action is the callback token sent back
// when it is pressed.
type Button struct {
	Label  string
	Action string
}

// Menu is an inline keyboard layout.
type Menu struct {
	Rows [][]Button
}

func btn(l, a string) Button {
	return Button{Label: l, Action: a}
}
func row(b ...Button) []Button {
	return b
}
func backRow(a string) []Button {
	return row(btn("⬅️ Назад", a))
}
func (m *Manager) mainMenu(r role) *Menu {
	if r == roleClient {
		return &Menu{Rows: [][]Button{row(btn("📥 Мой конфиг", "my_config"))}}
	}
	return &Menu{Rows: [][]Button{
		row(btn("🔒 OpenVPN", "openvpn_menu"), btn("⚡ WireGuard", "wireguard_menu")),
		row(btn("🖥 Сервер", "server_menu")),
		row(btn("👥 Клиенты", "clients_menu"), btn("👤 Админы", "admins_menu")),
		row(btn("🔔 Уведомления", "notifications_menu")),
	}}
}
func familyMenu(f script.Family) *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("➕ Создать клиента", string(script.Create(f)))),
		row(btn("➖ Удалить клиента", string(script.Delete(f)))),
		row(btn("📋 Список клиентов", string(script.List(f)))),
		backRow("main_menu"),
	}}
}
func serverMenu() *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("📊 Статистика", "server_stats"), btn("🌐 Онлайн", "server_online")),
		row(btn("⚙️ Службы", "server_services"), btn("📈 Пороги", "server_thresholds")),
		row(btn("🔄 Перезагрузка", "server_reboot")),
		backRow("main_menu"),
	}}
}
func (m *Manager) thresholdsMenu() *Menu {
	c, v := m.settings.Thresholds()
	return &Menu{Rows: [][]Button{
		row(btn("ЦП: "+strconv.Itoa(c)+"%", "set_cpu_threshold")),
		row(btn("ОЗУ: "+strconv.Itoa(v)+"%", "set_memory_threshold")),
		backRow("server_menu"),
	}}
}
func rebootMenu() *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("✅ Да, перезагрузить", "server_reboot_confirm"), btn("❌ Отмена", "server_menu")),
	}}
}
func mark(v bool) string {
	if v {
		return "🔔 Вкл"
	}
	return "🔕 Выкл"
}
func notificationsMenu(a store.Admin) *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("Уведомления: "+mark(a.Notify), "toggle_notifications")),
		row(btn("Нагрузка: "+mark(a.NotifyLoad), "toggle_load_notifications")),
		backRow("main_menu"),
	}}
}
func confirmDeleteMenu(f script.Family, n string) *Menu {
	return &Menu{Rows: [][]Button{
		row(
			btn("✅ Удалить", "confirm_"+f.String()+"_"+n),
			btn("❌ Отмена", "cancel_delete"),
		),
	}}
}
func skipMenu() *Menu {
	return &Menu{Rows: [][]Button{row(btn("Пропустить (5 лет)", "skip_expire"))}}
}
func configTypeMenu(back string) *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("🌍 Весь трафик", "conf_vpn")),
		row(btn("🛡 Только заблокированное", "conf_antizapret")),
		backRow(back),
	}}
}
func protocolMenu() *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("UDP", "proto_udp"), btn("TCP", "proto_tcp")),
		backRow("back_conf"),
	}}
}
func wgTypeMenu() *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("WireGuard", "wgtype_wg"), btn("AmneziaWG", "wgtype_am")),
		backRow("back_conf"),
	}}
}
func renameMenu() *Menu {
	return &Menu{Rows: [][]Button{
		row(btn("✏️ Переименовать", "confirm_rename"), btn("Оставить как есть", "no_rename")),
	}}
}

// rosterMenu renders one page of the client roster, five entries per page.
// Action is "view" or "delete" and decides what pressing an entry does.
// Pagination buttons appear only when the neighbor page exists.
func rosterMenu(c []script.Client, f script.Family, action string, page int, now time.Time) *Menu {
	var (
		t = pages(len(c))
		m = &Menu{}
	)
	if page < 1 {
		page = 1
	}
	if page > t {
		page = t
	}
	var (
		s = (page - 1) * pageSize
		e = s + pageSize
	)
	if e > len(c) {
		e = len(c)
	}
	for i := s; i < e; i++ {
		var (
			l = c[i].Name
			a = "client_" + f.String() + "_" + c[i].Name
		)
		if f == script.OpenVPN {
			// Records whose expiration text failed to parse keep the
			// original text in Raw, show that instead of the zero date.
			e := c[i].Raw
			if !c[i].Expires.IsZero() {
				e = c[i].Expires.Format("02.01.2006")
			}
			if l = c[i].Status(now).String() + " " + c[i].Name; len(e) > 0 {
				l += " (до " + e + ")"
			}
		}
		if action == "delete" {
			a = "delete_" + f.String() + "_" + c[i].Name
		}
		m.Rows = append(m.Rows, row(btn(l, a)))
	}
	var p []Button
	if page > 1 {
		p = append(p, btn("⬅️", "page_"+action+"_"+f.String()+"_"+strconv.Itoa(page-1)))
	}
	if t > 1 {
		p = append(p, btn(strconv.Itoa(page)+"/"+strconv.Itoa(t), "no_action"))
	}
	if page < t {
		p = append(p, btn("➡️", "page_"+action+"_"+f.String()+"_"+strconv.Itoa(page+1)))
	}
	if len(p) > 0 {
		m.Rows = append(m.Rows, p)
	}
	m.Rows = append(m.Rows, backRow(f.String()+"_menu"))
	return m
}

// clientsMenu lists the actor/client bindings with a delete button per entry
// and an add action.
func (m *Manager) clientsMenu() *Menu {
	var (
		v = m.env.Mapping()
		k = make([]int64, 0, len(v))
		r = &Menu{}
	)
	for i := range v {
		k = append(k, i)
	}
	sort.Slice(k, func(i, j int) bool { return k[i] < k[j] })
	for _, i := range k {
		r.Rows = append(r.Rows, row(btn(
			"🗑 "+m.settings.Label(i)+" → "+v[i], "clientmap_del_"+strconv.FormatInt(i, 10),
		)))
	}
	r.Rows = append(r.Rows, row(btn("➕ Добавить", "clientmap_add")))
	r.Rows = append(r.Rows, backRow("main_menu"))
	return r
}
func confirmUnmapMenu(id int64) *Menu {
	return &Menu{Rows: [][]Button{
		row(
			btn("✅ Удалить", "clientmap_confirm_"+strconv.FormatInt(id, 10)),
			btn("❌ Отмена", "clients_menu"),
		),
	}}
}
