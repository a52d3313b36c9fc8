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
	"testing"

	"github.com/PurpleSec/logx"
	"github.com/stretchr/testify/require"
	"vpnwarden/script"
	"vpnwarden/store"
)

const (
	testAdmin  int64 = 100
	testClient int64 = 200
	testOther  int64 = 999
)

type fakeSink struct {
	files  []string
	alerts []string
}
type fakeRunner struct {
	args [][]string
	ops  []script.Op
	res  script.Result
}

func (f *fakeSink) Send(_ context.Context, _ int64, _ string, _ *Menu) error {
	return nil
}
func (f *fakeSink) SendFile(_ context.Context, _ int64, _, name, _ string) error {
	f.files = append(f.files, name)
	return nil
}
func (f *fakeSink) Alert(_ context.Context, _, text string) error {
	f.alerts = append(f.alerts, text)
	return nil
}
func (f *fakeSink) Ack(_ context.Context, _ string) error {
	return nil
}
func (f *fakeRunner) Run(_ context.Context, op script.Op, a ...string) script.Result {
	f.ops = append(f.ops, op)
	f.args = append(f.args, a)
	return f.res
}
func testManager(t *testing.T, r *fakeRunner) (*Manager, *fakeSink) {
	var (
		d = t.TempDir()
		k = new(fakeSink)
		m = &Manager{
			log:     logx.NOP,
			audit:   logx.NOP,
			sink:    k,
			run:     r,
			deliver: make(chan notice, 64),
		}
	)
	m.Config.Admins = []int64{testAdmin}
	m.settings = &store.Settings{Log: m.log, Path: filepath.Join(d, "settings.json")}
	m.env = &store.Env{Log: m.log, Path: filepath.Join(d, ".env")}
	m.sessions.m = make(map[int64]*session)
	return m, k
}
func drain(m *Manager) []notice {
	var r []notice
	for {
		select {
		case n := <-m.deliver:
			r = append(r, n)
		default:
			return r
		}
	}
}
func texts(n []notice) string {
	var b strings.Builder
	for i := range n {
		b.WriteString(n[i].text + "\n")
	}
	return b.String()
}
func TestCreateFlow(t *testing.T) {
	var (
		x    = context.Background()
		r    = &fakeRunner{res: script.Result{Stdout: "done"}}
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "1", CallbackID: "c1"})
	require.Contains(t, texts(drain(m)), "Введите имя")

	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "alice"})
	require.Contains(t, texts(drain(m)), "срок действия")

	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "365"})
	v := texts(drain(m))
	require.Contains(t, v, "Клиент создан")
	require.Contains(t, v, "365 дней")

	require.Equal(t, []script.Op{script.OpCreateOpenVPN}, r.ops)
	require.Equal(t, [][]string{{"alice", "365"}}, r.args)
	require.Equal(t, stateIdle, m.sessions.get(testAdmin).state)
}
func TestCreateFlowSkipExpire(t *testing.T) {
	var (
		x    = context.Background()
		r    = &fakeRunner{res: script.Result{Stdout: "done"}}
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "4", CallbackID: "c1"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "bob"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "skip_expire", CallbackID: "c2"})
	require.Contains(t, texts(drain(m)), "1825 дней")
	require.Equal(t, [][]string{{"bob", "1825"}}, r.args)
	require.Equal(t, []script.Op{script.OpCreateWireGuard}, r.ops)
}
func TestCreateFlowRejectsName(t *testing.T) {
	var (
		x    = context.Background()
		r    = new(fakeRunner)
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "1", CallbackID: "c1"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "bad name!"})
	require.Contains(t, texts(drain(m)), "Некорректное имя")
	require.Empty(t, r.ops)
	require.Equal(t, stateEnteringName, m.sessions.get(testAdmin).state)
}
func TestCreateFlowRejectsDays(t *testing.T) {
	var (
		x    = context.Background()
		r    = new(fakeRunner)
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "1", CallbackID: "c1"})
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "alice"})
	drain(m)
	for _, v := range []string{"0", "1826", "tomorrow"} {
		m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: v})
		require.Contains(t, texts(drain(m)), "от 1 до 1825")
	}
	require.Empty(t, r.ops)
}
func TestCreateFlowFailure(t *testing.T) {
	var (
		x    = context.Background()
		r    = &fakeRunner{res: script.Result{Code: 2, Stderr: "клиент уже существует"}}
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "1", CallbackID: "c1"})
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "alice"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "30"})
	v := texts(drain(m))
	require.Contains(t, v, "Ошибка при создании")
	require.Contains(t, v, "клиент уже существует")
	require.Equal(t, stateIdle, m.sessions.get(testAdmin).state)
}
func TestDeleteFlow(t *testing.T) {
	var (
		x    = context.Background()
		r    = &fakeRunner{res: script.Result{Stdout: "alice | 01-01-2030"}}
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "2", CallbackID: "c1"})
	require.Contains(t, texts(drain(m)), "для удаления")

	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "delete_openvpn_alice", CallbackID: "c2"})
	require.Contains(t, texts(drain(m)), "необратимо")

	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "confirm_openvpn_alice", CallbackID: "c3"})
	require.Contains(t, texts(drain(m)), "удален")
	require.Equal(t, []script.Op{script.OpListOpenVPN, script.OpDeleteOpenVPN}, r.ops)
	require.Equal(t, []string{"alice"}, r.args[1])
}
func TestDeleteFlowCancel(t *testing.T) {
	var (
		x    = context.Background()
		r    = &fakeRunner{res: script.Result{Stdout: "alice | 01-01-2030"}}
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "2", CallbackID: "c1"})
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "delete_openvpn_alice", CallbackID: "c2"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "cancel_delete", CallbackID: "c3"})
	require.Contains(t, texts(drain(m)), "отменено")
	require.Equal(t, []script.Op{script.OpListOpenVPN}, r.ops)
}
func TestConfirmWithoutPick(t *testing.T) {
	var (
		x    = context.Background()
		r    = new(fakeRunner)
		m, _ = testManager(t, r)
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "confirm_openvpn_alice", CallbackID: "c1"})
	require.Contains(t, texts(drain(m)), "Сессия истекла")
	require.Empty(t, r.ops)
}
func TestDenied(t *testing.T) {
	var (
		x    = context.Background()
		m, k = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testOther, Chat: testOther, Text: "/start"})
	require.Contains(t, texts(drain(m)), denied)

	m.handle(x, Update{ID: testOther, Chat: testOther, Callback: "1", CallbackID: "c1"})
	require.Contains(t, k.alerts, denied)
}
func TestMappedClientMenu(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	require.NoError(t, m.env.SetMapping(testClient, "alice"))
	m.handle(x, Update{ID: testClient, Chat: testClient, Text: "/start"})
	n := drain(m)
	require.Len(t, n, 1)
	require.NotNil(t, n[0].menu)
	require.Equal(t, "my_config", n[0].menu.Rows[0][0].Action)
}
func TestMappedClientCannotAdminister(t *testing.T) {
	var (
		x    = context.Background()
		r    = new(fakeRunner)
		m, k = testManager(t, r)
	)
	require.NoError(t, m.env.SetMapping(testClient, "alice"))
	for _, v := range []string{"1", "2", "server_menu", "clients_menu", "server_reboot_confirm"} {
		m.handle(x, Update{ID: testClient, Chat: testClient, Callback: v, CallbackID: "c"})
	}
	drain(m)
	require.Len(t, k.alerts, 5)
	require.Empty(t, r.ops)
}
func TestThresholdEntry(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "set_cpu_threshold", CallbackID: "c1"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "150"})
	require.Contains(t, texts(drain(m)), "от 1 до 100")
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "90"})
	require.Contains(t, texts(drain(m)), "Порог обновлен")
	c, v := m.settings.Thresholds()
	require.Equal(t, 90, c)
	require.Equal(t, store.DefaultMemoryThreshold, v)
}
func TestMappingEntry(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "clientmap_add", CallbackID: "c1"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "garbage"})
	require.Contains(t, texts(drain(m)), "Неверный формат")
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "200 : alice"})
	require.Contains(t, texts(drain(m)), "Привязка сохранена")
	require.Equal(t, "alice", m.env.ClientFor(200))
}
func TestClientCommandInlineMapping(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "/client 555:alice"})
	require.Contains(t, texts(drain(m)), "Привязка сохранена")
	require.Equal(t, "alice", m.env.ClientFor(555))

	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "/client garbage"})
	require.Contains(t, texts(drain(m)), "Неверный формат")
	require.Len(t, m.env.Mapping(), 1)
}
func TestClientCommandPrompts(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "/client"})
	require.Contains(t, texts(drain(m)), "Введите привязку")
	require.Equal(t, stateEnteringMapping, m.sessions.get(testAdmin).state)

	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "777:bob"})
	require.Contains(t, texts(drain(m)), "Привязка сохранена")
	require.Equal(t, "bob", m.env.ClientFor(777))
}
func TestStartWithoutAdmins(t *testing.T) {
	var (
		x    = context.Background()
		m, k = testManager(t, new(fakeRunner))
	)
	m.Config.Admins = nil
	m.handle(x, Update{ID: testOther, Chat: testOther, Text: "/start"})
	v := texts(drain(m))
	require.Contains(t, v, "не настроен")
	require.Contains(t, v, "999")
	require.Empty(t, k.alerts)
}
func TestDeleteFlowRemovesProfiles(t *testing.T) {
	var (
		x    = context.Background()
		r    = &fakeRunner{res: script.Result{Stdout: "alice | 01-01-2030"}}
		m, _ = testManager(t, r)
	)
	m.Config.OpenVPNDir = t.TempDir()
	for _, n := range []string{"alice.ovpn", "antizapret-alice.ovpn", "bob.ovpn"} {
		require.NoError(t, os.WriteFile(filepath.Join(m.Config.OpenVPNDir, n), []byte("cfg"), 0o644))
	}
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "2", CallbackID: "c1"})
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "delete_openvpn_alice", CallbackID: "c2"})
	drain(m)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "confirm_openvpn_alice", CallbackID: "c3"})
	v := texts(drain(m))
	require.Contains(t, v, "удален")
	require.Contains(t, v, "Удалено файлов конфигурации: 2")
	require.NoFileExists(t, filepath.Join(m.Config.OpenVPNDir, "alice.ovpn"))
	require.NoFileExists(t, filepath.Join(m.Config.OpenVPNDir, "antizapret-alice.ovpn"))
	require.FileExists(t, filepath.Join(m.Config.OpenVPNDir, "bob.ovpn"))
}
func TestIDCommandIsOpen(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testOther, Chat: testOther, Text: "/id"})
	require.Contains(t, texts(drain(m)), "999")
}
func TestAdminMetadataUpserted(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Text: "/start", First: "Alice", Last: "Admin", Username: "alice"})
	drain(m)
	a := m.settings.Admin(testAdmin)
	require.Equal(t, "Alice Admin", a.DisplayName)
	require.Equal(t, "alice", a.Username)
}
func TestSessionReset(t *testing.T) {
	s := new(session)
	s.state, s.client, s.action = stateEnteringDays, "alice", script.OpCreateOpenVPN
	e := s.epoch
	s.reset()
	require.Equal(t, stateIdle, s.state)
	require.Empty(t, s.client)
	require.Equal(t, e+1, s.epoch)
}
func TestNotificationToggle(t *testing.T) {
	var (
		x    = context.Background()
		m, _ = testManager(t, new(fakeRunner))
	)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "toggle_notifications", CallbackID: "c1"})
	drain(m)
	require.False(t, m.settings.Admin(testAdmin).Notify)
	m.handle(x, Update{ID: testAdmin, Chat: testAdmin, Callback: "toggle_notifications", CallbackID: "c2"})
	drain(m)
	require.True(t, m.settings.Admin(testAdmin).Notify)
}
