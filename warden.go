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

// Package vpnwarden is the administration core of the VPN host console: a
// per-operator conversational state machine driving the external client
// lifecycle tool, and a background monitor that classifies connected
// clients and raises cooldown-gated load alerts.
package vpnwarden

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PurpleSec/logx"
	"vpnwarden/monitor"
	"vpnwarden/script"
	"vpnwarden/store"
	"vpnwarden/xerr"
)

// Size limit for outgoing artifact files and the roster page size.
const (
	pageSize    = 5
	maxFileSize = 50 << 20
	defaultDays = 1825
)

// Config is the static daemon configuration, assembled by cmd/vpnwarden
// before startup.
type Config struct {
	Log struct {
		Path  string
		Level uint8
	}
	Audit      string
	Script     string
	Settings   string
	Env        string
	OpenVPNDir string
	ClientDir  string
	WG         string
	StatusLogs []string
	WGConfs    []string
	Admins     []int64
	Interval   time.Duration
	Cooldown   time.Duration
}

// Update is one incoming chat event: either a text message or a pressed
// menu button (Callback non-empty).
type Update struct {
	Username   string
	First      string
	Last       string
	Text       string
	Callback   string
	CallbackID string
	ID         int64
	Chat       int64
}

// Source produces incoming updates. The channel closes when the source
// shuts down.
type Source interface {
	Updates(x context.Context) <-chan Update
}

// Sink delivers prompts and artifacts to actors. The core decides what and
// to whom, the sink owns the transport.
type Sink interface {
	Send(x context.Context, chat int64, text string, m *Menu) error
	SendFile(x context.Context, chat int64, path, name, caption string) error
	Alert(x context.Context, id, text string) error
	Ack(x context.Context, id string) error
}
type runner interface {
	Run(x context.Context, op script.Op, args ...string) script.Result
}
type notice struct {
	menu *Menu
	text string
	to   int64
}

// Manager owns all mutable daemon state: the session table, the stores, the
// delivery queue and the monitor wiring.
type Manager struct {
	log      logx.Log
	audit    logx.Log
	sink     Sink
	run      runner
	settings *store.Settings
	env      *store.Env
	deliver  chan notice
	cancel   context.CancelFunc
	ip       string
	Config   Config
	sessions table
}

// New creates a Manager from the supplied configuration and sink. Logs are
// opened here, a bad log path is a startup failure.
func New(c Config, s Sink) (*Manager, error) {
	if len(c.Script) == 0 {
		return nil, xerr.New("lifecycle tool path cannot be empty")
	}
	m := &Manager{Config: c, sink: s, deliver: make(chan notice, 64)}
	if m.log = logx.Multiple(logx.Console(logx.Level(c.Log.Level))); len(c.Log.Path) > 0 {
		f, err := logx.File(c.Log.Path, logx.Level(c.Log.Level))
		if err != nil {
			return nil, xerr.Wrap(`could not create log "`+c.Log.Path+`"`, err)
		}
		m.log.(*logx.Multi).Add(f)
	}
	if m.audit = m.log; len(c.Audit) > 0 {
		f, err := logx.File(c.Audit, logx.Info)
		if err != nil {
			return nil, xerr.Wrap(`could not create audit log "`+c.Audit+`"`, err)
		}
		m.audit = f
	}
	m.settings = &store.Settings{Log: m.log, Path: c.Settings}
	m.env = &store.Env{Log: m.log, Path: c.Env}
	m.run = &script.Gateway{Log: m.log, Path: c.Script}
	m.sessions.m = make(map[int64]*session)
	return m, nil
}

// Run starts the delivery queue, the load watcher and the dispatcher and
// blocks until the context is cancelled or a termination signal arrives.
// Queued notices are drained before returning, nothing accepted is silently
// dropped.
func (m *Manager) Run(x context.Context, src Source) error {
	var (
		w    = make(chan os.Signal, 1)
		y, f = context.WithCancel(x)
	)
	m.cancel = f
	signal.Notify(w, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	m.log.Info("[daemon] Starting up...")
	if len(m.Config.Admins) == 0 {
		m.log.Warning("[daemon] No administrators configured, running in bootstrap mode!")
	}
	m.ip = externalIP(y)
	go m.deliverLoop(y)
	l := &monitor.Loop{
		Log:      m.log,
		Admins:   m.Config.Admins,
		Notify:   m.push,
		Sampler:  monitor.SystemSampler(),
		Settings: m.settings,
		Interval: m.Config.Interval,
		Cooldown: m.Config.Cooldown,
	}
	go l.Run(y)
	go m.startupNotice(y)
	u := src.Updates(y)
	m.log.Info("[daemon] Startup complete!")
loop:
	for {
		select {
		case <-w:
			break loop
		case <-y.Done():
			break loop
		case v, ok := <-u:
			if !ok {
				break loop
			}
			go m.handle(y, v)
		}
	}
	signal.Reset(syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	m.log.Info("[daemon] Shutting down and stopping threads...")
	f()
	for i := len(m.deliver); i > 0; i = len(m.deliver) {
		n := <-m.deliver
		if err := m.sink.Send(context.Background(), n.to, n.text, n.menu); err != nil {
			m.log.Warning("[daemon] Could not deliver queued notice to %d: %s!", n.to, err.Error())
		}
	}
	close(w)
	m.log.Info("[daemon] Shutdown complete.")
	return nil
}

// Logger exposes the manager's log so the transport can share it.
func (m *Manager) Logger() logx.Log {
	return m.log
}

// Monitor returns the online classifier wired to the configured log and
// config paths.
func (m *Manager) online() *monitor.Online {
	return &monitor.Online{Log: m.log, WG: m.Config.WG, Logs: m.Config.StatusLogs, Configs: m.Config.WGConfs}
}
func display(u Update) string {
	if len(u.Last) == 0 {
		return strings.TrimSpace(u.First)
	}
	return strings.TrimSpace(u.First + " " + u.Last)
}
