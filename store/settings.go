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

// Package store persists operator metadata, load thresholds and the
// client/actor mapping. Both stores read and rewrite their backing file
// whole on every access, a missing or malformed file is treated as an empty
// document and never surfaced to the operator.
package store

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"

	"github.com/PurpleSec/logx"
)

// Default alert thresholds, used until an administrator sets their own.
const (
	DefaultCPUThreshold    = 80
	DefaultMemoryThreshold = 80
)

// Admin is the persisted per-administrator record. The two notification
// flags are independent and default to enabled.
type Admin struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Notify      bool   `json:"notify_enabled"`
	NotifyLoad  bool   `json:"notify_load_enabled"`
}
type document struct {
	Admins     map[string]Admin `json:"telegram_admins"`
	Thresholds *thresholds      `json:"load_thresholds,omitempty"`
}
type thresholds struct {
	CPU    int `json:"cpu"`
	Memory int `json:"memory"`
}

// Settings is the keyed settings document. All mutations are whole-document
// read-modify-writes under a single lock so concurrent updates cannot drop
// each other's fields.
type Settings struct {
	Log  logx.Log
	Path string
	lock sync.Mutex
}

func (s *Settings) load() document {
	var d document
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.Log.Warning(`[store] Could not read settings "%s": %s!`, s.Path, err.Error())
		}
	} else if err = json.Unmarshal(b, &d); err != nil {
		s.Log.Error(`[store] Could not parse settings "%s": %s!`, s.Path, err.Error())
		d = document{}
	}
	if d.Admins == nil {
		d.Admins = make(map[string]Admin)
	}
	return d
}
func (s *Settings) save(d document) {
	b, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		s.Log.Error("[store] Could not marshal settings: %s!", err.Error())
		return
	}
	if err = os.WriteFile(s.Path, append(b, '\n'), 0600); err != nil {
		s.Log.Error(`[store] Could not write settings "%s": %s!`, s.Path, err.Error())
	}
}

// Admin returns the stored record for the actor id. Unknown actors get the
// defaults (both notification flags on).
func (s *Settings) Admin(id int64) Admin {
	s.lock.Lock()
	d := s.load()
	s.lock.Unlock()
	if v, ok := d.Admins[strconv.FormatInt(id, 10)]; ok {
		return v
	}
	return Admin{Notify: true, NotifyLoad: true}
}

// Upsert refreshes the display metadata for the actor, creating the record
// on first contact. Notification flags are preserved, empty metadata never
// overwrites previously known values.
func (s *Settings) Upsert(id int64, display, username string) {
	s.lock.Lock()
	var (
		d     = s.load()
		k     = strconv.FormatInt(id, 10)
		v, ok = d.Admins[k]
	)
	if !ok {
		v = Admin{Notify: true, NotifyLoad: true}
	}
	if len(display) > 0 {
		v.DisplayName = display
	}
	if len(username) > 0 {
		v.Username = username
	}
	d.Admins[k] = v
	s.save(d)
	s.lock.Unlock()
}

// SetNotify toggles the general notification flag for the actor.
func (s *Settings) SetNotify(id int64, enabled bool) {
	s.lock.Lock()
	var (
		d     = s.load()
		k     = strconv.FormatInt(id, 10)
		v, ok = d.Admins[k]
	)
	if !ok {
		v = Admin{Notify: true, NotifyLoad: true}
	}
	v.Notify = enabled
	d.Admins[k] = v
	s.save(d)
	s.lock.Unlock()
	s.Log.Info("[store] Notifications for admin %d set to %t.", id, enabled)
}

// SetNotifyLoad toggles the load alert flag for the actor.
func (s *Settings) SetNotifyLoad(id int64, enabled bool) {
	s.lock.Lock()
	var (
		d     = s.load()
		k     = strconv.FormatInt(id, 10)
		v, ok = d.Admins[k]
	)
	if !ok {
		v = Admin{Notify: true, NotifyLoad: true}
	}
	v.NotifyLoad = enabled
	d.Admins[k] = v
	s.save(d)
	s.lock.Unlock()
	s.Log.Info("[store] Load notifications for admin %d set to %t.", id, enabled)
}

// Thresholds returns the configured load thresholds, falling back to the
// defaults when unset.
func (s *Settings) Thresholds() (int, int) {
	s.lock.Lock()
	d := s.load()
	s.lock.Unlock()
	if d.Thresholds == nil {
		return DefaultCPUThreshold, DefaultMemoryThreshold
	}
	c, m := d.Thresholds.CPU, d.Thresholds.Memory
	if c <= 0 {
		c = DefaultCPUThreshold
	}
	if m <= 0 {
		m = DefaultMemoryThreshold
	}
	return c, m
}

// SetThresholds updates the load thresholds. Either value may be negative to
// leave it unchanged, both are settable independently.
func (s *Settings) SetThresholds(cpu, memory int) {
	s.lock.Lock()
	d := s.load()
	if d.Thresholds == nil {
		d.Thresholds = &thresholds{CPU: DefaultCPUThreshold, Memory: DefaultMemoryThreshold}
	}
	if cpu > 0 {
		d.Thresholds.CPU = cpu
	}
	if memory > 0 {
		d.Thresholds.Memory = memory
	}
	s.save(d)
	s.lock.Unlock()
	s.Log.Info("[store] Load thresholds updated: cpu=%d, memory=%d.", cpu, memory)
}

// Label returns "@username" when the actor's username is known, otherwise
// the numeric id.
func (s *Settings) Label(id int64) string {
	if v := s.Admin(id); len(v.Username) > 0 {
		return "@" + v.Username
	}
	return strconv.FormatInt(id, 10)
}
