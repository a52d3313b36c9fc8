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
	"sync"

	"vpnwarden/script"
)

type state uint8

// Conversation states. Every state past stateIdle was entered through a menu
// action that stamped the session scratch fields it depends on.
const (
	stateIdle state = iota
	stateChoosingOption
	stateEnteringName
	stateEnteringDays
	stateDeletingClient
	stateListForDelete
	stateChoosingConfig
	stateChoosingProtocol
	stateChoosingWgType
	stateConfirmRename
	stateEnteringMapping
	stateEnteringCPU
	stateEnteringMemory
)

// session is the per-actor conversation record. The lock serializes an
// actor's transitions, it is released around external process calls and the
// epoch counter is used to discard results that land after a reset.
type session struct {
	action   script.Op
	client   string
	iface    string
	file     string
	original string
	short    string
	lock     sync.Mutex
	epoch    uint64
	family   script.Family
	state    state
	owned    bool
}
type table struct {
	m    map[int64]*session
	lock sync.Mutex
}

// reset clears the conversation back to idle and bumps the epoch so any
// in-flight external result against the old conversation is dropped.
func (s *session) reset() {
	s.epoch++
	s.state, s.action, s.family = stateIdle, "", 0
	s.client, s.iface, s.owned = "", "", false
	s.file, s.original, s.short = "", "", ""
}
func (t *table) get(i int64) *session {
	t.lock.Lock()
	s, ok := t.m[i]
	if !ok {
		s = new(session)
		t.m[i] = s
	}
	t.lock.Unlock()
	return s
}
func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateChoosingOption:
		return "choosing_option"
	case stateEnteringName:
		return "entering_name"
	case stateEnteringDays:
		return "entering_days"
	case stateDeletingClient:
		return "deleting_client"
	case stateListForDelete:
		return "list_for_delete"
	case stateChoosingConfig:
		return "choosing_config_type"
	case stateChoosingProtocol:
		return "choosing_protocol"
	case stateChoosingWgType:
		return "choosing_wg_type"
	case stateConfirmRename:
		return "confirming_rename"
	case stateEnteringMapping:
		return "entering_mapping"
	case stateEnteringCPU:
		return "entering_cpu_threshold"
	case stateEnteringMemory:
		return "entering_memory_threshold"
	}
	return "invalid"
}
