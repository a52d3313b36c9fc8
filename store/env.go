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

package store

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/PurpleSec/logx"
)

// Reserved key in the .env file holding the actor/client mapping as a
// comma-separated list of "actorID:clientName" pairs.
const mappingKey = "CLIENT_MAPPING"

// Env is the line-oriented key/value store backed by the deployment's .env
// file. Updates rewrite only the targeted keys, comments, blank lines and
// unrelated entries keep their position and content.
type Env struct {
	Log  logx.Log
	Path string
	lock sync.Mutex
}

// Values reads the file into a key/value map. A missing file is an expected
// condition and yields an empty map.
func (e *Env) Values() map[string]string {
	r := make(map[string]string)
	b, err := os.ReadFile(e.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			e.Log.Warning(`[store] Could not read env file "%s": %s!`, e.Path, err.Error())
		}
		return r
	}
	for _, v := range strings.Split(string(b), "\n") {
		if v = strings.TrimSpace(v); len(v) == 0 || v[0] == '#' {
			continue
		}
		p := strings.IndexByte(v, '=')
		if p <= 0 {
			continue
		}
		r[strings.TrimSpace(v[:p])] = strings.TrimSpace(v[p+1:])
	}
	return r
}

// Update rewrites the supplied keys in place, appending any that do not yet
// exist. Everything else in the file is left untouched.
func (e *Env) Update(u map[string]string) error {
	if len(u) == 0 {
		return nil
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	var l []string
	if b, err := os.ReadFile(e.Path); err == nil {
		l = strings.Split(string(b), "\n")
		if n := len(l); n > 0 && len(l[n-1]) == 0 {
			l = l[:n-1]
		}
	} else if !os.IsNotExist(err) {
		e.Log.Warning(`[store] Could not read env file "%s": %s!`, e.Path, err.Error())
	}
	var (
		d = make(map[string]bool, len(u))
		o = make([]string, 0, len(l)+len(u))
	)
	for i := range l {
		v := strings.TrimSpace(l[i])
		if len(v) == 0 || v[0] == '#' {
			o = append(o, l[i])
			continue
		}
		p := strings.IndexByte(l[i], '=')
		if p <= 0 {
			o = append(o, l[i])
			continue
		}
		k := strings.TrimSpace(l[i][:p])
		if n, ok := u[k]; ok {
			o = append(o, k+"="+n)
			d[k] = true
			continue
		}
		o = append(o, l[i])
	}
	k := make([]string, 0, len(u))
	for v := range u {
		if !d[v] {
			k = append(k, v)
		}
	}
	sort.Strings(k)
	for i := range k {
		o = append(o, k[i]+"="+u[k[i]])
	}
	return os.WriteFile(e.Path, []byte(strings.Join(o, "\n")+"\n"), 0600)
}

// Mapping parses the reserved key into an actorID to clientName map. Broken
// pairs are skipped, never fatal.
func (e *Env) Mapping() map[int64]string {
	var (
		r = make(map[int64]string)
		v = e.Values()[mappingKey]
	)
	if len(v) == 0 {
		return r
	}
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); len(p) == 0 {
			continue
		}
		i := strings.IndexByte(p, ':')
		if i <= 0 || i == len(p)-1 {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(p[:i]), 10, 64)
		if err != nil {
			continue
		}
		if c := strings.TrimSpace(p[i+1:]); len(c) > 0 {
			r[n] = c
		}
	}
	return r
}

// ClientFor resolves the client name mapped to the actor id, empty when the
// actor has no mapping.
func (e *Env) ClientFor(id int64) string {
	return e.Mapping()[id]
}

// SetMapping binds the actor id to the client name, replacing any previous
// binding for that id. Client name uniqueness is not enforced.
func (e *Env) SetMapping(id int64, name string) error {
	m := e.Mapping()
	m[id] = name
	if err := e.Update(map[string]string{mappingKey: serialize(m)}); err != nil {
		return err
	}
	e.Log.Info("[store] Client mapping set: %d -> %q.", id, name)
	return nil
}

// RemoveMapping deletes the binding for the actor id, a no-op when none
// exists.
func (e *Env) RemoveMapping(id int64) error {
	m := e.Mapping()
	if _, ok := m[id]; !ok {
		return nil
	}
	delete(m, id)
	if err := e.Update(map[string]string{mappingKey: serialize(m)}); err != nil {
		return err
	}
	e.Log.Info("[store] Client mapping removed for %d.", id)
	return nil
}
func serialize(m map[int64]string) string {
	k := make([]int64, 0, len(m))
	for v := range m {
		k = append(k, v)
	}
	sort.Slice(k, func(i, j int) bool { return k[i] < k[j] })
	var b strings.Builder
	for i := range k {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(k[i], 10))
		b.WriteByte(':')
		b.WriteString(m[k[i]])
	}
	return b.String()
}
