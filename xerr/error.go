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

package xerr

type wrapErr struct {
	e error
	s string
}
type strErr string

// New creates a new string backed error struct and returns it.
//
// The resulting values are comparable and usable as sentinels with
// 'errors.Is'.
func New(s string) error {
	return strErr(s)
}
func (e strErr) Error() string {
	return string(e)
}
func (e wrapErr) Unwrap() error {
	return e.e
}
func (e wrapErr) Error() string {
	if e.e == nil {
		return e.s
	}
	return e.s + ": " + e.e.Error()
}

// Wrap creates a new error that prefixes the supplied error with the string
// message. The wrapped error is reachable via 'errors.Unwrap'.
func Wrap(s string, e error) error {
	return &wrapErr{s: s, e: e}
}
