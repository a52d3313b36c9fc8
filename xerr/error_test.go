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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New("something broke")
	require.EqualError(t, e, "something broke")
	require.True(t, errors.Is(e, New("something broke")))
	require.False(t, errors.Is(e, New("something else")))
}
func TestWrap(t *testing.T) {
	var (
		i = New("inner")
		w = Wrap("outer", i)
	)
	require.EqualError(t, w, "outer: inner")
	require.True(t, errors.Is(w, i))
	require.Equal(t, i, errors.Unwrap(w))
}
func TestWrapNil(t *testing.T) {
	require.EqualError(t, Wrap("outer", nil), "outer")
}
