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
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nameExp = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)
	mapExp  = regexp.MustCompile(`^(\d+)\s*:\s*([A-Za-z0-9_-]{1,32})$`)
)

// parseDays validates a validity period entry, accepted range is one day to
// five years.
func parseDays(s string) (uint16, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil || n < 1 || n > defaultDays {
		return 0, false
	}
	return uint16(n), true
}

// parseThreshold validates a load threshold entry, accepted range is one to
// one hundred percent.
func parseThreshold(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 100 {
		return 0, false
	}
	return n, true
}

// formatDays renders a day count with the correct Russian plural form.
func formatDays(n int) string {
	v := strconv.Itoa(n) + " "
	if d := n % 100; d >= 11 && d <= 14 {
		return v + "дней"
	}
	switch n % 10 {
	case 1:
		return v + "день"
	case 2, 3, 4:
		return v + "дня"
	}
	return v + "дней"
}

// formatSpeed renders a bits-per-second rate with a metric unit.
func formatSpeed(b float64) string {
	switch {
	case b >= 1e9:
		return strconv.FormatFloat(b/1e9, 'f', 1, 64) + " Гбит/с"
	case b >= 1e6:
		return strconv.FormatFloat(b/1e6, 'f', 1, 64) + " Мбит/с"
	case b >= 1e3:
		return strconv.FormatFloat(b/1e3, 'f', 1, 64) + " Кбит/с"
	}
	return strconv.FormatFloat(b, 'f', 0, 64) + " бит/с"
}

// formatBytes renders a byte count in binary units, used by the stats view.
func formatBytes(b uint64) string {
	switch {
	case b >= 1<<30:
		return strconv.FormatFloat(float64(b)/(1<<30), 'f', 1, 64) + " ГБ"
	case b >= 1<<20:
		return strconv.FormatFloat(float64(b)/(1<<20), 'f', 1, 64) + " МБ"
	case b >= 1<<10:
		return strconv.FormatFloat(float64(b)/(1<<10), 'f', 1, 64) + " КБ"
	}
	return strconv.FormatUint(b, 10) + " Б"
}

// formatUptime renders a duration as days, hours and minutes.
func formatUptime(d time.Duration) string {
	var (
		t = int(d / time.Minute)
		b strings.Builder
	)
	if v := t / (24 * 60); v > 0 {
		b.WriteString(strconv.Itoa(v) + " д ")
	}
	if v := (t / 60) % 24; v > 0 || b.Len() > 0 {
		b.WriteString(strconv.Itoa(v) + " ч ")
	}
	b.WriteString(strconv.Itoa(t%60) + " мин")
	return b.String()
}

// pages returns the page count for a roster of n entries.
func pages(n int) int {
	if n == 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}
