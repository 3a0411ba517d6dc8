// Diagonator Core
// Copyright (c) 2026 The Diagonator Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Diagonator Core.
//
// Diagonator Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Diagonator Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Diagonator Core.  If not, see <http://www.gnu.org/licenses/>.

// Package daytime provides the second-resolution time values used by the
// session engine: absolute timestamps, local calendar dates and wall-clock
// "HH:MM" times from configuration.
package daytime

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Timestamp is an absolute point in time as whole seconds since the Unix
// epoch. It is the only time representation the session engine computes with.
type Timestamp int64

// Zero is the minimum Timestamp.
const Zero Timestamp = 0

// FromTime truncates a time.Time to a Timestamp.
func FromTime(t time.Time) Timestamp {
	return Timestamp(t.Unix())
}

// Add returns the timestamp offset by d, truncated to whole seconds.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d/time.Second)
}

// Time converts the timestamp to a time.Time in loc.
func (t Timestamp) Time(loc *time.Location) time.Time {
	return time.Unix(int64(t), 0).In(loc)
}

// Date returns the calendar date the timestamp falls on in loc.
func (t Timestamp) Date(loc *time.Location) LocalDate {
	y, m, d := t.Time(loc).Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// LocalDate is a calendar date in the daemon's local time zone.
type LocalDate struct {
	Month time.Month
	Year  int
	Day   int
}

// At lifts a wall-clock time on this date to an absolute Timestamp in loc.
func (d LocalDate) At(hm HourMinute, loc *time.Location) Timestamp {
	return FromTime(time.Date(d.Year, d.Month, d.Day, hm.Hour, hm.Minute, 0, 0, loc))
}

// AtOpt is At for an optional wall-clock time.
func (d LocalDate) AtOpt(hm *HourMinute, loc *time.Location) *Timestamp {
	if hm == nil {
		return nil
	}
	ts := d.At(*hm, loc)
	return &ts
}

// HourMinute is a wall-clock time of day. The text form is "HH:MM" with a
// one or two digit hour.
type HourMinute struct {
	Hour   int
	Minute int
}

var hourMinuteRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseHourMinute parses "HH:MM" with hour 0-23 and minute 0-59.
func ParseHourMinute(s string) (HourMinute, error) {
	m := hourMinuteRe.FindStringSubmatch(s)
	if m == nil {
		return HourMinute{}, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return HourMinute{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil {
		return HourMinute{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour > 23 {
		return HourMinute{}, fmt.Errorf("invalid time of day %q: hour out of range", s)
	}
	if minute > 59 {
		return HourMinute{}, fmt.Errorf("invalid time of day %q: minute out of range", s)
	}
	return HourMinute{Hour: hour, Minute: minute}, nil
}

// String formats the time as zero-padded "HH:MM".
func (hm HourMinute) String() string {
	return fmt.Sprintf("%02d:%02d", hm.Hour, hm.Minute)
}

// MarshalText implements encoding.TextMarshaler so the same type works in
// both TOML config values and JSON-RPC params.
func (hm HourMinute) MarshalText() ([]byte, error) {
	return []byte(hm.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (hm *HourMinute) UnmarshalText(text []byte) error {
	parsed, err := ParseHourMinute(string(text))
	if err != nil {
		return err
	}
	*hm = parsed
	return nil
}
