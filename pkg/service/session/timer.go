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

package session

import (
	"errors"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
)

//nolint:staticcheck // user-visible messages
var (
	errTimerLocked          = errors.New("Break timer is locked.")
	errTimerAlreadyUnlocked = errors.New("Break timer is already unlocked.")
	errTimerNotUnlocked     = errors.New("Break timer is not unlocked.")
)

type timerPhase int

const (
	phaseUnlocked timerPhase = iota
	phaseLocked
	phaseUnlockable
)

// breakTimer alternates between work and break phases of configured
// durations. Phase progression on the timeline is monotonic:
// Unlocked -> Locked -> Unlockable, and back to Unlocked only by an explicit
// unlock. The until field is meaningful in the Unlocked and Locked phases.
type breakTimer struct {
	phase       timerPhase
	until       daytime.Timestamp
	workPeriod  time.Duration
	breakPeriod time.Duration
}

func newBreakTimer(workPeriod, breakPeriod time.Duration) *breakTimer {
	return &breakTimer{
		phase:       phaseUnlockable,
		workPeriod:  workPeriod,
		breakPeriod: breakPeriod,
	}
}

// setDurations applies the current configuration. Takes effect on the next
// phase change; an in-flight until is left alone.
func (b *breakTimer) setDurations(workPeriod, breakPeriod time.Duration) {
	b.workPeriod = workPeriod
	b.breakPeriod = breakPeriod
}

// refresh applies the automatic transitions due by now. Both may fire within
// one call if now is far enough past the unlocked phase's end.
func (b *breakTimer) refresh(now daytime.Timestamp) {
	if b.phase == phaseUnlocked && now >= b.until {
		b.phase = phaseLocked
		b.until = b.until.Add(b.breakPeriod)
	}
	if b.phase == phaseLocked && now >= b.until {
		b.phase = phaseUnlockable
	}
}

// unlock starts a work period. Succeeds only from the Unlockable phase.
func (b *breakTimer) unlock(now daytime.Timestamp) error {
	b.refresh(now)
	switch b.phase {
	case phaseUnlockable:
		b.phase = phaseUnlocked
		b.until = now.Add(b.workPeriod)
		return nil
	case phaseLocked:
		return errTimerLocked
	default:
		return errTimerAlreadyUnlocked
	}
}

// lock ends the work period early and starts the break. Succeeds only from
// the Unlocked phase.
func (b *breakTimer) lock(now daytime.Timestamp) error {
	b.refresh(now)
	if b.phase != phaseUnlocked {
		return errTimerNotUnlocked
	}
	b.phase = phaseLocked
	b.until = now.Add(b.breakPeriod)
	return nil
}

// lockIfUnlocked is a best-effort lock; it never signals failure. Used to
// collapse a dangling work period the moment the session is observed
// restricted, so the break clock starts ticking at once.
func (b *breakTimer) lockIfUnlocked(now daytime.Timestamp) {
	_ = b.lock(now)
}
