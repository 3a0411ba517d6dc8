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
	"testing"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWorkPeriod = 25 * time.Minute
	testBreak      = 5 * time.Minute
)

func TestBreakTimerStartsUnlockable(t *testing.T) {
	t.Parallel()

	b := newBreakTimer(testWorkPeriod, testBreak)
	assert.Equal(t, phaseUnlockable, b.phase)
}

func TestBreakTimerUnlockCycle(t *testing.T) {
	t.Parallel()

	b := newBreakTimer(testWorkPeriod, testBreak)

	require.NoError(t, b.unlock(0))
	assert.Equal(t, phaseUnlocked, b.phase)
	assert.Equal(t, daytime.Timestamp(1500), b.until)

	// Work period ends: the break starts ticking from the scheduled end,
	// not from the observation time.
	b.refresh(1600)
	assert.Equal(t, phaseLocked, b.phase)
	assert.Equal(t, daytime.Timestamp(1800), b.until)

	b.refresh(1800)
	assert.Equal(t, phaseUnlockable, b.phase)
}

func TestBreakTimerRefreshChainsBothTransitions(t *testing.T) {
	t.Parallel()

	b := newBreakTimer(testWorkPeriod, testBreak)
	require.NoError(t, b.unlock(0))

	// Far enough in the future that Unlocked -> Locked -> Unlockable both
	// fire within one refresh.
	b.refresh(10_000)
	assert.Equal(t, phaseUnlockable, b.phase)
}

func TestBreakTimerUnlockErrors(t *testing.T) {
	t.Parallel()

	b := newBreakTimer(testWorkPeriod, testBreak)
	require.NoError(t, b.unlock(0))

	err := b.unlock(10)
	require.EqualError(t, err, "Break timer is already unlocked.")

	b.refresh(1500)
	err = b.unlock(1500)
	require.EqualError(t, err, "Break timer is locked.")
}

func TestBreakTimerExplicitLock(t *testing.T) {
	t.Parallel()

	b := newBreakTimer(testWorkPeriod, testBreak)
	require.NoError(t, b.unlock(0))

	// An explicit lock cuts the work period short; the break runs from the
	// lock time.
	require.NoError(t, b.lock(600))
	assert.Equal(t, phaseLocked, b.phase)
	assert.Equal(t, daytime.Timestamp(900), b.until)

	err := b.lock(901)
	require.EqualError(t, err, "Break timer is not unlocked.")
}

func TestBreakTimerLockIfUnlocked(t *testing.T) {
	t.Parallel()

	b := newBreakTimer(testWorkPeriod, testBreak)

	// Never fails, even when not unlocked.
	b.lockIfUnlocked(0)
	assert.Equal(t, phaseUnlockable, b.phase)

	require.NoError(t, b.unlock(0))
	b.lockIfUnlocked(100)
	assert.Equal(t, phaseLocked, b.phase)
	assert.Equal(t, daytime.Timestamp(400), b.until)
}

func TestBreakTimerAutoLockUsesScheduledEnd(t *testing.T) {
	t.Parallel()

	b := newBreakTimer(testWorkPeriod, testBreak)
	require.NoError(t, b.unlock(0))

	// Observed exactly at the boundary.
	b.refresh(1500)
	assert.Equal(t, phaseLocked, b.phase)
	assert.Equal(t, daytime.Timestamp(1800), b.until)
}
