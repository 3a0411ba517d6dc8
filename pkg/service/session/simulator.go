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
	"fmt"
	"sort"

	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
)

// Invariant violations in the event feed. They indicate the manager produced
// an inconsistent feed and abort the refresh.
var (
	ErrLockNotFound  = errors.New("lock not found")
	ErrDuplicateLock = errors.New("duplicate lock")
)

type changeKind int

const (
	kindBreakTimerUnlockable changeKind = iota
	kindBreakTimerLocked
	kindRangeLocked
	kindRangeUnlocked
	kindRequirementLocked
)

// stateChange is a timestamped transition of one of the three parallel
// sub-states. ID is meaningful for the range and requirement kinds.
type stateChange struct {
	kind changeKind
	id   uint64
	time daytime.Timestamp
}

func (c stateChange) reason() Reason {
	switch c.kind {
	case kindBreakTimerUnlockable, kindBreakTimerLocked:
		return Reason{Kind: ReasonBreakTimer}
	case kindRangeLocked, kindRangeUnlocked:
		return Reason{Kind: ReasonLockedTimeRange, ID: c.id}
	default:
		return Reason{Kind: ReasonRequirementNotMet, ID: c.id}
	}
}

// lockSet is an id set ordered by insertion. Order matters: the first
// still-held lock wins when attributing a reason.
type lockSet []uint64

func (l *lockSet) add(id uint64) error {
	for _, lockID := range *l {
		if lockID == id {
			return fmt.Errorf("%w: %d", ErrDuplicateLock, id)
		}
	}
	*l = append(*l, id)
	return nil
}

func (l *lockSet) remove(id uint64) error {
	for i, lockID := range *l {
		if lockID == id {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrLockNotFound, id)
}

func (l lockSet) empty() bool {
	return len(l) == 0
}

type simResult struct {
	until  *daytime.Timestamp
	state  State
	reason Reason
}

// simulator replays a multiset of state changes over the timeline to find
// the state at a target time and the first moment it must change afterwards.
type simulator struct {
	changes []stateChange
}

func (s *simulator) push(c stateChange) {
	s.changes = append(s.changes, c)
}

// run computes the composed state as of target, the time of the first
// composed-state transition after target (nil if none is scheduled), and the
// reason attributed to the state.
//
// The composed state is Locked whenever any range or requirement lock is
// held, regardless of the break timer; otherwise it is the break timer's
// state. The stable sort preserves push order among equal times, which is
// what gives requirements, then ranges, then the break timer priority when
// attributing a reason to coinciding changes.
func (s *simulator) run(target daytime.Timestamp) (simResult, error) {
	sort.SliceStable(s.changes, func(i, j int) bool {
		return s.changes[i].time < s.changes[j].time
	})

	var lockedRanges, lockedRequirements lockSet
	// The live sets keep mutating while scanning past target for a
	// transition, so the sets as of target are snapshotted separately: the
	// settled reason must credit a constraint active at target, not one
	// already released by a later event.
	var rangesAtTarget, requirementsAtTarget lockSet
	breakTimerState := StateUnlocked
	state := StateUnlocked
	// Once the first transition after target is found, the rest of the feed
	// is still replayed so that invariant violations anywhere in it surface.
	var transition *simResult

	for _, change := range s.changes {
		switch change.kind {
		case kindBreakTimerUnlockable:
			breakTimerState = StateUnlockable
		case kindBreakTimerLocked:
			breakTimerState = StateLocked
		case kindRangeLocked:
			if err := lockedRanges.add(change.id); err != nil {
				return simResult{}, err
			}
		case kindRangeUnlocked:
			if err := lockedRanges.remove(change.id); err != nil {
				return simResult{}, err
			}
		case kindRequirementLocked:
			if err := lockedRequirements.add(change.id); err != nil {
				return simResult{}, err
			}
		}
		if transition != nil {
			continue
		}

		after := composeState(lockedRanges, lockedRequirements, breakTimerState)
		if change.time <= target {
			rangesAtTarget = append(rangesAtTarget[:0], lockedRanges...)
			requirementsAtTarget = append(requirementsAtTarget[:0], lockedRequirements...)
		}
		if after == state {
			continue
		}
		if change.time > target {
			until := change.time
			transition = &simResult{
				state:  state,
				until:  &until,
				reason: change.reason(),
			}
			continue
		}
		state = after
	}

	if transition != nil {
		return *transition, nil
	}
	return simResult{
		state:  state,
		reason: settledReason(state, requirementsAtTarget, rangesAtTarget),
	}, nil
}

func composeState(lockedRanges, lockedRequirements lockSet, breakTimerState State) State {
	if lockedRanges.empty() && lockedRequirements.empty() {
		return breakTimerState
	}
	return StateLocked
}

// settledReason attributes a state with no scheduled transition, from the
// lock sets as they stood at the target time: an overdue requirement
// outranks an active range, which outranks the break timer.
func settledReason(state State, lockedRequirements, lockedRanges lockSet) Reason {
	switch state {
	case StateUnlocked:
		return Reason{Kind: ReasonNoConstraints}
	case StateUnlockable:
		return Reason{Kind: ReasonBreakTimer}
	default:
		if !lockedRequirements.empty() {
			return Reason{Kind: ReasonRequirementNotMet, ID: lockedRequirements[0]}
		}
		if !lockedRanges.empty() {
			return Reason{Kind: ReasonLockedTimeRange, ID: lockedRanges[0]}
		}
		return Reason{Kind: ReasonBreakTimer}
	}
}
