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

// Package session implements the state evaluation engine: the break-timer
// machine, the per-day constraint registry, the transition simulator and the
// manager that owns them behind a single lock.
package session

import (
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
)

// State is the composed session state.
type State int

const (
	// StateUnlocked means free use.
	StateUnlocked State = iota
	// StateLocked means forcibly restricted.
	StateLocked
	// StateUnlockable means restricted, but an explicit unlock would succeed.
	StateUnlockable
)

// String returns the wire representation of the state.
func (s State) String() string {
	return [...]string{
		models.SessionStateUnlocked,
		models.SessionStateLocked,
		models.SessionStateUnlockable,
	}[s]
}

// ReasonKind discriminates what a session state is attributed to.
type ReasonKind int

const (
	// ReasonNoConstraints means nothing restricts the session.
	ReasonNoConstraints ReasonKind = iota
	// ReasonBreakTimer attributes the state to the break timer.
	ReasonBreakTimer
	// ReasonRequirementNotMet attributes the state to an overdue requirement.
	ReasonRequirementNotMet
	// ReasonLockedTimeRange attributes the state to a forbidden-use window.
	ReasonLockedTimeRange
)

// Reason is the single constraint credited for the current state. ID is
// meaningful for ReasonRequirementNotMet and ReasonLockedTimeRange.
type Reason struct {
	Kind ReasonKind
	ID   uint64
}

// Requirement is a task with a deadline. Once the deadline passes without
// completion it locks the session until completed.
type Requirement struct {
	Name     string
	ID       uint64
	Due      daytime.Timestamp
	Complete bool
}

// TimeRange is an interval during which the session is forcibly locked. A
// nil Start means "since the beginning of the timeline", a nil End means "no
// scheduled end".
type TimeRange struct {
	Start *daytime.Timestamp
	End   *daytime.Timestamp
	ID    uint64
}

// CurrentInfo is the result of one refresh: the composed state, the earliest
// future time at which it must change on its own (nil if never), the
// constraint credited for it, and snapshot copies of the day's constraints.
type CurrentInfo struct {
	Until            *daytime.Timestamp
	State            State
	Reason           Reason
	LockedTimeRanges []TimeRange
	Requirements     []Requirement
}

// Response renders the info in its wire shape.
//
//nolint:gocritic // snapshot copied into the response
func (i CurrentInfo) Response() models.SessionResponse {
	reason := models.ReasonObject{Type: models.ReasonNoConstraints}
	switch i.Reason.Kind {
	case ReasonBreakTimer:
		reason.Type = models.ReasonBreakTimer
	case ReasonRequirementNotMet:
		id := i.Reason.ID
		reason = models.ReasonObject{Type: models.ReasonRequirementNotMet, ID: &id}
	case ReasonLockedTimeRange:
		id := i.Reason.ID
		reason = models.ReasonObject{Type: models.ReasonLockedTimeRange, ID: &id}
	case ReasonNoConstraints:
	}

	ltrs := make([]models.TimeRangeResponse, 0, len(i.LockedTimeRanges))
	for _, ltr := range i.LockedTimeRanges {
		ltrs = append(ltrs, models.TimeRangeResponse{
			ID:    ltr.ID,
			Start: ltr.Start,
			End:   ltr.End,
		})
	}

	reqs := make([]models.RequirementResponse, 0, len(i.Requirements))
	for _, req := range i.Requirements {
		reqs = append(reqs, models.RequirementResponse{
			ID:       req.ID,
			Name:     req.Name,
			Due:      req.Due,
			Complete: req.Complete,
		})
	}

	return models.SessionResponse{
		State:            i.State.String(),
		Until:            i.Until,
		Reason:           reason,
		LockedTimeRanges: ltrs,
		Requirements:     reqs,
	}
}
