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

package models

import "github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"

// Session states on the wire.
const (
	SessionStateUnlocked   = "Unlocked"
	SessionStateLocked     = "Locked"
	SessionStateUnlockable = "Unlockable"
)

// Session state reasons on the wire.
const (
	ReasonBreakTimer        = "BreakTimer"
	ReasonRequirementNotMet = "RequirementNotMet"
	ReasonLockedTimeRange   = "LockedTimeRange"
	ReasonNoConstraints     = "NoConstraints"
)

// ReasonObject credits the current session state to a single constraint.
// ID is present for the RequirementNotMet and LockedTimeRange types.
type ReasonObject struct {
	ID   *uint64 `json:"id,omitempty"`
	Type string  `json:"type"`
}

type RequirementResponse struct {
	Name     string            `json:"name"`
	ID       uint64            `json:"id"`
	Due      daytime.Timestamp `json:"due"`
	Complete bool              `json:"complete"`
}

type TimeRangeResponse struct {
	Start *daytime.Timestamp `json:"start"`
	End   *daytime.Timestamp `json:"end"`
	ID    uint64             `json:"id"`
}

// SessionResponse is the result of the session method and the payload of
// session.changed notifications.
type SessionResponse struct {
	Until            *daytime.Timestamp    `json:"until"`
	State            string                `json:"state"`
	Reason           ReasonObject          `json:"reason"`
	LockedTimeRanges []TimeRangeResponse   `json:"locked_time_ranges"`
	Requirements     []RequirementResponse `json:"requirements"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}
