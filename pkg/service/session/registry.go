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

import "fmt"

// registry holds the current day's constraints. It is rebuilt from the
// configuration templates at every day rollover, so explicitly added
// requirements live until the next rollover only.
type registry struct {
	requirements     []Requirement
	lockedTimeRanges []TimeRange
}

func (r *registry) completeRequirement(id uint64) error {
	for i := range r.requirements {
		if r.requirements[i].ID != id {
			continue
		}
		if r.requirements[i].Complete {
			//nolint:staticcheck // user-visible message
			return fmt.Errorf("Requirement %d has already been completed.", id)
		}
		r.requirements[i].Complete = true
		return nil
	}
	//nolint:staticcheck // user-visible message
	return fmt.Errorf("Requirement %d not found.", id)
}

// snapshot returns copies safe to hand to clients.
func (r *registry) snapshot() (ranges []TimeRange, requirements []Requirement) {
	ranges = make([]TimeRange, len(r.lockedTimeRanges))
	copy(ranges, r.lockedTimeRanges)
	requirements = make([]Requirement, len(r.requirements))
	copy(requirements, r.requirements)
	return ranges, requirements
}
