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

	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Unlocked", StateUnlocked.String())
	assert.Equal(t, "Locked", StateLocked.String())
	assert.Equal(t, "Unlockable", StateUnlockable.String())
}

func TestCurrentInfoResponse(t *testing.T) {
	t.Parallel()

	until := daytime.Timestamp(1500)
	start := daytime.Timestamp(900)
	info := CurrentInfo{
		State:  StateLocked,
		Until:  &until,
		Reason: Reason{Kind: ReasonRequirementNotMet, ID: 4},
		LockedTimeRanges: []TimeRange{
			{ID: 2, Start: &start, End: nil},
		},
		Requirements: []Requirement{
			{ID: 4, Name: "x", Due: 1200, Complete: false},
		},
	}

	resp := info.Response()
	assert.Equal(t, models.SessionStateLocked, resp.State)
	assert.Equal(t, &until, resp.Until)
	assert.Equal(t, models.ReasonRequirementNotMet, resp.Reason.Type)
	require.NotNil(t, resp.Reason.ID)
	assert.Equal(t, uint64(4), *resp.Reason.ID)
	require.Len(t, resp.LockedTimeRanges, 1)
	assert.Equal(t, uint64(2), resp.LockedTimeRanges[0].ID)
	assert.Equal(t, &start, resp.LockedTimeRanges[0].Start)
	assert.Nil(t, resp.LockedTimeRanges[0].End)
	require.Len(t, resp.Requirements, 1)
	assert.Equal(t, "x", resp.Requirements[0].Name)
}

func TestCurrentInfoResponseReasonsWithoutID(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		kind ReasonKind
		want string
	}{
		{kind: ReasonBreakTimer, want: models.ReasonBreakTimer},
		{kind: ReasonNoConstraints, want: models.ReasonNoConstraints},
	} {
		resp := CurrentInfo{State: StateUnlockable, Reason: Reason{Kind: tt.kind}}.Response()
		assert.Equal(t, tt.want, resp.Reason.Type)
		assert.Nil(t, resp.Reason.ID)
	}
}
