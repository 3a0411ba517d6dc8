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

package api

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models/requests"
	"github.com/DiagonatorProject/diagonator-core/pkg/config"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/command"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
	"github.com/DiagonatorProject/diagonator-core/pkg/service/session"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopProcess struct{}

func (nopProcess) Exited() bool     { return false }
func (nopProcess) Terminate() error { return nil }
func (nopProcess) Wait() error      { return nil }

type nopExecutor struct{}

func (nopExecutor) StartProcess(_ string, _ ...string) (command.Process, error) {
	return nopProcess{}, nil
}

func newTestEnv(t *testing.T) requests.RequestEnv {
	t.Helper()

	vals := config.BaseDefaults
	cfg, err := config.NewConfig(t.TempDir(), vals)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC))
	mgr := session.NewManager(cfg, nopExecutor{}, clock, time.UTC, nil)

	return requests.RequestEnv{
		Config:  cfg,
		Manager: mgr,
		IsLocal: true,
	}
}

func request(t *testing.T, method, params string) []byte {
	t.Helper()
	id := uuid.New()
	raw := fmt.Sprintf(`{"jsonrpc":"2.0","id":%q,"method":%q`, id.String(), method)
	if params != "" {
		raw += `,"params":` + params
	}
	raw += "}"
	return []byte(raw)
}

func TestMethodMap(t *testing.T) {
	t.Parallel()

	m := NewMethodMap()

	_, ok := m.GetMethod(models.MethodSession)
	assert.True(t, ok)
	_, ok = m.GetMethod("SESSION")
	assert.True(t, ok, "method lookup is case-insensitive")
	_, ok = m.GetMethod("nope")
	assert.False(t, ok)

	err := m.AddMethod(models.MethodSession, nil)
	require.ErrorContains(t, err, "already exists")

	err = m.AddMethod("Bad Name", nil)
	require.ErrorContains(t, err, "invalid characters")

	err = m.AddMethod("", nil)
	require.Error(t, err)
}

func TestProcessRequestObjectParseError(t *testing.T) {
	t.Parallel()

	id, resp, rpcErr := processRequestObject(NewMethodMap(), newTestEnv(t), []byte("{not json"))
	assert.Equal(t, uuid.Nil, id)
	assert.Nil(t, resp)
	require.NotNil(t, rpcErr)
	assert.Equal(t, JSONRPCErrorParseError.Code, rpcErr.Code)
}

func TestProcessRequestObjectBadVersion(t *testing.T) {
	t.Parallel()

	msg := []byte(`{"jsonrpc":"1.0","id":"` + uuid.NewString() + `","method":"session"}`)
	_, _, rpcErr := processRequestObject(NewMethodMap(), newTestEnv(t), msg)
	require.NotNil(t, rpcErr)
	assert.Equal(t, JSONRPCErrorInvalidRequest.Code, rpcErr.Code)
}

func TestProcessRequestObjectUnknownMethod(t *testing.T) {
	t.Parallel()

	_, _, rpcErr := processRequestObject(NewMethodMap(), newTestEnv(t), request(t, "bogus", ""))
	require.NotNil(t, rpcErr)
	assert.Equal(t, JSONRPCErrorMethodNotFound.Code, rpcErr.Code)
}

func TestProcessRequestObjectSession(t *testing.T) {
	t.Parallel()

	id, resp, rpcErr := processRequestObject(
		NewMethodMap(), newTestEnv(t), request(t, models.MethodSession, ""))
	require.Nil(t, rpcErr)
	assert.NotEqual(t, uuid.Nil, id)

	info, ok := resp.(models.SessionResponse)
	require.True(t, ok)
	assert.Equal(t, models.SessionStateUnlockable, info.State)
	assert.Nil(t, info.Until)
	assert.Equal(t, models.ReasonBreakTimer, info.Reason.Type)
}

func TestProcessRequestObjectUserError(t *testing.T) {
	t.Parallel()

	// Locking a timer that is not unlocked (a fresh session is Unlockable)
	// surfaces the user-visible message.
	_, _, rpcErr := processRequestObject(
		NewMethodMap(), newTestEnv(t), request(t, models.MethodSessionLock, ""))
	require.NotNil(t, rpcErr)
	assert.Equal(t, 1, rpcErr.Code)
	assert.Equal(t, "Break timer is not unlocked.", rpcErr.Message)
}

func TestProcessRequestObjectUnlockRefused(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	methodMap := NewMethodMap()

	// Unlock then lock, leaving the timer in its break.
	_, _, rpcErr := processRequestObject(methodMap, env, request(t, models.MethodSessionUnlock, ""))
	require.Nil(t, rpcErr)
	_, _, rpcErr = processRequestObject(methodMap, env, request(t, models.MethodSessionLock, ""))
	require.Nil(t, rpcErr)

	_, _, rpcErr = processRequestObject(methodMap, env, request(t, models.MethodSessionUnlock, ""))
	require.NotNil(t, rpcErr)
	assert.Equal(t, "Session is not unlockable.", rpcErr.Message)
}

func TestProcessRequestObjectAddAndComplete(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	methodMap := NewMethodMap()

	_, _, rpcErr := processRequestObject(methodMap, env,
		request(t, models.MethodRequirementsAdd, `{"name":"x","due":"9:00"}`))
	require.Nil(t, rpcErr)

	_, resp, rpcErr := processRequestObject(methodMap, env, request(t, models.MethodSession, ""))
	require.Nil(t, rpcErr)
	info, ok := resp.(models.SessionResponse)
	require.True(t, ok)
	require.Len(t, info.Requirements, 1)
	assert.Equal(t, "x", info.Requirements[0].Name)

	completeParams := fmt.Sprintf(`{"id":%d}`, info.Requirements[0].ID)
	_, _, rpcErr = processRequestObject(methodMap, env,
		request(t, models.MethodRequirementsComplete, completeParams))
	require.Nil(t, rpcErr)

	// Completing again is a user error with the canonical message.
	_, _, rpcErr = processRequestObject(methodMap, env,
		request(t, models.MethodRequirementsComplete, completeParams))
	require.NotNil(t, rpcErr)
	assert.Equal(t,
		fmt.Sprintf("Requirement %d has already been completed.", info.Requirements[0].ID),
		rpcErr.Message)
}

func TestProcessRequestObjectInvalidParams(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	methodMap := NewMethodMap()

	tests := []struct {
		name   string
		params string
	}{
		{name: "missing params", params: ""},
		{name: "missing name", params: `{"due":"9:00"}`},
		{name: "missing due", params: `{"name":"x"}`},
		{name: "malformed due", params: `{"name":"x","due":"25:00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, rpcErr := processRequestObject(methodMap, env,
				request(t, models.MethodRequirementsAdd, tt.params))
			require.NotNil(t, rpcErr)
		})
	}
}

func TestProcessRequestObjectNotificationIgnored(t *testing.T) {
	t.Parallel()

	msg := []byte(`{"jsonrpc":"2.0","method":"session"}`)
	id, resp, rpcErr := processRequestObject(NewMethodMap(), newTestEnv(t), msg)
	assert.Equal(t, uuid.Nil, id)
	assert.Nil(t, resp)
	assert.Nil(t, rpcErr)
}

func TestSessionResponseRoundTrip(t *testing.T) {
	t.Parallel()

	until := daytime.Timestamp(1500)
	start := daytime.Timestamp(900)
	reqID := uint64(3)
	original := models.SessionResponse{
		State:  models.SessionStateLocked,
		Until:  &until,
		Reason: models.ReasonObject{Type: models.ReasonRequirementNotMet, ID: &reqID},
		LockedTimeRanges: []models.TimeRangeResponse{
			{ID: 2, Start: &start, End: nil},
		},
		Requirements: []models.RequirementResponse{
			{ID: 3, Name: "x", Due: 1000, Complete: false},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var back models.SessionResponse
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, original, back)
}

func TestReasonObjectWireShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(models.ReasonObject{Type: models.ReasonBreakTimer})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"BreakTimer"}`, string(data))

	id := uint64(5)
	data, err = json.Marshal(models.ReasonObject{Type: models.ReasonLockedTimeRange, ID: &id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LockedTimeRange","id":5}`, string(data))
}

func TestCheckWebSocketOrigin(t *testing.T) {
	t.Parallel()

	allowed := []string{"http://localhost:7497", "http://app.example"}

	assert.True(t, checkWebSocketOrigin("", allowed))
	assert.True(t, checkWebSocketOrigin("http://localhost:7497", allowed))
	assert.True(t, checkWebSocketOrigin("http://app.example", allowed))
	assert.False(t, checkWebSocketOrigin("http://evil.example", allowed))
}
