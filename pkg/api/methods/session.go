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

// Package methods implements the JSON-RPC method handlers.
package methods

import (
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models/requests"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/validation"
	"github.com/rs/zerolog/log"
)

// HandleSession returns the current session info.
//
//nolint:gocritic // single-use parameter in API handler
func HandleSession(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received session info request")

	info, err := env.Manager.Info()
	if err != nil {
		return nil, err
	}
	return info.Response(), nil
}

// HandleSessionUnlock starts a work period if the session is unlockable.
//
//nolint:gocritic // single-use parameter in API handler
func HandleSessionUnlock(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received session unlock request")

	if err := env.Manager.UnlockTimer(); err != nil {
		return nil, err
	}
	return nil, nil //nolint:nilnil // null result means success
}

// HandleSessionLock ends the work period early.
//
//nolint:gocritic // single-use parameter in API handler
func HandleSessionLock(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received session lock request")

	if err := env.Manager.LockTimer(); err != nil {
		return nil, err
	}
	return nil, nil //nolint:nilnil // null result means success
}

// HandleCompleteRequirement marks a requirement as done.
//
//nolint:gocritic // single-use parameter in API handler
func HandleCompleteRequirement(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received requirement complete request")

	var params models.CompleteRequirementParams
	if err := validation.ParseParams(env.Params, &params); err != nil {
		return nil, err
	}

	if err := env.Manager.CompleteRequirement(params.ID); err != nil {
		return nil, err
	}
	return nil, nil //nolint:nilnil // null result means success
}

// HandleAddRequirement adds a requirement due today at the given time.
//
//nolint:gocritic // single-use parameter in API handler
func HandleAddRequirement(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received requirement add request")

	var params models.AddRequirementParams
	if err := validation.ParseParams(env.Params, &params); err != nil {
		return nil, err
	}

	if err := env.Manager.AddRequirement(params.Name, *params.Due); err != nil {
		return nil, err
	}
	return nil, nil //nolint:nilnil // null result means success
}
