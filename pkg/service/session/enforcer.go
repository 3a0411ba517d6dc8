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
	"fmt"

	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/command"
	"github.com/rs/zerolog/log"
)

// enforcerSupervisor converges the external enforcer process on a single
// invariant: the child runs iff the most recent refresh concluded the
// session is not Unlocked. It never surfaces an unexpected child exit to
// clients; a dead handle is dropped so the next required-transition
// respawns.
type enforcerSupervisor struct {
	exec    command.Executor
	process command.Process
}

func newEnforcerSupervisor(exec command.Executor) *enforcerSupervisor {
	return &enforcerSupervisor{exec: exec}
}

func (s *enforcerSupervisor) running() bool {
	return s.process != nil
}

// reconcile drives the child towards shouldRun. Must only be called with
// the manager lock held.
func (s *enforcerSupervisor) reconcile(shouldRun bool, name string, args []string) error {
	// An enforcer that died on its own leaves a stale handle; drop it first
	// so the decision below sees the true run-state.
	if s.process != nil && s.process.Exited() {
		log.Warn().Msg("enforcer exited unexpectedly")
		if err := s.process.Wait(); err != nil {
			log.Error().Err(err).Msg("error waiting for exited enforcer")
		}
		s.process = nil
	}

	switch {
	case s.process != nil && !shouldRun:
		if err := s.process.Terminate(); err != nil {
			s.process = nil
			return fmt.Errorf("failed to terminate enforcer: %w", err)
		}
		if err := s.process.Wait(); err != nil {
			s.process = nil
			return fmt.Errorf("failed to wait for enforcer: %w", err)
		}
		s.process = nil
		log.Info().Msg("enforcer stopped")
	case s.process == nil && shouldRun:
		process, err := s.exec.StartProcess(name, args...)
		if err != nil {
			return fmt.Errorf("failed to spawn enforcer: %w", err)
		}
		s.process = process
		log.Info().Str("command", name).Msg("enforcer started")
	}

	return nil
}

// stop terminates a running enforcer, if any. Used at daemon shutdown.
func (s *enforcerSupervisor) stop() {
	if s.process == nil {
		return
	}
	if err := s.process.Terminate(); err != nil {
		log.Error().Err(err).Msg("error terminating enforcer at shutdown")
	}
	if err := s.process.Wait(); err != nil {
		log.Error().Err(err).Msg("error waiting for enforcer at shutdown")
	}
	s.process = nil
}
