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

// Package notifier raises desktop alerts when the session state changes.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/config"
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog/log"
)

// Broker is the subscription interface the notifier consumes.
type Broker interface {
	Subscribe(bufferSize int) (<-chan models.Notification, int)
	Unsubscribe(id int)
}

// Start subscribes to session.changed notifications and shows a desktop
// alert for each state change until the context is cancelled. Alerts are
// best effort; a failing notification daemon only logs.
func Start(ctx context.Context, cfg *config.Instance, broker Broker) {
	notifChan, subID := broker.Subscribe(10)

	go func() {
		defer broker.Unsubscribe(subID)
		var lastState string
		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-notifChan:
				if !ok {
					return
				}
				if notif.Method != models.NotificationSessionChanged {
					continue
				}
				if !cfg.DesktopNotifications() {
					continue
				}

				var payload models.SessionResponse
				if err := json.Unmarshal(notif.Params, &payload); err != nil {
					log.Error().Err(err).Msg("notifier: invalid session payload")
					continue
				}
				if payload.State == lastState {
					continue
				}
				lastState = payload.State

				if err := beeep.Notify("Diagonator", message(payload.State), ""); err != nil {
					log.Warn().Err(err).Msg("notifier: desktop notification failed")
				}
			}
		}
	}()
}

func message(state string) string {
	switch state {
	case models.SessionStateUnlocked:
		return "Session unlocked. Back to work."
	case models.SessionStateLocked:
		return "Session locked. Time for a break."
	case models.SessionStateUnlockable:
		return "Break over. Session can be unlocked."
	default:
		return fmt.Sprintf("Session is now %s.", state)
	}
}
