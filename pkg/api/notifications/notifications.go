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

package notifications

import (
	"encoding/json"

	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/rs/zerolog/log"
)

func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var notification models.Notification

	if payload != nil {
		params, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Msgf("error marshalling notification params: %s", method)
			return
		}
		notification = models.Notification{
			Method: method,
			Params: params,
		}
	} else {
		notification = models.Notification{
			Method: method,
		}
	}

	// Use non-blocking send to prevent back-pressure from freezing callers.
	// If the buffer is full, the notification is dropped and logged.
	select {
	case ns <- notification:
		log.Debug().Msgf("notification sent: %s", method)
	default:
		log.Warn().Msgf("notification channel full, dropping: %s", method)
	}
}

// SessionChanged announces that (state, until, reason) differs from the last
// published value.
//
//nolint:gocritic // single-use parameter in notification
func SessionChanged(ns chan<- models.Notification, payload models.SessionResponse) {
	sendNotification(ns, models.NotificationSessionChanged, payload)
}

// Running announces the daemon has started serving.
func Running(ns chan<- models.Notification) {
	sendNotification(ns, models.NotificationRunning, nil)
}
