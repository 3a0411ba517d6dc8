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

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBrokerBroadcastsToAllSubscribers(t *testing.T) {
	source := make(chan models.Notification)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker(ctx, source)
	b.Start()

	chanA, _ := b.Subscribe(1)
	chanB, _ := b.Subscribe(1)

	source <- models.Notification{Method: models.NotificationSessionChanged}

	for _, ch := range []<-chan models.Notification{chanA, chanB} {
		select {
		case notif := <-ch:
			assert.Equal(t, models.NotificationSessionChanged, notif.Method)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for notification")
		}
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	source := make(chan models.Notification)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker(ctx, source)
	b.Start()

	ch, id := b.Subscribe(1)
	b.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)

	// A second unsubscribe of the same id is a no-op.
	b.Unsubscribe(id)
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	source := make(chan models.Notification)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker(ctx, source)
	b.Start()

	ch, _ := b.Subscribe(1)

	source <- models.Notification{Method: "first"}
	source <- models.Notification{Method: "second"} // dropped, buffer full

	select {
	case notif := <-ch:
		assert.Equal(t, "first", notif.Method)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestBrokerClosesSubscribersOnSourceClose(t *testing.T) {
	source := make(chan models.Notification)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewBroker(ctx, source)
	b.Start()

	ch, _ := b.Subscribe(1)
	close(source)

	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBrokerClosesSubscribersOnContextCancel(t *testing.T) {
	source := make(chan models.Notification)
	ctx, cancel := context.WithCancel(context.Background())

	b := NewBroker(ctx, source)
	b.Start()

	ch, _ := b.Subscribe(1)
	cancel()

	select {
	case _, open := <-ch:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
