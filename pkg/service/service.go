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

// Package service wires the session manager, the API server, the
// notification broker and the background loops into a running daemon.
package service

import (
	"context"
	"path/filepath"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/api"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/notifications"
	"github.com/DiagonatorProject/diagonator-core/pkg/config"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/command"
	"github.com/DiagonatorProject/diagonator-core/pkg/service/broker"
	"github.com/DiagonatorProject/diagonator-core/pkg/service/notifier"
	"github.com/DiagonatorProject/diagonator-core/pkg/service/session"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// watchFallback bounds how long the watch loop sleeps without a scheduled
// transition, so day rollovers and config edits converge on their own.
const watchFallback = time.Minute

// Start brings the daemon up and returns a stop function. The initial
// refresh runs before anything is served: a session that starts restricted
// spawns the enforcer immediately, and a spawn failure aborts startup.
func Start(cfg *config.Instance) (func() error, error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	ns := make(chan models.Notification, 100)
	ctx, cancel := context.WithCancel(context.Background())
	clock := clockwork.NewRealClock()

	mgr := session.NewManager(cfg, &command.RealExecutor{}, clock, nil, ns)

	if _, err := mgr.Refresh(); err != nil {
		cancel()
		return nil, err
	}

	brk := broker.NewBroker(ctx, ns)
	brk.Start()

	log.Info().Msg("starting desktop notifier")
	notifier.Start(ctx, cfg, brk)

	log.Info().Msg("starting transition watch loop")
	go watchTransitions(ctx, mgr, clock)

	log.Info().Msg("starting config watcher")
	go watchConfig(ctx, cfg)

	log.Info().Msg("starting API service")
	apiNotifs, apiSub := brk.Subscribe(100)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer brk.Unsubscribe(apiSub)
		return api.Start(gctx, cfg, mgr, apiNotifs)
	})

	notifications.Running(ns)

	return func() error {
		cancel()
		err := g.Wait()
		mgr.Stop()
		close(ns)
		return err
	}, nil
}

// watchTransitions refreshes the manager whenever the session is due to
// change on its own, so the enforcer converges at phase boundaries without
// client traffic.
func watchTransitions(ctx context.Context, mgr *session.Manager, clock clockwork.Clock) {
	for {
		wait := watchFallback

		info, err := mgr.Refresh()
		if err != nil {
			log.Error().Err(err).Msg("watch loop refresh failed")
		} else if info.Until != nil {
			// Wake just past the boundary; sub-second slack covers the
			// engine's whole-second resolution.
			at := info.Until.Add(time.Second).Time(time.Local)
			if d := at.Sub(clock.Now()); d > 0 && d < wait {
				wait = d
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-clock.After(wait):
		}
	}
}

// watchConfig reloads the config file when it is written to. Timer
// durations apply on the next phase change; templates at the next day
// rollover.
func watchConfig(ctx context.Context, cfg *config.Instance) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("error creating config watcher")
		return
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing config watcher")
		}
	}()

	// Watch the directory: editors replace the file, which would drop a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(cfg.Path())); err != nil {
		log.Error().Err(err).Msg("error watching config directory")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != cfg.Path() {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := cfg.Load(); err != nil {
				log.Error().Err(err).Msg("error reloading config")
				continue
			}
			log.Info().Msg("config reloaded")
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(watchErr).Msg("config watcher error")
		}
	}
}
