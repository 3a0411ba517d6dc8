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
	"errors"
	"fmt"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/notifications"
	"github.com/DiagonatorProject/diagonator-core/pkg/config"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/command"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
)

//nolint:staticcheck // user-visible message
var errNotUnlockable = errors.New("Session is not unlockable.")

// Manager owns the break timer, the day's constraint registry and the
// enforcer supervisor. Every public operation runs a full refresh cycle
// under one exclusive lock: sample the clock once, roll the day over if it
// changed, simulate, collapse a dangling work period if the session is
// restricted, and converge the enforcer process.
type Manager struct {
	cfg         *config.Instance
	clock       clockwork.Clock
	loc         *time.Location
	ns          chan<- models.Notification
	timer       *breakTimer
	enforcer    *enforcerSupervisor
	last        *published
	reg         registry
	currentDate daytime.LocalDate
	lastID      uint64
	version     uint64
	mu          syncutil.Mutex
}

// published is the part of an info that counts as a change for
// notification purposes.
type published struct {
	until  *daytime.Timestamp
	info   CurrentInfo
	state  State
	reason Reason
}

// NewManager creates a session manager. A nil clock means the real clock; a
// nil loc means the host's local time zone; a nil ns disables change
// notifications.
func NewManager(
	cfg *config.Instance,
	exec command.Executor,
	clock clockwork.Clock,
	loc *time.Location,
	ns chan<- models.Notification,
) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Manager{
		cfg:         cfg,
		clock:       clock,
		loc:         loc,
		ns:          ns,
		timer:       newBreakTimer(cfg.WorkPeriod(), cfg.BreakPeriod()),
		enforcer:    newEnforcerSupervisor(exec),
		currentDate: daytime.Zero.Date(loc),
	}
}

func (m *Manager) now() daytime.Timestamp {
	return daytime.FromTime(m.clock.Now())
}

func (m *Manager) nextID() uint64 {
	m.lastID++
	return m.lastID
}

// Refresh runs one refresh cycle and returns the resulting info. Used by
// the transition watch loop; client operations run it implicitly.
func (m *Manager) Refresh() (CurrentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh(m.now())
}

// Info returns the current session info.
func (m *Manager) Info() (CurrentInfo, error) {
	return m.Refresh()
}

// InfoIfChanged refreshes and returns the latest info with its version if
// the published (state, until, reason) moved past lastVersion.
func (m *Manager) InfoIfChanged(lastVersion uint64) (info CurrentInfo, version uint64, changed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.refresh(m.now()); err != nil {
		return CurrentInfo{}, 0, false, err
	}
	if m.version == lastVersion {
		return CurrentInfo{}, m.version, false, nil
	}
	return m.last.info, m.version, true, nil
}

// UnlockTimer starts a work period. It fails unless the session as a whole
// is currently Unlockable.
func (m *Manager) UnlockTimer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	info, err := m.refresh(now)
	if err != nil {
		return err
	}
	if info.State != StateUnlockable {
		return errNotUnlockable
	}
	if err := m.timer.unlock(now); err != nil {
		return err
	}
	_, err = m.refresh(now)
	return err
}

// LockTimer ends the work period early.
func (m *Manager) LockTimer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	if _, err := m.refresh(now); err != nil {
		return err
	}
	if err := m.timer.lock(now); err != nil {
		return err
	}
	_, err := m.refresh(now)
	return err
}

// CompleteRequirement marks the requirement done. Completing it again is an
// error.
func (m *Manager) CompleteRequirement(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	if _, err := m.refresh(now); err != nil {
		return err
	}
	if err := m.reg.completeRequirement(id); err != nil {
		return err
	}
	_, err := m.refresh(now)
	return err
}

// AddRequirement appends a requirement due today at the given wall-clock
// time. It lives until the next day rollover.
func (m *Manager) AddRequirement(name string, due daytime.HourMinute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	if _, err := m.refresh(now); err != nil {
		return err
	}
	m.reg.requirements = append(m.reg.requirements, Requirement{
		ID:   m.nextID(),
		Name: name,
		Due:  m.currentDate.At(due, m.loc),
	})
	_, err := m.refresh(now)
	return err
}

// Stop terminates a running enforcer. Called at daemon shutdown.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enforcer.stop()
}

// refresh is the cycle behind every operation. Callers hold m.mu and pass
// the timestamp sampled at operation entry, so every internal step observes
// the same now.
func (m *Manager) refresh(now daytime.Timestamp) (CurrentInfo, error) {
	date := now.Date(m.loc)
	if date != m.currentDate {
		m.currentDate = date
		m.newDay(date)
	}

	m.timer.setDurations(m.cfg.WorkPeriod(), m.cfg.BreakPeriod())
	m.timer.refresh(now)

	res, err := m.simulate(now)
	if err != nil {
		return CurrentInfo{}, err
	}

	ranges, requirements := m.reg.snapshot()
	info := CurrentInfo{
		State:            res.state,
		Until:            res.until,
		Reason:           res.reason,
		LockedTimeRanges: ranges,
		Requirements:     requirements,
	}

	enforce := info.State != StateUnlocked
	if enforce {
		m.timer.lockIfUnlocked(now)
	}

	name, args := m.cfg.EnforcerCommand()
	if err := m.enforcer.reconcile(enforce, name, args); err != nil {
		return CurrentInfo{}, err
	}

	m.publish(info)

	return info, nil
}

// simulate feeds the simulator from the registry and break timer. Push
// order is requirements, ranges, then the break timer: when several changes
// coincide, that is the priority used to attribute the reason.
func (m *Manager) simulate(now daytime.Timestamp) (simResult, error) {
	var sim simulator

	for _, req := range m.reg.requirements {
		if req.Complete {
			continue
		}
		sim.push(stateChange{kind: kindRequirementLocked, id: req.ID, time: req.Due})
	}

	for _, ltr := range m.reg.lockedTimeRanges {
		start := daytime.Zero
		if ltr.Start != nil {
			start = *ltr.Start
		}
		sim.push(stateChange{kind: kindRangeLocked, id: ltr.ID, time: start})
		if ltr.End != nil {
			sim.push(stateChange{kind: kindRangeUnlocked, id: ltr.ID, time: *ltr.End})
		}
	}

	switch m.timer.phase {
	case phaseUnlocked:
		sim.push(stateChange{kind: kindBreakTimerLocked, time: m.timer.until})
	case phaseLocked:
		sim.push(stateChange{kind: kindBreakTimerLocked, time: daytime.Zero})
		sim.push(stateChange{kind: kindBreakTimerUnlockable, time: m.timer.until})
	case phaseUnlockable:
		sim.push(stateChange{kind: kindBreakTimerUnlockable, time: daytime.Zero})
	}

	res, err := sim.run(now)
	if err != nil {
		return simResult{}, fmt.Errorf("simulator: %w", err)
	}
	return res, nil
}

// newDay rebuilds the registry from the configuration templates against the
// new date. Every entry gets a fresh id; ids are never reused.
func (m *Manager) newDay(date daytime.LocalDate) {
	templates := m.cfg.Requirements()
	requirements := make([]Requirement, 0, len(templates))
	for _, tmpl := range templates {
		requirements = append(requirements, Requirement{
			ID:   m.nextID(),
			Name: tmpl.Name,
			Due:  date.At(tmpl.Due, m.loc),
		})
	}
	m.reg.requirements = requirements

	rangeTemplates := m.cfg.LockedTimeRanges()
	ranges := make([]TimeRange, 0, len(rangeTemplates))
	for _, tmpl := range rangeTemplates {
		ranges = append(ranges, TimeRange{
			ID:    m.nextID(),
			Start: date.AtOpt(tmpl.Start, m.loc),
			End:   date.AtOpt(tmpl.End, m.loc),
		})
	}
	m.reg.lockedTimeRanges = ranges
}

// publish bumps the version and notifies subscribers when (state, until,
// reason) differs from the last published value.
func (m *Manager) publish(info CurrentInfo) {
	if m.last != nil &&
		m.last.state == info.State &&
		m.last.reason == info.Reason &&
		timestampPtrEqual(m.last.until, info.Until) {
		m.last.info = info
		return
	}

	m.version++
	m.last = &published{
		state:  info.State,
		until:  info.Until,
		reason: info.Reason,
		info:   info,
	}
	if m.ns != nil {
		notifications.SessionChanged(m.ns, info.Response())
	}
}

func timestampPtrEqual(a, b *daytime.Timestamp) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
