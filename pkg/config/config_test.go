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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	// A default config file now exists on disk.
	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, err)

	assert.Equal(t, 7497, cfg.APIPort())
	assert.Equal(t, 25*time.Minute, cfg.WorkPeriod())
	assert.Equal(t, 5*time.Minute, cfg.BreakPeriod())
	assert.True(t, cfg.DesktopNotifications())

	command, args := cfg.EnforcerCommand()
	assert.Equal(t, "diagonator", command)
	assert.Empty(t, args)
}

func TestConfigLoadParsesTemplates(t *testing.T) {
	dir := t.TempDir()
	contents := `
config_schema = 1
debug_logging = true

[enforcer]
command = "/usr/bin/diagonator"
args = ["--fullscreen"]

[timer]
work_period_minutes = 50
break_minutes = 10

[service]
api_port = 9000

[notifications]
desktop = false

[[requirements]]
name = "morning journal"
due = "9:30"

[[locked_time_ranges]]
start = "23:00"

[[locked_time_ranges]]
end = "07:00"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(contents), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, 9000, cfg.APIPort())
	assert.Equal(t, 50*time.Minute, cfg.WorkPeriod())
	assert.Equal(t, 10*time.Minute, cfg.BreakPeriod())
	assert.False(t, cfg.DesktopNotifications())

	command, args := cfg.EnforcerCommand()
	assert.Equal(t, "/usr/bin/diagonator", command)
	assert.Equal(t, []string{"--fullscreen"}, args)

	reqs := cfg.Requirements()
	require.Len(t, reqs, 1)
	assert.Equal(t, "morning journal", reqs[0].Name)
	assert.Equal(t, daytime.HourMinute{Hour: 9, Minute: 30}, reqs[0].Due)

	ltrs := cfg.LockedTimeRanges()
	require.Len(t, ltrs, 2)
	require.NotNil(t, ltrs[0].Start)
	assert.Equal(t, daytime.HourMinute{Hour: 23, Minute: 0}, *ltrs[0].Start)
	assert.Nil(t, ltrs[0].End)
	assert.Nil(t, ltrs[1].Start)
	require.NotNil(t, ltrs[1].End)
	assert.Equal(t, daytime.HourMinute{Hour: 7, Minute: 0}, *ltrs[1].End)
}

func TestConfigRejectsInvalidHourMinute(t *testing.T) {
	dir := t.TempDir()
	contents := `
config_schema = 1

[[requirements]]
name = "bad"
due = "25:00"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(contents), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
}

func TestConfigRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	contents := "config_schema = 99\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(contents), 0o600))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	nine := daytime.HourMinute{Hour: 9, Minute: 0}
	vals := BaseDefaults
	vals.Requirements = []RequirementEntry{{Name: "standup", Due: nine}}
	vals.LockedTimeRanges = []LockedTimeRange{{Start: &nine, End: nil}}

	cfg, err := NewConfig(dir, vals)
	require.NoError(t, err)
	require.NoError(t, cfg.Save())
	require.NoError(t, cfg.Load())

	reqs := cfg.Requirements()
	require.Len(t, reqs, 1)
	assert.Equal(t, "standup", reqs[0].Name)
	assert.Equal(t, nine, reqs[0].Due)

	ltrs := cfg.LockedTimeRanges()
	require.Len(t, ltrs, 1)
	require.NotNil(t, ltrs[0].Start)
	assert.Equal(t, nine, *ltrs[0].Start)
	assert.Nil(t, ltrs[0].End)
}

func TestConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(t.TempDir(), "custom.toml")
	t.Setenv(CfgEnv, other)

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, other, cfg.Path())

	// The default dir was ignored in favour of the env path.
	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.True(t, os.IsNotExist(err))
}

func TestTimerFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	contents := "config_schema = 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte(contents), 0o600))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Minute, cfg.WorkPeriod())
	assert.Equal(t, 5*time.Minute, cfg.BreakPeriod())
}
