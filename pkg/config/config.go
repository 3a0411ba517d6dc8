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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "DIAGONATOR_CFG"
)

// Values is the on-disk TOML shape of the configuration file.
type Values struct {
	Enforcer         Enforcer            `toml:"enforcer,omitempty"`
	Timer            Timer               `toml:"timer,omitempty"`
	Service          Service             `toml:"service,omitempty"`
	Notifications    Notifications       `toml:"notifications,omitempty"`
	Requirements     []RequirementEntry  `toml:"requirements,omitempty"`
	LockedTimeRanges []LockedTimeRange   `toml:"locked_time_ranges,omitempty"`
	ConfigSchema     int                 `toml:"config_schema"`
	DebugLogging     bool                `toml:"debug_logging"`
}

// Enforcer configures the external process launched while the session is not
// unlocked.
type Enforcer struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args,omitempty,multiline"`
}

// Timer configures the break timer's two phases, in minutes.
type Timer struct {
	WorkPeriodMinutes int `toml:"work_period_minutes"`
	BreakMinutes      int `toml:"break_minutes"`
}

// Service configures the API endpoint.
type Service struct {
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	APIPort        int      `toml:"api_port"`
}

// Notifications configures desktop alerts on session state changes.
type Notifications struct {
	Desktop *bool `toml:"desktop,omitempty"`
}

// RequirementEntry is a daily task template. Each day the daemon creates a
// fresh requirement from it, due at the given wall-clock time.
type RequirementEntry struct {
	Name string             `toml:"name"`
	Due  daytime.HourMinute `toml:"due"`
}

// LockedTimeRange is a daily forbidden-use window template. A missing start
// means "since the beginning of time", a missing end means "no scheduled
// end".
type LockedTimeRange struct {
	Start *daytime.HourMinute `toml:"start,omitempty"`
	End   *daytime.HourMinute `toml:"end,omitempty"`
}

// BaseDefaults is the configuration written on first run.
var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Enforcer: Enforcer{
		Command: "diagonator",
	},
	Timer: Timer{
		WorkPeriodMinutes: 25,
		BreakMinutes:      5,
	},
	Service: Service{
		APIPort: 7497,
	},
}

// Instance is the live configuration. All access goes through accessor
// methods holding the instance lock; Load replaces the values wholesale.
type Instance struct {
	cfgPath string
	vals    Values
	mu      syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath: cfgPath,
		vals:    defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Path returns the absolute path of the loaded config file.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var newVals Values
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(c.cfgPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Service.APIPort == 0 {
		return BaseDefaults.Service.APIPort
	}
	return c.vals.Service.APIPort
}

func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Service.AllowedOrigins
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

// EnforcerCommand returns the enforcer executable and its argument list.
func (c *Instance) EnforcerCommand() (path string, args []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Enforcer.Command, c.vals.Enforcer.Args
}

// WorkPeriod returns the duration the session stays unlocked after an
// explicit unlock.
func (c *Instance) WorkPeriod() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Timer.WorkPeriodMinutes <= 0 {
		return time.Duration(BaseDefaults.Timer.WorkPeriodMinutes) * time.Minute
	}
	return time.Duration(c.vals.Timer.WorkPeriodMinutes) * time.Minute
}

// BreakPeriod returns the duration the session stays locked after a work
// period ends.
func (c *Instance) BreakPeriod() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Timer.BreakMinutes <= 0 {
		return time.Duration(BaseDefaults.Timer.BreakMinutes) * time.Minute
	}
	return time.Duration(c.vals.Timer.BreakMinutes) * time.Minute
}

// Requirements returns the daily requirement templates.
func (c *Instance) Requirements() []RequirementEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reqs := make([]RequirementEntry, len(c.vals.Requirements))
	copy(reqs, c.vals.Requirements)
	return reqs
}

// LockedTimeRanges returns the daily forbidden-use window templates.
func (c *Instance) LockedTimeRanges() []LockedTimeRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ltrs := make([]LockedTimeRange, len(c.vals.LockedTimeRanges))
	copy(ltrs, c.vals.LockedTimeRanges)
	return ltrs
}

// DesktopNotifications returns true if session changes should raise desktop
// alerts. Defaults to on.
func (c *Instance) DesktopNotifications() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Notifications.Desktop == nil {
		return true
	}
	return *c.vals.Notifications.Desktop
}
