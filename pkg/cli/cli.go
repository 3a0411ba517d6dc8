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

// Package cli implements flag handling shared by the daemon binary,
// including client-mode commands that talk to a running daemon.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/DiagonatorProject/diagonator-core/pkg/api/client"
	"github.com/DiagonatorProject/diagonator-core/pkg/api/models"
	"github.com/DiagonatorProject/diagonator-core/pkg/config"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers"
	"github.com/DiagonatorProject/diagonator-core/pkg/helpers/daytime"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	Info     *bool
	Unlock   *bool
	Lock     *bool
	Complete *string
	Add      *string
	API      *string
	Version  *bool
}

// SetupFlags defines all CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		Info: flag.Bool(
			"info",
			false,
			"print the current session state and exit",
		),
		Unlock: flag.Bool(
			"unlock",
			false,
			"unlock the break timer and exit",
		),
		Lock: flag.Bool(
			"lock",
			false,
			"lock the break timer and exit",
		),
		Complete: flag.String(
			"complete",
			"",
			"mark the requirement with the given id as completed",
		),
		Add: flag.String(
			"add",
			"",
			"add a requirement as \"name@HH:MM\"",
		),
		API: flag.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't require
// environment setup. Add any custom flags before running this.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("Diagonator Core v%s\n", config.AppVersion)
		os.Exit(0)
	}
}

func callAPI(cfg *config.Instance, method, params string) string {
	resp, err := client.LocalClient(context.Background(), cfg, method, params)
	if err != nil {
		log.Error().Err(err).Msgf("error calling %s", method)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return resp
}

// Post actions client-mode flags against a running daemon. Each exits the
// process when done.
func (f *Flags) Post(cfg *config.Instance) {
	switch {
	case *f.Info:
		_, _ = fmt.Println(callAPI(cfg, models.MethodSession, ""))
		os.Exit(0)
	case *f.Unlock:
		callAPI(cfg, models.MethodSessionUnlock, "")
		_, _ = fmt.Fprintln(os.Stderr, "Session unlocked")
		os.Exit(0)
	case *f.Lock:
		callAPI(cfg, models.MethodSessionLock, "")
		_, _ = fmt.Fprintln(os.Stderr, "Session locked")
		os.Exit(0)
	case isFlagPassed("complete"):
		id, err := strconv.ParseUint(*f.Complete, 10, 64)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: invalid requirement id: %s\n", *f.Complete)
			os.Exit(1)
		}
		data, err := json.Marshal(&models.CompleteRequirementParams{ID: id})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error encoding params: %v\n", err)
			os.Exit(1)
		}
		callAPI(cfg, models.MethodRequirementsComplete, string(data))
		_, _ = fmt.Fprintf(os.Stderr, "Requirement %d completed\n", id)
		os.Exit(0)
	case isFlagPassed("add"):
		name, due, ok := strings.Cut(*f.Add, "@")
		if !ok || name == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: add flag requires \"name@HH:MM\"\n")
			os.Exit(1)
		}
		hm, err := daytime.ParseHourMinute(due)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		data, err := json.Marshal(&models.AddRequirementParams{Name: name, Due: &hm})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error encoding params: %v\n", err)
			os.Exit(1)
		}
		callAPI(cfg, models.MethodRequirementsAdd, string(data))
		_, _ = fmt.Fprintf(os.Stderr, "Requirement %q added, due %s\n", name, hm)
		os.Exit(0)
	case isFlagPassed("api"):
		if *f.API == "" {
			_, _ = fmt.Fprint(os.Stderr, "Error: api flag requires a value\n")
			os.Exit(1)
		}

		ps := strings.SplitN(*f.API, ":", 2)
		method := ps[0]
		params := ""
		if len(ps) > 1 {
			params = ps[1]
		}

		_, _ = fmt.Println(callAPI(cfg, method, params))
		os.Exit(0)
	}
}

// Setup initializes the user config and logging. Returns a user config
// object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(configDir, logDir string, defaultConfig config.Values, writers []io.Writer) *config.Instance {
	err := helpers.InitLogging(logDir, writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(configDir, defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return cfg
}
