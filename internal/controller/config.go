// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/Falcon-OS/platform-external-perfetto/internal/controller"

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config carries everything the controller needs to load one trace.
type Config struct {
	Copyright      bool
	EngineAddr     string
	OutPath        string
	PprofAddr      string
	QueryCacheSize uint
	StatusInterval time.Duration
	TickInterval   time.Duration
	TracePath      string
	Verbose        bool
	Version        bool

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	if cfg.Fs == nil {
		return
	}
	log.Debug("Config:")
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debugf("%s: %v", f.Name, f.Value)
	})
}

// Validate runs validations on the provided configuration, and returns
// errors if invalid values were provided.
func (cfg *Config) Validate() error {
	if cfg.TracePath == "" {
		return errors.New("no trace input specified (-trace)")
	}
	if cfg.EngineAddr == "" {
		return errors.New("no engine address specified (-engine)")
	}
	if !strings.HasPrefix(cfg.EngineAddr, "http://") &&
		!strings.HasPrefix(cfg.EngineAddr, "https://") {
		return fmt.Errorf("engine address '%s' is not an http(s) URL",
			cfg.EngineAddr)
	}
	if cfg.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if cfg.StatusInterval <= 0 {
		return errors.New("status interval must be positive")
	}
	return nil
}
