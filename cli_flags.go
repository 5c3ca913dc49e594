// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/Falcon-OS/platform-external-perfetto/internal/controller"
)

const (
	// Default values for CLI flags
	defaultArgTickInterval   = 16 * time.Millisecond
	defaultArgStatusInterval = 250 * time.Millisecond
	defaultArgQueryCacheSize = 1024
	defaultArgEngineAddr     = "http://localhost:9001"
)

// Help strings for command line arguments
var (
	copyrightHelp = "Show copyright and short license text."
	engineHelp    = fmt.Sprintf("The trace engine sidecar address in the format of "+
		"http(s)://host:port. Default is %s.", defaultArgEngineAddr)
	outHelp            = "File to write the final model to as JSON. Writes to stdout when unset."
	pprofHelp          = "Listening address (e.g. localhost:6060) to serve pprof information."
	queryCacheSizeHelp = fmt.Sprintf("Number of query results memoized per session. "+
		"Set to 0 to disable query caching. Default is %d.", defaultArgQueryCacheSize)
	statusIntervalHelp = "Minimum gap between two loading status updates."
	tickIntervalHelp   = "Interval at which the session state machine is driven."
	traceHelp          = "The trace to load: a file path, '-' for stdin, an " +
		"http(s):// URL or an s3://bucket/key URI."
	verboseModeHelp = "Enable verbose logging and debugging capabilities."
	versionHelp     = "Show version."
)

func parseArgs() (*controller.Config, error) {
	var args controller.Config

	fs := flag.NewFlagSet("trace-controller", flag.ExitOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.BoolVar(&args.Copyright, "copyright", false, copyrightHelp)

	fs.StringVar(&args.EngineAddr, "engine", defaultArgEngineAddr, engineHelp)

	fs.StringVar(&args.OutPath, "out", "", outHelp)

	fs.StringVar(&args.PprofAddr, "pprof", "", pprofHelp)

	fs.UintVar(&args.QueryCacheSize, "query-cache-size", defaultArgQueryCacheSize,
		queryCacheSizeHelp)

	fs.DurationVar(&args.StatusInterval, "status-interval", defaultArgStatusInterval,
		statusIntervalHelp)

	fs.DurationVar(&args.TickInterval, "tick-interval", defaultArgTickInterval,
		tickIntervalHelp)

	fs.StringVar(&args.TracePath, "trace", "", traceHelp)

	fs.BoolVar(&args.Verbose, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.Verbose, "verbose", false, verboseModeHelp)
	fs.BoolVar(&args.Version, "version", false, versionHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	args.Fs = fs

	return &args, ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TRACE_CONTROLLER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the
		// controller does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
}
