// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	//nolint:gosec
	_ "net/http/pprof"

	log "github.com/sirupsen/logrus"

	"github.com/Falcon-OS/platform-external-perfetto/internal/controller"
	"github.com/Falcon-OS/platform-external-perfetto/vc"
)

// Short copyright / license text for -copyright
var copyright = `Copyright The Perfetto Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
`

type exitCode int

const (
	exitSuccess exitCode = 0
	exitFailure exitCode = 1

	// Go 'flag' package calls os.Exit(2) on flag parse errors, if ExitOnError is set
	exitParseError exitCode = 2
)

func main() {
	os.Exit(int(mainWithExitCode()))
}

func mainWithExitCode() exitCode {
	args, err := parseArgs()
	if err != nil {
		return parseError("Failure to parse arguments: %v", err)
	}

	if args.Copyright {
		fmt.Print(copyright)
		return exitSuccess
	}

	if args.Version {
		fmt.Printf("%s\n", vc.Version())
		return exitSuccess
	}

	if args.Verbose {
		log.SetLevel(log.DebugLevel)
		// Dump the arguments in debug mode.
		args.Dump()
	}

	if err = args.Validate(); err != nil {
		return parseError("Invalid arguments: %v", err)
	}

	// Context to drive the load and the session tick loop.
	mainCtx, mainCancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer mainCancel()

	if args.PprofAddr != "" {
		go func() {
			//nolint:gosec
			if err := http.ListenAndServe(args.PprofAddr, nil); err != nil {
				log.Errorf("Serving pprof on %s failed: %s", args.PprofAddr, err)
			}
		}()
	}

	log.Infof("Starting trace controller %s (revision %s, build timestamp %s)",
		vc.Version(), vc.Revision(), vc.BuildTimestamp())

	if err = controller.New(args).Run(mainCtx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Interrupted, trace load incomplete")
			return exitFailure
		}
		var exitErr controller.ErrorWithExitCode
		if errors.As(err, &exitErr) {
			log.Errorf("Failed to load trace: %v", err)
			return exitCode(exitErr.Code())
		}
		return failure("Failed to load trace: %v", err)
	}

	log.Info("Exiting ...")
	return exitSuccess
}

func parseError(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitParseError
}

func failure(msg string, args ...interface{}) exitCode {
	log.Errorf(msg, args...)
	return exitFailure
}
