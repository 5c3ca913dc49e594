// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/Falcon-OS/platform-external-perfetto/internal/controller"

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"

	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/engine/httprpc"
	"github.com/Falcon-OS/platform-external-perfetto/frontend"
	"github.com/Falcon-OS/platform-external-perfetto/metrics"
	"github.com/Falcon-OS/platform-external-perfetto/metrics/enginemetrics"
	"github.com/Falcon-OS/platform-external-perfetto/metrics/runtimemetrics"
	"github.com/Falcon-OS/platform-external-perfetto/session"
	"github.com/Falcon-OS/platform-external-perfetto/stream"
	"github.com/Falcon-OS/platform-external-perfetto/times"
)

// Controller drives one trace loading session from the command line: it
// opens the trace input, connects the engine, ticks the session like a
// scheduler would and exports the accumulated model once the session is
// ready.
type Controller struct {
	config  *Config
	sink    frontend.Sink
	factory engine.Factory
}

// New creates a new controller
func New(cfg *Config, opts ...Option) *Controller {
	c := &Controller{
		config: cfg,
	}
	for _, opt := range opts {
		c = opt.applyOption(c)
	}
	if c.sink == nil {
		c.sink = frontend.NewLogSink()
	}
	return c
}

// Run loads the configured trace to completion. It blocks until the
// session is ready and the model has been exported, the load fails, or
// ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	source, err := openSource(ctx, c.config.TracePath)
	if err != nil {
		return err
	}
	defer source.Close()
	return c.run(ctx, source)
}

func (c *Controller) run(ctx context.Context, source *stream.Reader) error {
	intervals := times.New(c.config.TickInterval, c.config.StatusInterval)

	defer metrics.Start(ctx)()
	defer runtimemetrics.Start(ctx, intervals.MetricsInterval())()

	log.Infof("Loading %s (codec %s, fingerprint %s)",
		source.Name(), source.Codec(), source.Fingerprint())

	factory := c.factory
	var cached *engine.CachedEngine
	if factory == nil {
		factory = func(ctx context.Context) (engine.Engine, error) {
			eng, err := httprpc.Connect(ctx, c.config.EngineAddr, intervals)
			if err != nil {
				return nil, err
			}
			if c.config.QueryCacheSize == 0 {
				return eng, nil
			}
			wrapped, err := engine.NewCachedEngine(eng, uint32(c.config.QueryCacheSize))
			if err != nil {
				_ = eng.Close()
				return nil, err
			}
			cached = wrapped
			return wrapped, nil
		}
	}

	loadDone := make(chan error, 1)
	sess, err := session.New(session.Config{
		Source:        source,
		EngineFactory: factory,
		Sink:          c.sink,
		Times:         intervals,
		OnLoadDone:    func(err error) { loadDone <- err },
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	// The first tick allocates the engine and launches the pipeline.
	if _, err := sess.Run(ctx); err != nil {
		return NewErrorWithExitCode(err, 1)
	}
	if cached != nil {
		defer enginemetrics.Start(ctx, cached, intervals.MetricsInterval())()
	}

	ticker := time.NewTicker(intervals.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-loadDone:
			if err != nil {
				return NewErrorWithExitCode(fmt.Errorf("%s: %s: %w",
					source.Name(), describeLoadError(err), err), 1)
			}
			workers, err := sess.Run(ctx)
			if err != nil {
				return err
			}
			log.Infof("Session %s ready, supervising %d workers",
				sess.ID(), len(workers))
			metrics.Flush()
			return c.export()
		case <-ticker.C:
			if _, err := sess.Run(ctx); err != nil {
				return err
			}
		}
	}
}

// describeLoadError names the failing stage for the operator. This is the
// session boundary, the one place that inspects the error taxonomy.
func describeLoadError(err error) string {
	var ingestErr *engine.IngestError
	var queryErr *engine.QueryError
	var streamErr *stream.StreamError
	switch {
	case errors.As(err, &ingestErr):
		return "trace not parseable"
	case errors.As(err, &queryErr):
		return "model derivation failed"
	case errors.As(err, &streamErr):
		return "trace not readable"
	default:
		return "loading failed"
	}
}

// export writes the accumulated model as JSON to the configured output,
// stdout when none is configured. Nothing is exported when the controller
// was given a sink that does not accumulate a model.
func (c *Controller) export() error {
	logSink, ok := c.sink.(*frontend.LogSink)
	if !ok {
		return nil
	}
	data, err := json.MarshalIndent(logSink.Model(), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if c.config.OutPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.config.OutPath, data, 0o644); err != nil {
		return err
	}
	log.Infof("Wrote model to %s", c.config.OutPath)
	return nil
}

// openSource opens the trace input: "-" reads stdin, http(s):// downloads,
// s3://bucket/key fetches from S3 and anything else is a file path.
func openSource(ctx context.Context, path string) (*stream.Reader, error) {
	switch {
	case path == "-":
		return stream.NewReader("stdin", os.Stdin, 0)
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return stream.OpenHTTP(ctx, nil, path)
	case strings.HasPrefix(path, "s3://"):
		bucket, key, err := splitS3URI(path)
		if err != nil {
			return nil, err
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return stream.OpenS3(ctx, s3.NewFromConfig(awsCfg), bucket, key)
	default:
		return stream.OpenFile(path)
	}
}

// splitS3URI splits s3://bucket/key/with/slashes into bucket and key.
func splitS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URI '%s', expected s3://bucket/key", uri)
	}
	return bucket, key, nil
}
