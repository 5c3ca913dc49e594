// Copyright The Perfetto Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/Falcon-OS/platform-external-perfetto/internal/controller"

import (
	"github.com/Falcon-OS/platform-external-perfetto/engine"
	"github.com/Falcon-OS/platform-external-perfetto/frontend"
)

type Option interface {
	applyOption(*Controller) *Controller
}
type controllerOptionFunc func(*Controller) *Controller

func (f controllerOptionFunc) applyOption(c *Controller) *Controller {
	return f(c)
}

// WithSink sets a custom frontend sink for the controller.
// This defaults to a [frontend.LogSink].
func WithSink(sink frontend.Sink) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.sink = sink
		return c
	})
}

// WithEngineFactory sets a custom engine factory for the session.
// This defaults to connecting an httprpc client to the configured engine
// address, wrapped in a query cache when one is configured.
func WithEngineFactory(factory engine.Factory) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.factory = factory
		return c
	})
}
