// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package store

import (
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/buckets/log"
	"github.com/tochemey/buckets/supervisor"
)

const (
	// DefaultRequestTimeout bounds how long a caller waits for a holder reply.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds the graceful stop of a single holder.
	DefaultShutdownTimeout = 3 * time.Second
	// DefaultEnsureRetries bounds the resolve-or-create race loop.
	DefaultEnsureRetries = 5
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(sys *System)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*System)

func (f OptionFunc) Apply(sys *System) {
	f(sys)
}

// WithLogger sets the system logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(sys *System) {
		if logger != nil {
			sys.logger = logger
		}
	})
}

// WithRequestTimeout sets how long a caller waits for a holder to reply.
// A non-positive timeout leaves the caller's context as the only bound.
func WithRequestTimeout(timeout time.Duration) Option {
	return OptionFunc(func(sys *System) {
		sys.requestTimeout = timeout
	})
}

// WithShutdownTimeout sets how long a holder is given to stop gracefully
// during DropAll and Stop before it is killed.
func WithShutdownTimeout(timeout time.Duration) Option {
	return OptionFunc(func(sys *System) {
		if timeout > 0 {
			sys.shutdownTimeout = timeout
		}
	})
}

// WithSupervisor sets the policy applied when a holder faults.
func WithSupervisor(policy *supervisor.Supervisor) Option {
	return OptionFunc(func(sys *System) {
		if policy != nil {
			sys.policy = policy
		}
	})
}

// WithMailboxCapacity bounds every holder mailbox. Requests beyond the
// capacity fail with ErrMailboxFull. Zero means unbounded.
func WithMailboxCapacity(capacity int) Option {
	return OptionFunc(func(sys *System) {
		if capacity >= 0 {
			sys.mailboxCapacity = capacity
		}
	})
}

// WithEnsureRetries sets the number of attempts made to resolve or create a
// bucket when its holder disappears in the middle of the resolution.
func WithEnsureRetries(retries int) Option {
	return OptionFunc(func(sys *System) {
		if retries > 0 {
			sys.ensureRetries = retries
		}
	})
}

// WithMetrics enables the OpenTelemetry bucket instruments.
func WithMetrics() Option {
	return OptionFunc(func(sys *System) {
		sys.metricsEnabled = true
	})
}

// WithMeterProvider enables metrics using the given MeterProvider instead of
// the global one.
func WithMeterProvider(provider otelmetric.MeterProvider) Option {
	return OptionFunc(func(sys *System) {
		sys.metricsEnabled = true
		sys.meterProvider = provider
	})
}
