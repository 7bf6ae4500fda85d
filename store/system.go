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
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/buckets/bucket"
	gerrors "github.com/tochemey/buckets/errors"
	"github.com/tochemey/buckets/eventstream"
	"github.com/tochemey/buckets/internal/metric"
	"github.com/tochemey/buckets/internal/registry"
	"github.com/tochemey/buckets/log"
	"github.com/tochemey/buckets/supervisor"
)

// System is the entry point of the buckets service. It wires the name
// registry, the bucket supervisor and the lifecycle event stream together.
//
// A program creates one System, starts it before use and stops it on
// teardown. Every bucket operation goes through it.
type System struct {
	// serializes Start and Stop
	sem     sync.Mutex
	started *atomic.Bool

	logger          log.Logger
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	policy          *supervisor.Supervisor
	mailboxCapacity int
	ensureRetries   int
	metricsEnabled  bool
	meterProvider   otelmetric.MeterProvider

	registry     *registry.Registry[*Holder]
	events       *eventstream.EventsStream
	supervisor   *bucketSupervisor
	registration otelmetric.Registration
}

// NewSystem creates a System with the given options. Call Start before use.
func NewSystem(opts ...Option) *System {
	sys := &System{
		started:         atomic.NewBool(false),
		logger:          log.DefaultLogger,
		requestTimeout:  DefaultRequestTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		ensureRetries:   DefaultEnsureRetries,
	}

	for _, opt := range opts {
		opt.Apply(sys)
	}

	if sys.policy == nil {
		sys.policy = supervisor.NewSupervisor()
	}

	sys.registry = registry.New[*Holder]()
	sys.events = eventstream.New()
	sys.supervisor = &bucketSupervisor{
		registry:        sys.registry,
		children:        mapset.NewSet[*Holder](),
		policy:          sys.policy,
		logger:          sys.logger,
		events:          sys.events,
		crashes:         atomic.NewInt64(0),
		running:         sys.started,
		ensureRetries:   sys.ensureRetries,
		requestTimeout:  sys.requestTimeout,
		shutdownTimeout: sys.shutdownTimeout,
		mailboxCapacity: sys.mailboxCapacity,
	}

	return sys
}

// Start starts the system.
func (x *System) Start(context.Context) error {
	x.sem.Lock()
	defer x.sem.Unlock()

	if x.started.Load() {
		return gerrors.ErrSystemAlreadyStarted
	}

	if x.metricsEnabled {
		if err := x.registerMetrics(); err != nil {
			x.logger.Errorf("failed to register bucket metrics: %v", err)
			return err
		}
	}

	x.started.Store(true)
	x.logger.Info("buckets system started")
	return nil
}

// Stop drops every bucket and stops the system. Buckets that do not stop
// within the shutdown timeout are killed.
func (x *System) Stop(ctx context.Context) error {
	x.sem.Lock()
	defer x.sem.Unlock()

	if !x.started.Load() {
		return gerrors.ErrSystemNotStarted
	}

	// no new bucket can be created past this point
	x.started.Store(false)

	err := x.supervisor.terminateAll(ctx)
	if x.registration != nil {
		err = multierr.Append(err, x.registration.Unregister())
		x.registration = nil
	}

	x.events.Close()
	x.logger.Info("buckets system stopped")
	return multierr.Append(err, x.logger.Flush())
}

// Running reports whether the system is started.
func (x *System) Running() bool {
	return x.started.Load()
}

// Bucket returns the current snapshot of the named bucket, creating an empty
// bucket when none is live.
func (x *System) Bucket(ctx context.Context, name string) (bucket.Bucket, error) {
	holder, err := x.Ensure(ctx, name)
	if err != nil {
		return bucket.Bucket{}, err
	}
	return holder.Current(ctx)
}

// Ensure returns the live holder of the named bucket, creating it when needed.
// Concurrent calls for the same name return the same holder.
func (x *System) Ensure(ctx context.Context, name string) (*Holder, error) {
	if !x.started.Load() {
		return nil, gerrors.ErrSystemNotStarted
	}
	return x.supervisor.ensure(ctx, name)
}

// Lookup returns the live holder of the named bucket without creating it.
func (x *System) Lookup(name string) (*Holder, bool) {
	if !x.started.Load() {
		return nil, false
	}
	return x.supervisor.lookup(name)
}

// BucketOf returns the current snapshot held by the given holder.
// It fails with ErrBucketNotAlive once the holder has terminated.
func (x *System) BucketOf(ctx context.Context, holder *Holder) (bucket.Bucket, error) {
	if !x.started.Load() {
		return bucket.Bucket{}, gerrors.ErrSystemNotStarted
	}
	if holder == nil {
		return bucket.Bucket{}, gerrors.ErrBucketNotAlive
	}
	return holder.Current(ctx)
}

// Commit replaces the live state of the snapshot's bucket with the snapshot,
// creating the bucket when needed.
func (x *System) Commit(ctx context.Context, snapshot bucket.Bucket) error {
	holder, err := x.Ensure(ctx, snapshot.Name())
	if err != nil {
		return err
	}
	return holder.Replace(ctx, snapshot)
}

// Modify runs fn against the named bucket as a single serialized step and
// commits the result when fn succeeds.
func (x *System) Modify(ctx context.Context, name string, fn func(bucket.Bucket) (bucket.Bucket, error)) (bucket.Bucket, error) {
	holder, err := x.Ensure(ctx, name)
	if err != nil {
		return bucket.Bucket{}, err
	}
	return holder.Modify(ctx, fn)
}

// Get returns the value stored under key in the named bucket.
func (x *System) Get(ctx context.Context, name string, key any) (any, error) {
	snapshot, err := x.read(ctx, name)
	if err != nil {
		return nil, err
	}

	value, ok := snapshot.Get(key)
	if !ok {
		return nil, gerrors.NewErrKeyNotFound(name, key)
	}
	return value, nil
}

// Keys returns the keys of the named bucket.
func (x *System) Keys(ctx context.Context, name string) ([]any, error) {
	snapshot, err := x.read(ctx, name)
	if err != nil {
		return nil, err
	}
	return snapshot.Keys(), nil
}

// Values returns the values of the named bucket.
func (x *System) Values(ctx context.Context, name string) ([]any, error) {
	snapshot, err := x.read(ctx, name)
	if err != nil {
		return nil, err
	}
	return snapshot.Values(), nil
}

// DropAll terminates every live bucket and waits until none remains.
// Subsequent lookups start fresh, empty buckets.
func (x *System) DropAll(ctx context.Context) error {
	if !x.started.Load() {
		return gerrors.ErrSystemNotStarted
	}
	return x.supervisor.terminateAll(ctx)
}

// Kill forcibly terminates the named bucket. Its state is discarded and the
// termination counts as a crash.
func (x *System) Kill(ctx context.Context, name string) error {
	if !x.started.Load() {
		return gerrors.ErrSystemNotStarted
	}

	holder, ok := x.supervisor.lookup(name)
	if !ok {
		return gerrors.NewErrBucketNotFound(name)
	}

	holder.Kill()
	select {
	case <-holder.Terminated():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Buckets returns the sorted names of the live buckets.
func (x *System) Buckets() []string {
	names := x.supervisor.childrenNames()
	slices.Sort(names)
	return names
}

// BucketsCount returns the number of live buckets.
func (x *System) BucketsCount() int {
	return x.supervisor.len()
}

// CrashCount returns the number of abnormal bucket terminations.
func (x *System) CrashCount() int64 {
	return x.supervisor.crashes.Load()
}

// Subscribe creates a subscriber receiving the bucket lifecycle events.
func (x *System) Subscribe() (eventstream.Subscriber, error) {
	if !x.started.Load() {
		return nil, gerrors.ErrSystemNotStarted
	}

	subscriber := x.events.AddSubscriber()
	x.events.Subscribe(subscriber, EventsTopic)
	return subscriber, nil
}

// Unsubscribe removes the given subscriber and shuts it down.
func (x *System) Unsubscribe(subscriber eventstream.Subscriber) error {
	if !x.started.Load() {
		return gerrors.ErrSystemNotStarted
	}

	x.events.RemoveSubscriber(subscriber)
	return nil
}

// Logger returns the system logger.
func (x *System) Logger() log.Logger {
	return x.logger
}

// read returns the snapshot of an existing bucket. Reads never create buckets.
func (x *System) read(ctx context.Context, name string) (bucket.Bucket, error) {
	if !x.started.Load() {
		return bucket.Bucket{}, gerrors.ErrSystemNotStarted
	}

	holder, ok := x.supervisor.lookup(name)
	if !ok {
		return bucket.Bucket{}, gerrors.NewErrBucketNotFound(name)
	}

	snapshot, err := holder.Current(ctx)
	if err != nil {
		if errors.Is(err, gerrors.ErrBucketNotAlive) {
			return bucket.Bucket{}, gerrors.NewErrBucketNotFound(name)
		}
		return bucket.Bucket{}, err
	}
	return snapshot, nil
}

// registerMetrics creates the bucket instruments and the callback observing
// the live and crashed bucket counts.
func (x *System) registerMetrics() error {
	meter := metric.New(metric.WithMeterProvider(x.meterProvider)).Meter()
	instruments, err := metric.NewBucketMetric(meter)
	if err != nil {
		return err
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer otelmetric.Observer) error {
		observer.ObserveInt64(instruments.LiveCount(), int64(x.supervisor.len()))
		observer.ObserveInt64(instruments.CrashCount(), x.supervisor.crashes.Load())
		return nil
	}, instruments.LiveCount(), instruments.CrashCount())
	if err != nil {
		return err
	}

	x.supervisor.metrics = instruments
	x.registration = registration
	return nil
}
