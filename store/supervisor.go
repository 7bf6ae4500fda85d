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
	"fmt"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	gerrors "github.com/tochemey/buckets/errors"
	"github.com/tochemey/buckets/eventstream"
	"github.com/tochemey/buckets/internal/metric"
	"github.com/tochemey/buckets/internal/registry"
	"github.com/tochemey/buckets/log"
	"github.com/tochemey/buckets/supervisor"
)

const (
	ensureInitialDelay = time.Millisecond
	ensureMaxDelay     = 10 * time.Millisecond
)

// bucketSupervisor creates holders on demand and owns their lifetimes.
//
// It never restarts a holder: a crashed bucket is simply gone and the next
// ensure of its name starts an empty one.
type bucketSupervisor struct {
	registry *registry.Registry[*Holder]
	children mapset.Set[*Holder]
	group    singleflight.Group

	policy          *supervisor.Supervisor
	logger          log.Logger
	events          eventstream.Stream
	metrics         *metric.BucketMetric
	crashes         *atomic.Int64
	running         *atomic.Bool
	ensureRetries   int
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	mailboxCapacity int
}

// ensure returns the live holder serving name, starting one when none exists.
// Concurrent calls for the same name always end up with the same holder.
// The caller's context bounds the wait, not the shared resolution.
func (s *bucketSupervisor) ensure(ctx context.Context, name string) (*Holder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, gerrors.ErrNameRequired
	}

	if holder, ok := s.lookup(name); ok {
		return holder, nil
	}

	// the resolution is shared by every waiting caller, so one caller giving
	// up must not fail the others
	shared := context.WithoutCancel(ctx)
	resolution := s.group.DoChan(name, func() (any, error) {
		var holder *Holder
		retrier := retry.NewRetrier(s.ensureRetries, ensureInitialDelay, ensureMaxDelay)
		err := retrier.RunContext(shared, func(context.Context) error {
			resolved, err := s.resolve(name)
			if err != nil {
				return err
			}
			holder = resolved
			return nil
		})
		return holder, err
	})

	select {
	case res := <-resolution:
		if res.Err != nil {
			return nil, res.Err
		}
		holder, ok := res.Val.(*Holder)
		if !ok || holder == nil {
			return nil, fmt.Errorf("unexpected ensure result for bucket=(%s)", name)
		}
		return holder, nil
	case <-ctx.Done():
		return nil, errors.Join(gerrors.ErrRequestCanceled, ctx.Err())
	}
}

// resolve is one attempt of ensure: it returns the registered holder once it
// is live, or spawns a new one.
func (s *bucketSupervisor) resolve(name string) (*Holder, error) {
	if existing, ok := s.registry.Lookup(name); ok {
		return s.awaitLive(existing)
	}
	return s.spawn(name)
}

// spawn starts a fresh, empty holder for name. When another holder wins the
// registration the new one is discarded and the winner is returned.
//
// The holder is tracked before it is registered so that terminateAll never
// misses a registered holder.
func (s *bucketSupervisor) spawn(name string) (*Holder, error) {
	var mailbox Mailbox
	if s.mailboxCapacity > 0 {
		mailbox = NewBoundedMailbox(s.mailboxCapacity)
	}

	holder := newHolder(name, &holderConfig{
		registry:       s.registry,
		policy:         s.policy,
		logger:         s.logger,
		requestTimeout: s.requestTimeout,
		mailbox:        mailbox,
		metrics:        s.metrics,
		onTerminated:   s.childTerminated,
	})

	s.children.Add(holder)
	if err := holder.start(); err != nil {
		s.children.Remove(holder)
		if errors.Is(err, gerrors.ErrAlreadyRegistered) {
			if winner, ok := s.registry.Lookup(name); ok {
				return s.awaitLive(winner)
			}
		}
		return nil, err
	}

	// the system may have been stopped while the holder was starting
	if !s.running.Load() {
		holder.terminate(nil)
		return nil, retry.Stop(gerrors.ErrSystemNotStarted)
	}

	// the holder may have been killed right after going live
	if !holder.IsAlive() {
		return nil, gerrors.NewErrBucketNotAlive(name)
	}

	s.logger.Infof("bucket=(%s) started", name)
	s.events.Publish(EventsTopic, &BucketStarted{
		Name:      name,
		ID:        holder.ID(),
		StartedAt: time.Now(),
	})

	if s.metrics != nil {
		s.metrics.Started().Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("bucket", name)))
	}
	return holder, nil
}

// awaitLive waits for a registered holder to finish starting.
func (s *bucketSupervisor) awaitLive(holder *Holder) (*Holder, error) {
	var timeout <-chan time.Time
	if s.requestTimeout > 0 {
		timer := time.NewTimer(s.requestTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-holder.ready:
	case <-timeout:
		return nil, gerrors.ErrRequestTimeout
	}

	if !holder.IsAlive() {
		return nil, gerrors.NewErrBucketNotAlive(holder.Name())
	}
	return holder, nil
}

// lookup returns the live holder registered under name.
func (s *bucketSupervisor) lookup(name string) (*Holder, bool) {
	holder, ok := s.registry.Lookup(name)
	if !ok || !holder.IsAlive() {
		return nil, false
	}
	return holder, true
}

// terminateAll stops every holder in parallel and waits for all of them.
// Holders still registered once the tracked ones are gone are stopped too.
// A holder that cannot stop gracefully within the shutdown timeout is killed,
// so no holder that was live at call time remains registered on return. The
// returned error reports the graceful shutdowns that failed.
func (s *bucketSupervisor) terminateAll(ctx context.Context) error {
	err := s.terminate(ctx, s.children.ToSlice())
	if remaining := s.registry.Handles(); len(remaining) > 0 {
		err = multierr.Append(err, s.terminate(ctx, remaining))
	}
	return err
}

func (s *bucketSupervisor) terminate(ctx context.Context, holders []*Holder) error {
	var (
		mu   sync.Mutex
		errs error
	)

	eg := new(errgroup.Group)
	for _, holder := range holders {
		eg.Go(func() error {
			shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
			defer cancel()

			if err := holder.Shutdown(shutdownCtx); err != nil {
				s.logger.Warnf("bucket=(%s) failed to stop gracefully, killing it: %v", holder.Name(), err)
				holder.Kill()

				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("bucket=(%s): %w", holder.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = eg.Wait()
	return errs
}

// childTerminated is invoked by a holder once it has left the registry.
func (s *bucketSupervisor) childTerminated(holder *Holder, reason error) {
	s.children.Remove(holder)

	abnormal := reason != nil
	if abnormal {
		s.crashes.Inc()
		s.logger.Errorf("bucket=(%s) terminated abnormally: %v", holder.Name(), reason)
	} else {
		s.logger.Infof("bucket=(%s) stopped", holder.Name())
	}

	s.events.Publish(EventsTopic, &BucketTerminated{
		Name:         holder.Name(),
		ID:           holder.ID(),
		Abnormal:     abnormal,
		Reason:       reason,
		TerminatedAt: time.Now(),
	})

	if s.metrics != nil {
		s.metrics.Terminated().Add(context.Background(), 1,
			otelmetric.WithAttributes(
				attribute.String("bucket", holder.Name()),
				attribute.Bool("abnormal", abnormal),
			))
	}
}

// live returns the live holders.
func (s *bucketSupervisor) live() []*Holder {
	handles := s.registry.Handles()
	holders := make([]*Holder, 0, len(handles))
	for _, holder := range handles {
		if holder.IsAlive() {
			holders = append(holders, holder)
		}
	}
	return holders
}

// len returns the number of live holders.
func (s *bucketSupervisor) len() int {
	return len(s.live())
}

// childrenNames returns the names of the live holders.
func (s *bucketSupervisor) childrenNames() []string {
	holders := s.live()
	names := make([]string, 0, len(holders))
	for _, holder := range holders {
		names = append(names, holder.Name())
	}
	return names
}
