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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/buckets/bucket"
	gerrors "github.com/tochemey/buckets/errors"
	"github.com/tochemey/buckets/internal/registry"
	"github.com/tochemey/buckets/log"
	"github.com/tochemey/buckets/supervisor"
)

func newTestHolder(t *testing.T, reg *registry.Registry[*Holder], name string) *Holder {
	t.Helper()
	holder := newHolder(name, &holderConfig{
		registry:       reg,
		logger:         log.DiscardLogger,
		requestTimeout: time.Second,
	})
	require.NoError(t, holder.start())
	t.Cleanup(func() { _ = holder.Shutdown(context.Background()) })
	return holder
}

func TestHolder(t *testing.T) {
	ctx := context.Background()

	t.Run("With_start_registering_the_holder", func(t *testing.T) {
		reg := registry.New[*Holder]()
		holder := newTestHolder(t, reg, "list")

		assert.True(t, holder.IsAlive())
		assert.Equal(t, "list", holder.Name())
		assert.NotEmpty(t, holder.ID())
		assert.Positive(t, holder.Uptime())

		registered, ok := reg.Lookup("list")
		require.True(t, ok)
		assert.Same(t, holder, registered)

		current, err := holder.Current(ctx)
		require.NoError(t, err)
		assert.True(t, current.IsEmpty())
		assert.Equal(t, "list", current.Name())
	})

	t.Run("With_second_holder_losing_the_registration", func(t *testing.T) {
		reg := registry.New[*Holder]()
		winner := newTestHolder(t, reg, "list")

		loser := newHolder("list", &holderConfig{registry: reg, logger: log.DiscardLogger})
		err := loser.start()
		require.ErrorIs(t, err, gerrors.ErrAlreadyRegistered)
		assert.False(t, loser.IsAlive())

		select {
		case <-loser.Terminated():
		default:
			t.Fatal("losing holder should be terminated")
		}

		registered, ok := reg.Lookup("list")
		require.True(t, ok)
		assert.Same(t, winner, registered)
	})

	t.Run("With_replace_and_modify", func(t *testing.T) {
		holder := newTestHolder(t, registry.New[*Holder](), "list")

		require.NoError(t, holder.Replace(ctx, bucket.Put(bucket.New("list"), "milk", 1)))

		next, err := holder.Modify(ctx, func(current bucket.Bucket) (bucket.Bucket, error) {
			return bucket.Put(current, "eggs", 12), nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, next.Len())

		current, err := holder.Current(ctx)
		require.NoError(t, err)
		assert.True(t, current.Equal(next))
		assert.EqualValues(t, 3, holder.ProcessedCount())
	})

	t.Run("With_replace_of_another_bucket", func(t *testing.T) {
		holder := newTestHolder(t, registry.New[*Holder](), "list")

		err := holder.Replace(ctx, bucket.Put(bucket.New("other"), "milk", 1))
		require.ErrorIs(t, err, gerrors.ErrBucketMismatch)

		_, err = holder.Modify(ctx, func(bucket.Bucket) (bucket.Bucket, error) {
			return bucket.New("other"), nil
		})
		require.ErrorIs(t, err, gerrors.ErrBucketMismatch)

		current, err := holder.Current(ctx)
		require.NoError(t, err)
		assert.True(t, current.IsEmpty())
		assert.True(t, holder.IsAlive())
	})

	t.Run("With_modify_error_leaving_state_untouched", func(t *testing.T) {
		holder := newTestHolder(t, registry.New[*Holder](), "list")
		require.NoError(t, holder.Replace(ctx, bucket.Put(bucket.New("list"), "milk", 1)))

		_, err := holder.Modify(ctx, func(current bucket.Bucket) (bucket.Bucket, error) {
			return bucket.Update(current, "milk", "brand", "acme")
		})
		require.ErrorIs(t, err, gerrors.ErrNotAMapping)
		assert.True(t, holder.IsAlive())

		current, err := holder.Current(ctx)
		require.NoError(t, err)
		value, ok := current.Get("milk")
		require.True(t, ok)
		assert.Equal(t, 1, value)
	})

	t.Run("With_shutdown_after_queued_requests", func(t *testing.T) {
		reg := registry.New[*Holder]()
		holder := newTestHolder(t, reg, "list")

		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			_, err := holder.Modify(ctx, func(current bucket.Bucket) (bucket.Bucket, error) {
				<-release
				return bucket.Put(current, "milk", 1), nil
			})
			done <- err
		}()

		require.Eventually(t, func() bool { return holder.ProcessedCount() == 1 }, time.Second, 5*time.Millisecond)

		stopped := make(chan error, 1)
		go func() { stopped <- holder.Shutdown(ctx) }()

		close(release)
		require.NoError(t, <-done)
		require.NoError(t, <-stopped)

		assert.False(t, holder.IsAlive())
		assert.Zero(t, holder.Uptime())
		assert.NoError(t, holder.Reason())
		_, ok := reg.Lookup("list")
		assert.False(t, ok)

		_, err := holder.Current(ctx)
		require.ErrorIs(t, err, gerrors.ErrBucketNotAlive)

		// stopping twice is harmless
		require.NoError(t, holder.Shutdown(ctx))
	})

	t.Run("With_kill", func(t *testing.T) {
		reg := registry.New[*Holder]()
		var reason error
		holder := newHolder("list", &holderConfig{
			registry: reg,
			logger:   log.DiscardLogger,
			onTerminated: func(_ *Holder, err error) {
				reason = err
			},
		})
		require.NoError(t, holder.start())

		holder.Kill()
		assert.False(t, holder.IsAlive())
		require.ErrorIs(t, reason, gerrors.ErrBucketKilled)
		require.ErrorIs(t, holder.Reason(), gerrors.ErrBucketKilled)

		_, ok := reg.Lookup("list")
		assert.False(t, ok)

		err := holder.Replace(ctx, bucket.New("list"))
		require.ErrorIs(t, err, gerrors.ErrBucketNotAlive)
	})

	t.Run("With_panic_stopping_the_holder", func(t *testing.T) {
		reg := registry.New[*Holder]()
		holder := newHolder("list", &holderConfig{registry: reg, logger: log.DiscardLogger})
		require.NoError(t, holder.start())

		_, err := holder.Modify(ctx, func(bucket.Bucket) (bucket.Bucket, error) {
			panic("boom")
		})

		var pe *gerrors.PanicError
		require.True(t, errors.As(err, &pe))
		assert.Contains(t, err.Error(), "boom")
		assert.False(t, holder.IsAlive())
		require.ErrorAs(t, holder.Reason(), &pe)

		_, ok := reg.Lookup("list")
		assert.False(t, ok)
	})

	t.Run("With_panic_resumed_by_policy", func(t *testing.T) {
		holder := newHolder("list", &holderConfig{
			registry: registry.New[*Holder](),
			logger:   log.DiscardLogger,
			policy:   supervisor.NewSupervisor(supervisor.WithDirective(&gerrors.PanicError{}, supervisor.ResumeDirective)),
		})
		require.NoError(t, holder.start())
		t.Cleanup(func() { _ = holder.Shutdown(context.Background()) })

		require.NoError(t, holder.Replace(ctx, bucket.Put(bucket.New("list"), "milk", 1)))

		_, err := holder.Modify(ctx, func(bucket.Bucket) (bucket.Bucket, error) {
			panic(errors.New("boom"))
		})
		require.Error(t, err)
		assert.True(t, holder.IsAlive())

		current, err := holder.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, current.Len())
	})

	t.Run("With_unhandled_message", func(t *testing.T) {
		holder := newHolder("list", &holderConfig{registry: registry.New[*Holder](), logger: log.DiscardLogger})
		require.NoError(t, holder.start())

		_, err := holder.ask(ctx, "unknown")
		require.ErrorIs(t, err, gerrors.ErrUnhandled)

		var internal *gerrors.InternalError
		require.ErrorAs(t, err, &internal)
		assert.False(t, holder.IsAlive())
	})

	t.Run("With_request_timeout", func(t *testing.T) {
		holder := newHolder("list", &holderConfig{
			registry:       registry.New[*Holder](),
			logger:         log.DiscardLogger,
			requestTimeout: 50 * time.Millisecond,
		})
		require.NoError(t, holder.start())

		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			_, err := holder.Modify(ctx, func(current bucket.Bucket) (bucket.Bucket, error) {
				<-release
				return current, nil
			})
			done <- err
		}()

		require.Eventually(t, func() bool { return holder.ProcessedCount() == 1 }, time.Second, 5*time.Millisecond)
		require.ErrorIs(t, <-done, gerrors.ErrRequestTimeout)

		// a write that timed out while queued is never applied
		err := holder.Replace(ctx, bucket.Put(bucket.New("list"), "milk", 1))
		require.ErrorIs(t, err, gerrors.ErrRequestTimeout)

		close(release)

		current, err := holder.Current(ctx)
		require.NoError(t, err)
		assert.False(t, current.Has("milk"))
		assert.EqualValues(t, 2, holder.ProcessedCount())

		require.NoError(t, holder.Shutdown(ctx))
	})

	t.Run("With_stop_while_starting", func(t *testing.T) {
		reg := registry.New[*Holder]()
		notified := false
		holder := newHolder("list", &holderConfig{
			registry: reg,
			logger:   log.DiscardLogger,
			onTerminated: func(*Holder, error) {
				notified = true
			},
		})

		require.NoError(t, holder.register())
		_, ok := reg.Lookup("list")
		require.True(t, ok)

		require.NoError(t, holder.Shutdown(ctx))
		_, ok = reg.Lookup("list")
		require.False(t, ok)

		err := holder.activate()
		require.ErrorIs(t, err, gerrors.ErrBucketNotAlive)
		assert.False(t, holder.IsAlive())
		assert.False(t, notified)
		assert.Zero(t, reg.Len())
	})

	t.Run("With_canceled_caller", func(t *testing.T) {
		holder := newTestHolder(t, registry.New[*Holder](), "list")

		release := make(chan struct{})
		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			<-release
			cancel()
		}()

		_, err := holder.Modify(cancelCtx, func(current bucket.Bucket) (bucket.Bucket, error) {
			close(release)
			time.Sleep(100 * time.Millisecond)
			return bucket.Put(current, "milk", 1), nil
		})
		require.ErrorIs(t, err, gerrors.ErrRequestCanceled)
		require.ErrorIs(t, err, context.Canceled)

		// a request whose caller is gone is not applied
		_, err = holder.Modify(cancelCtx, func(current bucket.Bucket) (bucket.Bucket, error) {
			return bucket.Put(current, "eggs", 12), nil
		})
		require.Error(t, err)

		require.Eventually(t, func() bool {
			current, err := holder.Current(ctx)
			return err == nil && current.Has("milk") && !current.Has("eggs")
		}, time.Second, 10*time.Millisecond)
	})
}
