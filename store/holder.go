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
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	"github.com/tochemey/buckets/bucket"
	gerrors "github.com/tochemey/buckets/errors"
	"github.com/tochemey/buckets/internal/metric"
	"github.com/tochemey/buckets/internal/registry"
	"github.com/tochemey/buckets/log"
	"github.com/tochemey/buckets/supervisor"
)

const (
	idle uint32 = iota
	busy
)

const (
	startingState uint32 = iota
	liveState
	terminatedState
)

// holderConfig carries what a holder needs from its supervisor.
type holderConfig struct {
	registry       *registry.Registry[*Holder]
	policy         *supervisor.Supervisor
	logger         log.Logger
	requestTimeout time.Duration
	mailbox        Mailbox
	metrics        *metric.BucketMetric
	onTerminated   func(holder *Holder, reason error)
}

// Holder is the process owning the live state of a single bucket.
//
// Requests are queued in the holder's mailbox and processed one at a time in
// arrival order by at most one goroutine, which only exists while there is
// work to do. The state is never shared: readers get an immutable snapshot.
//
// A Holder goes through Starting -> Live -> Terminated. Terminated is final;
// every request sent afterwards fails with ErrBucketNotAlive.
type Holder struct {
	id   string
	name string

	// current is only read and written by the processing goroutine
	current bucket.Bucket

	mailbox    Mailbox
	processing *atomic.Uint32
	state      *atomic.Uint32

	registry       *registry.Registry[*Holder]
	policy         *supervisor.Supervisor
	logger         log.Logger
	requestTimeout time.Duration
	metrics        *metric.BucketMetric
	onTerminated   func(holder *Holder, reason error)

	startedAt      *atomic.Time
	processedCount *atomic.Int64
	reason         *atomic.Error
	terminated     chan struct{}

	// closed once start returned, whether the holder went live or not
	ready chan struct{}
}

func newHolder(name string, config *holderConfig) *Holder {
	id := uuid.NewString()
	mailbox := config.mailbox
	if mailbox == nil {
		mailbox = NewDefaultMailbox()
	}

	logger := config.logger
	if logger == nil {
		logger = log.DefaultLogger
	}

	policy := config.policy
	if policy == nil {
		policy = supervisor.NewSupervisor()
	}

	return &Holder{
		id:             id,
		name:           name,
		current:        bucket.New(name),
		mailbox:        mailbox,
		processing:     atomic.NewUint32(idle),
		state:          atomic.NewUint32(startingState),
		registry:       config.registry,
		policy:         policy,
		logger:         logger.With("bucket", name, "id", id),
		requestTimeout: config.requestTimeout,
		metrics:        config.metrics,
		onTerminated:   config.onTerminated,
		startedAt:      atomic.NewTime(time.Time{}),
		processedCount: atomic.NewInt64(0),
		reason:         atomic.NewError(nil),
		terminated:     make(chan struct{}),
		ready:          make(chan struct{}),
	}
}

// ID returns the unique identifier of this holder incarnation.
func (h *Holder) ID() string {
	return h.id
}

// Name returns the name of the bucket the holder serves.
func (h *Holder) Name() string {
	return h.name
}

// IsAlive reports whether the holder is live.
func (h *Holder) IsAlive() bool {
	return h.state.Load() == liveState
}

// Uptime returns how long the holder has been live, or zero once terminated.
func (h *Holder) Uptime() time.Duration {
	if !h.IsAlive() {
		return 0
	}
	return time.Since(h.startedAt.Load())
}

// ProcessedCount returns the number of requests the holder handled.
func (h *Holder) ProcessedCount() int64 {
	return h.processedCount.Load()
}

// Reason returns why the holder terminated. It is nil while the holder is
// live and after a graceful shutdown.
func (h *Holder) Reason() error {
	return h.reason.Load()
}

// Terminated returns a channel closed once the holder has terminated.
func (h *Holder) Terminated() <-chan struct{} {
	return h.terminated
}

// Current returns the latest committed snapshot.
func (h *Holder) Current(ctx context.Context) (bucket.Bucket, error) {
	value, err := h.ask(ctx, new(getState))
	if err != nil {
		return bucket.Bucket{}, err
	}
	return value.(bucket.Bucket), nil
}

// Replace atomically overwrites the live state with snapshot.
// The snapshot must carry the holder's name.
func (h *Holder) Replace(ctx context.Context, snapshot bucket.Bucket) error {
	_, err := h.ask(ctx, &replaceState{bucket: snapshot})
	return err
}

// Modify applies fn to the current state inside the holder and commits the
// returned snapshot when fn succeeds. No other request interleaves with fn.
func (h *Holder) Modify(ctx context.Context, fn func(bucket.Bucket) (bucket.Bucket, error)) (bucket.Bucket, error) {
	value, err := h.ask(ctx, &modifyState{fn: fn})
	if err != nil {
		return bucket.Bucket{}, err
	}
	return value.(bucket.Bucket), nil
}

// Shutdown stops the holder gracefully once the requests queued ahead of
// the stop signal are processed. Shutting down a terminated holder is a no-op.
func (h *Holder) Shutdown(ctx context.Context) error {
	if _, err := h.ask(ctx, new(poisonPill)); err != nil && !errors.Is(err, gerrors.ErrBucketNotAlive) {
		return err
	}

	select {
	case <-h.terminated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kill terminates the holder immediately and abnormally. Its state is lost
// and queued requests fail with ErrBucketNotAlive.
func (h *Holder) Kill() {
	h.terminate(gerrors.ErrBucketKilled)
}

// start registers the holder under its name and makes it live.
func (h *Holder) start() error {
	if err := h.register(); err != nil {
		return err
	}
	return h.activate()
}

// register installs the starting holder in the registry. A holder losing
// the name to another one terminates without ever going live.
func (h *Holder) register() error {
	if err := h.registry.Register(h.name, h); err != nil {
		h.terminate(err)
		close(h.ready)
		return err
	}
	return nil
}

// activate makes a registered holder live. It fails when the holder was
// stopped while starting.
func (h *Holder) activate() error {
	defer close(h.ready)

	h.startedAt.Store(time.Now())
	if !h.state.CompareAndSwap(startingState, liveState) {
		h.registry.Unregister(h.name, h)
		return gerrors.NewErrBucketNotAlive(h.name)
	}

	h.logger.Debug("bucket started")
	return nil
}

// terminate moves the holder to its final state. Only the first call wins.
// The termination callback only fires for a holder that went live.
func (h *Holder) terminate(reason error) bool {
	var previous uint32
	for {
		previous = h.state.Load()
		if previous == terminatedState {
			return false
		}
		if h.state.CompareAndSwap(previous, terminatedState) {
			break
		}
	}

	h.registry.Unregister(h.name, h)
	h.reason.Store(reason)
	if previous == liveState && h.onTerminated != nil {
		h.onTerminated(h, reason)
	}
	close(h.terminated)
	return true
}

// ask sends a message to the holder and waits for the reply. The request
// carries the request timeout in its context so that a request abandoned
// while still queued is never applied.
func (h *Holder) ask(ctx context.Context, message any) (any, error) {
	if h.state.Load() == terminatedState {
		return nil, gerrors.NewErrBucketNotAlive(h.name)
	}

	requestCtx, cancel := ctx, context.CancelFunc(func() {})
	if h.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, h.requestTimeout)
	}
	defer cancel()

	req := newRequest(requestCtx, message)
	if err := h.mailbox.Enqueue(req); err != nil {
		return nil, err
	}
	h.process()

	select {
	case res := <-req.reply:
		return res.value, res.err
	case <-requestCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(gerrors.ErrRequestCanceled, err)
		}
		return nil, gerrors.ErrRequestTimeout
	}
}

// process starts the processing loop unless one is already running.
func (h *Holder) process() {
	if !h.processing.CompareAndSwap(idle, busy) {
		return
	}

	go func() {
		for {
			if req := h.mailbox.Dequeue(); req != nil {
				h.handle(req)
				continue
			}

			h.processing.Store(idle)

			// a producer may have enqueued between the last Dequeue and the Store
			if !h.mailbox.IsEmpty() && h.processing.CompareAndSwap(idle, busy) {
				continue
			}
			return
		}
	}()
}

func (h *Holder) handle(req *request) {
	if h.state.Load() == terminatedState {
		req.respond(nil, gerrors.NewErrBucketNotAlive(h.name))
		return
	}

	// the caller gave up or the request timed out while queued
	if err := req.ctx.Err(); err != nil {
		req.respond(nil, err)
		return
	}

	h.processedCount.Inc()
	if h.metrics != nil {
		h.metrics.Requests().Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("bucket", h.name)))
	}

	defer h.recovery(req)

	switch msg := req.message.(type) {
	case *getState:
		req.respond(h.current, nil)
	case *replaceState:
		if msg.bucket.Name() != h.name {
			req.respond(nil, gerrors.NewErrBucketMismatch(h.name, msg.bucket.Name()))
			return
		}
		h.current = msg.bucket
		req.respond(nil, nil)
	case *modifyState:
		next, err := msg.fn(h.current)
		if err != nil {
			req.respond(nil, err)
			return
		}
		if next.Name() != h.name {
			req.respond(nil, gerrors.NewErrBucketMismatch(h.name, next.Name()))
			return
		}
		h.current = next
		req.respond(next, nil)
	case *poisonPill:
		if h.terminate(nil) {
			h.logger.Debug("bucket stopped")
		}
		req.respond(nil, nil)
	default:
		h.fault(req, gerrors.NewInternalError(fmt.Errorf("%w: %T", gerrors.ErrUnhandled, msg)))
	}
}

// recovery turns a panic raised while handling req into a fault.
func (h *Holder) recovery(req *request) {
	r := recover()
	if r == nil {
		return
	}

	var pe *gerrors.PanicError
	switch err, ok := r.(error); {
	case ok && errors.As(err, &pe):
	case ok:
		pc, fn, line, _ := runtime.Caller(2)
		pe = gerrors.NewPanicError(fmt.Errorf("%w at %s[%s:%d]", err, runtime.FuncForPC(pc).Name(), fn, line))
	default:
		pc, fn, line, _ := runtime.Caller(2)
		pe = gerrors.NewPanicError(fmt.Errorf("%#v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line))
	}

	h.fault(req, pe)
}

// fault applies the supervision policy to a failure raised while handling req.
// The faulting request always fails; only the holder itself is affected.
func (h *Holder) fault(req *request, err error) {
	switch h.policy.Decide(err) {
	case supervisor.ResumeDirective:
		h.logger.Warnf("bucket resumed after failure: %v", err)
	default:
		h.logger.Errorf("bucket stopped after failure: %v", err)
		h.terminate(err)
	}
	req.respond(nil, err)
}
