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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrBucketNotFound is returned when a read addresses a bucket name that has no live holder.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrKeyNotFound is returned when the bucket exists but holds no entry for the requested key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrMissingEntry is returned when Update addresses a key that was never put in the bucket.
	ErrMissingEntry = errors.New("missing entry")

	// ErrNotAMapping is returned when Update targets an entry whose value is not a map,
	// or whose map cannot hold the given field or value.
	ErrNotAMapping = errors.New("entry is not a mapping")

	// ErrBucketNotAlive indicates that the bucket holder has terminated.
	ErrBucketNotAlive = errors.New("bucket is not alive")

	// ErrAlreadyRegistered is returned by the name registry when a name is already taken.
	ErrAlreadyRegistered = errors.New("name already registered")

	// ErrBucketMismatch is returned when a snapshot is committed into a holder of another bucket.
	ErrBucketMismatch = errors.New("bucket mismatch")

	// ErrNameRequired is returned when a bucket name is empty.
	ErrNameRequired = errors.New("bucket name is required")

	// ErrSystemNotStarted indicates that the buckets system has not been started before use.
	ErrSystemNotStarted = errors.New("buckets system is not running")

	// ErrSystemAlreadyStarted is returned when attempting to start a running system.
	ErrSystemAlreadyStarted = errors.New("buckets system has already started")

	// ErrRequestTimeout indicates that a request timed out while waiting for the holder to reply.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrRequestCanceled indicates that the caller gave up on a request before it completed.
	ErrRequestCanceled = errors.New("request canceled")

	// ErrMailboxFull is returned when a bounded mailbox has reached its capacity.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrBucketKilled is the termination reason of a holder that was forcibly killed.
	ErrBucketKilled = errors.New("bucket killed")

	// ErrUnhandled is returned when a holder receives a message it cannot handle.
	ErrUnhandled = errors.New("unhandled message")
)

// NewErrBucketNotFound formats an ErrBucketNotFound with the given bucket name.
func NewErrBucketNotFound(name string) error {
	return fmt.Errorf("bucket=(%s) %w", name, ErrBucketNotFound)
}

// NewErrBucketNotAlive formats an ErrBucketNotAlive with the given bucket name.
func NewErrBucketNotAlive(name string) error {
	return fmt.Errorf("bucket=(%s) %w", name, ErrBucketNotAlive)
}

// NewErrKeyNotFound formats an ErrKeyNotFound with the bucket name and key.
func NewErrKeyNotFound(name string, key any) error {
	return fmt.Errorf("bucket=(%s) key=(%v) %w", name, key, ErrKeyNotFound)
}

// NewErrMissingEntry formats an ErrMissingEntry with the bucket name and key.
func NewErrMissingEntry(name string, key any) error {
	return fmt.Errorf("bucket=(%s) key=(%v) %w", name, key, ErrMissingEntry)
}

// NewErrNotAMapping wraps the cause of an invalid Update with ErrNotAMapping.
func NewErrNotAMapping(name string, key any, cause error) error {
	return errors.Join(fmt.Errorf("bucket=(%s) key=(%v) %w", name, key, ErrNotAMapping), cause)
}

// NewErrAlreadyRegistered formats an ErrAlreadyRegistered for the given name.
func NewErrAlreadyRegistered(name string) error {
	return fmt.Errorf("name=(%s) %w", name, ErrAlreadyRegistered)
}

// NewErrBucketMismatch formats an ErrBucketMismatch.
func NewErrBucketMismatch(holder, snapshot string) error {
	return fmt.Errorf("holder=(%s) snapshot=(%s) %w", holder, snapshot, ErrBucketMismatch)
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// InternalError defines an error raised when a holder detects a broken
// invariant while handling a request.
type InternalError struct {
	err error
}

// enforce compilation error
var _ error = (*InternalError)(nil)

// NewInternalError returns an intance of InternalError
func NewInternalError(err error) *InternalError {
	return &InternalError{
		err: fmt.Errorf("internal error: %w", err),
	}
}

// Error implements the standard error interface
func (i *InternalError) Error() string {
	return i.err.Error()
}

func (i *InternalError) Unwrap() error {
	return i.err
}

// AnyError defines the any error type
// this is used to represent any error when handling the supervisor directive
type AnyError struct{}

// interface guard
var _ error = (*AnyError)(nil)

// Error implements error.
func (*AnyError) Error() string {
	return "*"
}
