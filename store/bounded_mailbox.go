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
	"github.com/Workiva/go-datastructures/queue"

	"github.com/tochemey/buckets/errors"
)

// BoundedMailbox is a fixed-capacity MPSC mailbox backed by a ring buffer.
//
// Enqueue never blocks: when the mailbox is full the request is rejected with
// ErrMailboxFull, which gives callers back-pressure instead of unbounded
// memory growth on a hot bucket.
type BoundedMailbox struct {
	underlying *queue.RingBuffer
}

// enforce compilation error
var _ Mailbox = (*BoundedMailbox)(nil)

// NewBoundedMailbox creates a bounded mailbox. The ring buffer rounds the
// capacity up to the next power of two.
func NewBoundedMailbox(capacity int) *BoundedMailbox {
	return &BoundedMailbox{
		underlying: queue.NewRingBuffer(uint64(capacity)),
	}
}

// Enqueue inserts a request into the mailbox or fails with ErrMailboxFull.
func (mailbox *BoundedMailbox) Enqueue(req *request) error {
	ok, err := mailbox.underlying.Offer(req)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrMailboxFull
	}
	return nil
}

// Dequeue removes and returns the next request, or nil when empty.
func (mailbox *BoundedMailbox) Dequeue() *request {
	if mailbox.underlying.Len() == 0 {
		return nil
	}
	item, err := mailbox.underlying.Get()
	if err != nil {
		return nil
	}
	req, _ := item.(*request)
	return req
}

// IsEmpty reports whether the mailbox currently has no requests.
func (mailbox *BoundedMailbox) IsEmpty() bool {
	return mailbox.underlying.Len() == 0
}

// Len returns the current number of requests in the mailbox.
func (mailbox *BoundedMailbox) Len() int64 {
	return int64(mailbox.underlying.Len())
}

// Dispose releases the ring buffer. Do not use the mailbox afterwards.
func (mailbox *BoundedMailbox) Dispose() {
	mailbox.underlying.Dispose()
}
