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
	"sync"
	"sync/atomic"
)

type mpscNode struct {
	next atomic.Pointer[mpscNode]
	data *request
}

var mpscNodePool = sync.Pool{New: func() any { return new(mpscNode) }}

// DefaultMailbox is the unbounded, lock-free multi-producer single-consumer
// FIFO queue used by holders unless a capacity is configured.
//
// Under contention IsEmpty may briefly report empty between a producer's tail
// swap and its link; the holder loop re-checks after going idle so no request
// is lost.
type DefaultMailbox struct {
	head  atomic.Pointer[mpscNode] // consumer only
	_pad1 [64]byte
	tail  atomic.Pointer[mpscNode] // producers only
	_pad2 [64]byte
	size  atomic.Int64
}

// enforce compilation error when interface contract changes
var _ Mailbox = (*DefaultMailbox)(nil)

// NewDefaultMailbox creates a DefaultMailbox starting with a dummy node.
func NewDefaultMailbox() *DefaultMailbox {
	dummy := mpscNodePool.Get().(*mpscNode)
	dummy.next.Store(nil)
	dummy.data = nil
	m := &DefaultMailbox{}
	m.head.Store(dummy)
	m.tail.Store(dummy)
	return m
}

// Enqueue places the given request in the mailbox. Never blocks; always returns nil.
func (m *DefaultMailbox) Enqueue(req *request) error {
	n := mpscNodePool.Get().(*mpscNode)
	n.data = req
	n.next.Store(nil)

	prev := m.tail.Swap(n)
	prev.next.Store(n)
	m.size.Add(1)
	return nil
}

// Dequeue removes and returns the request at the head of the mailbox.
// Must be called by a single consumer goroutine.
func (m *DefaultMailbox) Dequeue() *request {
	head := m.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil
	}

	m.head.Store(next)
	req := next.data
	next.data = nil

	head.next.Store(nil)
	mpscNodePool.Put(head)
	m.size.Add(-1)
	return req
}

// Len returns a best-effort snapshot of the number of queued requests.
func (m *DefaultMailbox) Len() int64 {
	return max(m.size.Load(), 0)
}

// IsEmpty returns true when the mailbox is empty.
func (m *DefaultMailbox) IsEmpty() bool {
	return m.head.Load().next.Load() == nil
}

// Dispose is a no-op: nodes are reclaimed by the pool and the GC.
func (m *DefaultMailbox) Dispose() {}
