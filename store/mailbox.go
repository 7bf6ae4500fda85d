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

// Mailbox defines the contract for a holder's request queue.
//
//   - Enqueue MUST be safe for concurrent producers and SHOULD NOT block.
//     Bounded implementations return ErrMailboxFull instead of blocking.
//   - Dequeue is called by a single consumer goroutine at a time and returns
//     nil when the mailbox is empty.
//   - Requests are dequeued in arrival (FIFO) order.
//   - Dispose releases the resources of a mailbox that will never be used again.
type Mailbox interface {
	// Enqueue pushes a request into the mailbox.
	Enqueue(req *request) error
	// Dequeue fetches the next request, or nil when empty.
	Dequeue() *request
	// IsEmpty reports whether the mailbox currently has no requests.
	IsEmpty() bool
	// Len returns a snapshot of the number of requests in the mailbox.
	Len() int64
	// Dispose releases any resources held by the mailbox.
	Dispose()
}
