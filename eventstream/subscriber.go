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

package eventstream

import (
	"github.com/Workiva/go-datastructures/queue"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Subscriber receives the messages published on the topics it subscribed to.
//
// Subscribers are created by a Stream via AddSubscriber; the unexported
// method prevents external implementations.
type Subscriber interface {
	// ID returns the unique subscriber identifier.
	ID() string
	// Active reports whether the subscriber still receives messages.
	Active() bool
	// Iterator drains the messages buffered so far.
	Iterator() chan *Message
	// Shutdown stops the delivery of new messages.
	Shutdown()

	signal(message *Message)
}

type subscriber struct {
	id       string
	messages *queue.Queue
	active   *atomic.Bool
}

var _ Subscriber = (*subscriber)(nil)

func newSubscriber() *subscriber {
	return &subscriber{
		id:       uuid.NewString(),
		messages: queue.New(16),
		active:   atomic.NewBool(true),
	}
}

func (s *subscriber) ID() string {
	return s.id
}

func (s *subscriber) Active() bool {
	return s.active.Load()
}

// Shutdown deactivates the subscriber. Buffered messages can still be drained.
func (s *subscriber) Shutdown() {
	s.active.Store(false)
}

// Iterator returns the messages buffered at the time of the call through a
// closed channel, in publication order.
func (s *subscriber) Iterator() chan *Message {
	var items []any
	if n := s.messages.Len(); n > 0 {
		items, _ = s.messages.Get(n)
	}

	out := make(chan *Message, len(items))
	for _, item := range items {
		out <- item.(*Message)
	}
	close(out)
	return out
}

func (s *subscriber) signal(message *Message) {
	if s.active.Load() {
		_ = s.messages.Put(message)
	}
}
