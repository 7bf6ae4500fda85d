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
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Stream fans published messages out to the subscribers of a topic.
type Stream interface {
	// AddSubscriber creates an active subscriber with no topic.
	AddSubscriber() Subscriber
	// Subscribe adds the subscriber to the given topic.
	Subscribe(sub Subscriber, topic string)
	// RemoveSubscriber drops the subscriber from every topic and shuts it down.
	RemoveSubscriber(sub Subscriber)
	// Publish hands msg to every active subscriber of topic.
	Publish(topic string, msg any)
	// Close shuts every subscriber down and forgets all topics.
	Close()
}

// EventsStream is the default Stream. Publishing never waits on a
// subscriber: each one buffers its messages until they are drained.
type EventsStream struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	topics      map[string]mapset.Set[Subscriber]
}

// enforce compilation error
var _ Stream = (*EventsStream)(nil)

// New creates an empty EventsStream.
func New() *EventsStream {
	return &EventsStream{
		subscribers: make(map[string]Subscriber),
		topics:      make(map[string]mapset.Set[Subscriber]),
	}
}

func (b *EventsStream) AddSubscriber() Subscriber {
	sub := newSubscriber()
	b.mu.Lock()
	b.subscribers[sub.ID()] = sub
	b.mu.Unlock()
	return sub
}

// Subscribe ignores subscribers that were shut down.
func (b *EventsStream) Subscribe(sub Subscriber, topic string) {
	if !sub.Active() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.topics[topic]
	if !ok {
		subs = mapset.NewThreadUnsafeSet[Subscriber]()
		b.topics[topic] = subs
	}
	subs.Add(sub)
}

func (b *EventsStream) RemoveSubscriber(sub Subscriber) {
	b.mu.Lock()
	delete(b.subscribers, sub.ID())
	for topic, subs := range b.topics {
		subs.Remove(sub)
		if subs.IsEmpty() {
			delete(b.topics, topic)
		}
	}
	b.mu.Unlock()

	sub.Shutdown()
}

func (b *EventsStream) Publish(topic string, msg any) {
	b.mu.RLock()
	subs, ok := b.topics[topic]
	if !ok {
		b.mu.RUnlock()
		return
	}
	recipients := subs.ToSlice()
	b.mu.RUnlock()

	message := NewMessage(topic, msg)
	for _, sub := range recipients {
		sub.signal(message)
	}
}

func (b *EventsStream) Close() {
	b.mu.Lock()
	for _, sub := range b.subscribers {
		sub.Shutdown()
	}
	clear(b.subscribers)
	clear(b.topics)
	b.mu.Unlock()
}

// subscribersCount returns the number of subscribers of topic.
func (b *EventsStream) subscribersCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if subs, ok := b.topics[topic]; ok {
		return subs.Cardinality()
	}
	return 0
}
