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

package registry

import (
	"runtime"
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/tochemey/buckets/errors"
)

const maxShards = 64

type shard[H comparable] struct {
	sync.RWMutex
	entries map[string]H
}

// Registry maps names to the handle of the process currently serving them.
//
// At most one handle is registered per name at any instant. All operations
// on a given name go through the same shard lock, which makes them
// linearizable per name. The registry only routes: it never holds bucket data.
type Registry[H comparable] struct {
	shards []*shard[H]
}

// New creates an empty Registry.
func New[H comparable]() *Registry[H] {
	count := min(runtime.NumCPU()*4, maxShards)
	shards := make([]*shard[H], count)
	for i := range shards {
		shards[i] = &shard[H]{entries: make(map[string]H)}
	}
	return &Registry[H]{shards: shards}
}

// Register installs handle under name when the name is free.
// It returns ErrAlreadyRegistered when another handle owns the name.
func (r *Registry[H]) Register(name string, handle H) error {
	s := r.shard(name)
	s.Lock()
	defer s.Unlock()
	if _, ok := s.entries[name]; ok {
		return errors.NewErrAlreadyRegistered(name)
	}
	s.entries[name] = handle
	return nil
}

// Lookup returns the handle registered under name.
func (r *Registry[H]) Lookup(name string) (H, bool) {
	s := r.shard(name)
	s.RLock()
	handle, ok := s.entries[name]
	s.RUnlock()
	return handle, ok
}

// Unregister removes the entry for name only when it still points at handle,
// so that a terminating process never evicts its successor.
func (r *Registry[H]) Unregister(name string, handle H) bool {
	s := r.shard(name)
	s.Lock()
	defer s.Unlock()
	current, ok := s.entries[name]
	if !ok || current != handle {
		return false
	}
	delete(s.entries, name)
	return true
}

// Len returns the number of registered names.
func (r *Registry[H]) Len() int {
	total := 0
	for _, s := range r.shards {
		s.RLock()
		total += len(s.entries)
		s.RUnlock()
	}
	return total
}

// Handles returns a snapshot of the registered handles.
func (r *Registry[H]) Handles() []H {
	handles := make([]H, 0, r.Len())
	for _, s := range r.shards {
		s.RLock()
		for _, handle := range s.entries {
			handles = append(handles, handle)
		}
		s.RUnlock()
	}
	return handles
}

func (r *Registry[H]) shard(name string) *shard[H] {
	return r.shards[xxh3.HashString(name)%uint64(len(r.shards))]
}
