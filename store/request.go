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

	"github.com/tochemey/buckets/bucket"
)

// getState asks a holder for its current snapshot.
type getState struct{}

// replaceState overwrites the holder state with the given snapshot.
type replaceState struct {
	bucket bucket.Bucket
}

// modifyState runs fn against the holder state and commits its result.
type modifyState struct {
	fn func(bucket.Bucket) (bucket.Bucket, error)
}

// poisonPill stops a holder once every request queued before it is processed.
type poisonPill struct{}

type result struct {
	value any
	err   error
}

// request is a single message sitting in a holder's mailbox.
type request struct {
	ctx     context.Context
	message any
	reply   chan result
}

func newRequest(ctx context.Context, message any) *request {
	return &request{
		ctx:     ctx,
		message: message,
		reply:   make(chan result, 1),
	}
}

// respond never blocks: the reply channel holds exactly one result and the
// holder answers each request once.
func (r *request) respond(value any, err error) {
	r.reply <- result{value: value, err: err}
}
