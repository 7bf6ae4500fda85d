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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/buckets/errors"
)

func TestDefaultMailbox(t *testing.T) {
	t.Run("With_FIFO_order", func(t *testing.T) {
		mailbox := NewDefaultMailbox()
		require.True(t, mailbox.IsEmpty())
		require.Nil(t, mailbox.Dequeue())

		first := newRequest(context.Background(), new(getState))
		second := newRequest(context.Background(), new(poisonPill))
		require.NoError(t, mailbox.Enqueue(first))
		require.NoError(t, mailbox.Enqueue(second))
		assert.EqualValues(t, 2, mailbox.Len())
		assert.False(t, mailbox.IsEmpty())

		assert.Same(t, first, mailbox.Dequeue())
		assert.Same(t, second, mailbox.Dequeue())
		assert.Nil(t, mailbox.Dequeue())
		assert.Zero(t, mailbox.Len())
		mailbox.Dispose()
	})

	t.Run("With_concurrent_producers", func(t *testing.T) {
		const producers = 8
		const perProducer = 100

		mailbox := NewDefaultMailbox()
		var wg sync.WaitGroup
		for range producers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range perProducer {
					_ = mailbox.Enqueue(newRequest(context.Background(), new(getState)))
				}
			}()
		}
		wg.Wait()

		count := 0
		for mailbox.Dequeue() != nil {
			count++
		}
		assert.Equal(t, producers*perProducer, count)
		assert.True(t, mailbox.IsEmpty())
	})
}

func TestBoundedMailbox(t *testing.T) {
	t.Run("With_FIFO_order", func(t *testing.T) {
		mailbox := NewBoundedMailbox(4)
		require.True(t, mailbox.IsEmpty())
		require.Nil(t, mailbox.Dequeue())

		first := newRequest(context.Background(), new(getState))
		second := newRequest(context.Background(), new(poisonPill))
		require.NoError(t, mailbox.Enqueue(first))
		require.NoError(t, mailbox.Enqueue(second))
		assert.EqualValues(t, 2, mailbox.Len())

		assert.Same(t, first, mailbox.Dequeue())
		assert.Same(t, second, mailbox.Dequeue())
		assert.Nil(t, mailbox.Dequeue())
		mailbox.Dispose()
	})

	t.Run("With_full_mailbox", func(t *testing.T) {
		mailbox := NewBoundedMailbox(2)
		require.NoError(t, mailbox.Enqueue(newRequest(context.Background(), new(getState))))
		require.NoError(t, mailbox.Enqueue(newRequest(context.Background(), new(getState))))

		err := mailbox.Enqueue(newRequest(context.Background(), new(getState)))
		require.ErrorIs(t, err, errors.ErrMailboxFull)

		require.NotNil(t, mailbox.Dequeue())
		require.NoError(t, mailbox.Enqueue(newRequest(context.Background(), new(getState))))
		mailbox.Dispose()
	})
}
