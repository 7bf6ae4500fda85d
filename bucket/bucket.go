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

// Package bucket defines the snapshot value handed out by bucket holders.
//
// A Bucket is a point-in-time copy of a named key/value mapping. Put, Drop
// and Update never modify their input: they return a new Bucket and leave
// both the original snapshot and the live state of the holder untouched.
// Changes only become visible to other callers once the new snapshot is
// committed back into its holder.
//
// Keys must be comparable Go values. Values are opaque; Update additionally
// requires the value stored at the key to be a map.
package bucket

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/tochemey/buckets/errors"
)

// Bucket is an immutable snapshot of a named key/value mapping.
// The zero value is an unnamed, empty bucket.
type Bucket struct {
	name string
	data map[any]any
}

// New creates an empty Bucket with the given name.
func New(name string) Bucket {
	return Bucket{name: name}
}

// From creates a Bucket holding a copy of data.
func From(name string, data map[any]any) Bucket {
	return Bucket{name: name, data: maps.Clone(data)}
}

// Name returns the bucket name.
func (b Bucket) Name() string {
	return b.name
}

// Len returns the number of entries.
func (b Bucket) Len() int {
	return len(b.data)
}

// IsEmpty reports whether the bucket holds no entry.
func (b Bucket) IsEmpty() bool {
	return len(b.data) == 0
}

// Get returns the value stored at key.
func (b Bucket) Get(key any) (any, bool) {
	value, ok := b.data[key]
	return value, ok
}

// Has reports whether key is present.
func (b Bucket) Has(key any) bool {
	_, ok := b.data[key]
	return ok
}

// Keys returns the keys in no particular order. An empty bucket yields an
// empty, non-nil slice.
func (b Bucket) Keys() []any {
	keys := make([]any, 0, len(b.data))
	for key := range b.data {
		keys = append(keys, key)
	}
	return keys
}

// Values returns the values in no particular order. An empty bucket yields an
// empty, non-nil slice.
func (b Bucket) Values() []any {
	values := make([]any, 0, len(b.data))
	for _, value := range b.data {
		values = append(values, value)
	}
	return values
}

// Data returns a copy of the underlying mapping.
func (b Bucket) Data() map[any]any {
	out := make(map[any]any, len(b.data))
	maps.Copy(out, b.data)
	return out
}

// Equal reports whether both snapshots have the same name and the same
// entries.
func (b Bucket) Equal(other Bucket) bool {
	if b.name != other.name || len(b.data) != len(other.data) {
		return false
	}
	for key, value := range b.data {
		otherValue, ok := other.data[key]
		if !ok || !reflect.DeepEqual(value, otherValue) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer
func (b Bucket) String() string {
	return fmt.Sprintf("Bucket(%s, %d entries)", b.name, len(b.data))
}

// Put returns a snapshot where key is set to value. An existing entry is
// overwritten.
func Put(b Bucket, key, value any) Bucket {
	data := make(map[any]any, len(b.data)+1)
	maps.Copy(data, b.data)
	data[key] = value
	return Bucket{name: b.name, data: data}
}

// Drop returns a snapshot without key. Dropping an absent key returns an
// equivalent snapshot.
func Drop(b Bucket, key any) Bucket {
	if _, ok := b.data[key]; !ok {
		return b
	}
	data := maps.Clone(b.data)
	delete(data, key)
	return Bucket{name: b.name, data: data}
}

// Update returns a snapshot where the map stored at key has field set to
// value, merged over its existing fields.
//
// It fails with ErrMissingEntry when key is absent, and with ErrNotAMapping
// when the stored value is not a map or cannot hold field or value. The
// stored map is copied, never modified.
func Update(b Bucket, key, field, value any) (Bucket, error) {
	current, ok := b.data[key]
	if !ok {
		return b, errors.NewErrMissingEntry(b.name, key)
	}

	merged, err := mergeField(current, field, value)
	if err != nil {
		return b, errors.NewErrNotAMapping(b.name, key, err)
	}

	return Put(b, key, merged), nil
}

// mergeField copies the map m and sets field to value in the copy.
func mergeField(m, field, value any) (any, error) {
	source := reflect.ValueOf(m)
	if source.Kind() != reflect.Map {
		return nil, fmt.Errorf("value of type %T is not a map", m)
	}

	mapType := source.Type()
	fieldValue, err := assignable(field, mapType.Key())
	if err != nil {
		return nil, fmt.Errorf("field: %w", err)
	}

	elemValue, err := assignable(value, mapType.Elem())
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}

	if !fieldValue.Comparable() {
		return nil, fmt.Errorf("field of type %T is not comparable", field)
	}

	target := reflect.MakeMapWithSize(mapType, source.Len()+1)
	iter := source.MapRange()
	for iter.Next() {
		target.SetMapIndex(iter.Key(), iter.Value())
	}
	target.SetMapIndex(fieldValue, elemValue)
	return target.Interface(), nil
}

// assignable converts v into a reflect.Value usable where t is expected.
func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", t)
		}
	}

	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
	}

	if t.Kind() == reflect.Interface {
		converted := reflect.New(t).Elem()
		converted.Set(rv)
		return converted, nil
	}
	return rv, nil
}
