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

package metric

import "go.opentelemetry.io/otel/metric"

// BucketMetric groups the OpenTelemetry instruments describing the bucket
// holders of a system.
//
// Instruments:
//   - buckets.live.count        (Int64ObservableGauge)
//   - buckets.crashes.count     (Int64ObservableCounter)
//   - buckets.started.count     (Int64Counter)
//   - buckets.terminated.count  (Int64Counter)
//   - buckets.requests.count    (Int64Counter)
type BucketMetric struct {
	liveCount  metric.Int64ObservableGauge
	crashCount metric.Int64ObservableCounter
	started    metric.Int64Counter
	terminated metric.Int64Counter
	requests   metric.Int64Counter
}

// NewBucketMetric creates the bucket instruments using the provided Meter.
// It returns an error if any instrument cannot be created.
func NewBucketMetric(meter metric.Meter) (*BucketMetric, error) {
	var instruments BucketMetric
	var err error

	if instruments.liveCount, err = meter.Int64ObservableGauge(
		"buckets.live.count",
		metric.WithDescription("Number of live bucket holders"),
	); err != nil {
		return nil, err
	}

	if instruments.crashCount, err = meter.Int64ObservableCounter(
		"buckets.crashes.count",
		metric.WithDescription("Total number of abnormal bucket terminations"),
	); err != nil {
		return nil, err
	}

	if instruments.started, err = meter.Int64Counter(
		"buckets.started.count",
		metric.WithDescription("Total number of bucket holders started"),
	); err != nil {
		return nil, err
	}

	if instruments.terminated, err = meter.Int64Counter(
		"buckets.terminated.count",
		metric.WithDescription("Total number of bucket holders terminated"),
	); err != nil {
		return nil, err
	}

	if instruments.requests, err = meter.Int64Counter(
		"buckets.requests.count",
		metric.WithDescription("Total number of requests processed by bucket holders"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// LiveCount returns the gauge reporting the live holders.
// Use with Meter.RegisterCallback.
func (x *BucketMetric) LiveCount() metric.Int64ObservableGauge {
	return x.liveCount
}

// CrashCount returns the counter reporting abnormal terminations.
// Use with Meter.RegisterCallback.
func (x *BucketMetric) CrashCount() metric.Int64ObservableCounter {
	return x.crashCount
}

// Started returns the counter incremented when a holder goes live.
func (x *BucketMetric) Started() metric.Int64Counter {
	return x.started
}

// Terminated returns the counter incremented when a holder terminates.
func (x *BucketMetric) Terminated() metric.Int64Counter {
	return x.terminated
}

// Requests returns the counter incremented for every processed request.
func (x *BucketMetric) Requests() metric.Int64Counter {
	return x.requests
}
