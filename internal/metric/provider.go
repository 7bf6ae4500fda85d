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

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/tochemey/buckets/telemetry"
)

// Option configures a Provider.
type Option func(*Provider)

// WithMeterProvider sets the MeterProvider used to create the Meter.
// A nil provider is ignored and the global provider is used instead.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(p *Provider) {
		if provider != nil {
			p.meterProvider = provider
		}
	}
}

// Provider hands out the Meter shared by the bucket instruments.
type Provider struct {
	meterProvider metric.MeterProvider
	meter         metric.Meter
}

// New creates a Provider backed by the global MeterProvider unless
// WithMeterProvider says otherwise.
func New(opts ...Option) *Provider {
	p := &Provider{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(p)
	}
	p.meter = p.meterProvider.Meter(instrumentationName)
	return p
}

// Meter returns the Meter used by this Provider.
func (x *Provider) Meter() metric.Meter {
	return x.meter
}
