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

package supervisor

import (
	"reflect"

	"github.com/tochemey/buckets/errors"
	"github.com/tochemey/buckets/internal/xsync"
)

// Directive defines the action taken when a bucket holder faults while
// handling a request.
//
// There is no restart directive: a holder that is stopped after
// a fault loses its state, and the next lookup of the same name starts a
// brand new, empty holder.
type Directive int

const (
	// StopDirective terminates the faulty holder. The termination is reported as
	// abnormal, its registry entry is removed and its state is discarded.
	// Sibling holders are never affected.
	StopDirective Directive = iota
	// ResumeDirective fails the faulting request and keeps the holder alive with
	// its last committed state. Use it for faults known to leave the state intact.
	ResumeDirective
)

// String returns the string representation of the directive
func (d Directive) String() string {
	switch d {
	case StopDirective:
		return "Stop"
	case ResumeDirective:
		return "Resume"
	default:
		return ""
	}
}

// Option defines the various options to apply to a given Supervisor
type Option func(*Supervisor)

// WithDirective sets the mapping between an error and a given directive
func WithDirective(err error, directive Directive) Option {
	return func(s *Supervisor) {
		s.directives.Set(errorType(err), directive)
	}
}

// WithAnyErrorDirective sets the directive to apply to any error.
// It overrides every error specific directive.
func WithAnyErrorDirective(directive Directive) Option {
	return func(s *Supervisor) {
		s.directives.Set(errorType(new(errors.AnyError)), directive)
	}
}

// Supervisor maps holder faults to directives.
//
// Rules are keyed by the concrete type name of the error. The default rule
// stops a holder on *errors.PanicError. A fault whose type has no rule falls
// back to the catch-all rule when one is set, and to StopDirective otherwise.
//
// Supervisor methods are safe for concurrent use.
type Supervisor struct {
	directives *xsync.Map[string, Directive]
}

// NewSupervisor creates a Supervisor with the default rules and applies the
// given options.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		directives: xsync.NewMap[string, Directive](),
	}

	s.directives.Set(errorType(&errors.PanicError{}), StopDirective)

	for _, opt := range opts {
		opt(s)
	}

	// any error overrides all error types
	if directive, ok := s.directives.Get(errorType(new(errors.AnyError))); ok {
		s.directives.Reset()
		s.directives.Set(errorType(new(errors.AnyError)), directive)
	}

	return s
}

// Directive returns the directive configured for the concrete type of err.
// It does not fall back to the catch-all rule.
func (s *Supervisor) Directive(err error) (Directive, bool) {
	return s.directives.Get(errorType(err))
}

// AnyErrorDirective returns the catch-all directive, if configured.
func (s *Supervisor) AnyErrorDirective() (Directive, bool) {
	return s.directives.Get(errorType(new(errors.AnyError)))
}

// Decide returns the directive to apply for the given fault.
func (s *Supervisor) Decide(err error) Directive {
	if directive, ok := s.Directive(err); ok {
		return directive
	}
	if directive, ok := s.AnyErrorDirective(); ok {
		return directive
	}
	return StopDirective
}

// Rules returns a snapshot of the configured rules keyed by error type name.
func (s *Supervisor) Rules() map[string]Directive {
	rules := make(map[string]Directive, s.directives.Len())
	s.directives.Range(func(errorType string, directive Directive) {
		rules[errorType] = directive
	})
	return rules
}

// errorType returns the string representation of an error's type using reflection
func errorType(err error) string {
	if err == nil {
		return "nil"
	}

	rtype := reflect.TypeOf(err)
	if rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}

	return rtype.String()
}
