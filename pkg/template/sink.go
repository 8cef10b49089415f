// Copyright 2026 The Velo Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import "strings"

// Sink receives merge output. strings.Builder and bufio.Writer satisfy it.
type Sink interface {
	WriteString(s string) (int, error)
}

// Stopper is an optional Sink capability used by the #stop directive: once
// stopped, further output is discarded while evaluation (and its side
// effects) continue to the end of the template.
type Stopper interface {
	Stop()
	Stopped() bool
}

// StoppableSink is the Sink used by Template.Merge. It buffers output in
// memory and honors #stop.
type StoppableSink struct {
	buf     strings.Builder
	stopped bool
}

func NewStoppableSink() *StoppableSink {
	return &StoppableSink{}
}

func (s *StoppableSink) WriteString(str string) (int, error) {
	if s.stopped {
		return len(str), nil
	}
	return s.buf.WriteString(str)
}

func (s *StoppableSink) Stop() { s.stopped = true }

func (s *StoppableSink) Stopped() bool { return s.stopped }

func (s *StoppableSink) String() string { return s.buf.String() }
