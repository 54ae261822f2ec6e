// This file is part of tails - https://github.com/movingfox/tails
//
// Copyright 2024 The tails authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vm

import "io"

type flusher interface {
	Flush() error
}

// A Terminal wraps the writer that the I/O words (".", "SP.", "NL.",
// "NL?") print to. It tracks whether output sits at the left margin so
// that "NL?" can emit a newline only when needed.
type Terminal struct {
	w            io.Writer
	atLeftMargin bool
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, atLeftMargin: true}
}

// WriteString writes s and updates margin tracking.
func (t *Terminal) WriteString(s string) {
	if s == "" {
		return
	}
	io.WriteString(t.w, s)
	t.atLeftMargin = s[len(s)-1] == '\n'
}

// Newline writes a line break.
func (t *Terminal) Newline() {
	io.WriteString(t.w, "\n")
	t.atLeftMargin = true
}

// EndLine writes a line break only if output is mid-line.
func (t *Terminal) EndLine() {
	if !t.atLeftMargin {
		t.Newline()
	}
}

// Flush flushes the underlying writer if it supports flushing.
func (t *Terminal) Flush() error {
	if f, ok := t.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
