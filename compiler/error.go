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

package compiler

import "fmt"

// NoPos marks an error with no known source position.
const NoPos = -1

// Error is a compile error: a message plus the byte offset into the
// source line where it occurred (NoPos if unknown). The REPL uses the
// offset to underline the offending token.
type Error struct {
	Msg string
	Pos int
}

func (e *Error) Error() string { return e.Msg }

// Errorf builds a compile error at the given source position.
func Errorf(pos int, format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// At returns err as a compile Error pinned to pos. An Error that
// already carries a position keeps it.
func At(pos int, err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*Error); ok {
		if ce.Pos == NoPos && pos != NoPos {
			return &Error{Msg: ce.Msg, Pos: pos}
		}
		return ce
	}
	return &Error{Msg: err.Error(), Pos: pos}
}

// ErrorPos extracts the source position from a compile error, or NoPos.
func ErrorPos(err error) int {
	if ce, ok := err.(*Error); ok {
		return ce.Pos
	}
	return NoPos
}
