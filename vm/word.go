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

// Flags describe properties of a Word.
type Flags uint8

const (
	// FlagNative marks a word implemented by an opcode handler.
	FlagNative Flags = 1 << iota
	// FlagIntParam marks a word followed by an int16 parameter.
	FlagIntParam
	// FlagValParam marks a word followed by a boxed Value parameter.
	FlagValParam
	// FlagWordParam marks a word followed by a Word reference parameter.
	FlagWordParam
	// FlagMagic marks a low-level word that parsers must not emit.
	FlagMagic
	// FlagInline marks a word spliced into its call sites.
	FlagInline
	// FlagRecursive marks a word that calls itself non-tail-recursively.
	FlagRecursive
)

// A Word is a named callable: either native (an opcode handled by the
// dispatch loop) or interpreted (a sequence of instructions ending in
// _RETURN). It carries a declared stack effect used by the checker and
// by the top-level runner.
type Word struct {
	name   string
	opcode Opcode
	flags  Flags
	effect StackEffect
	code   []Instr
}

// NewNativeWord declares a native word for an opcode.
func NewNativeWord(name string, op Opcode, effect StackEffect, flags Flags) *Word {
	return &Word{name: name, opcode: op, flags: flags | FlagNative, effect: effect}
}

// NewCompiledWord builds an interpreted word from finished code. The
// code must end with a _RETURN instruction.
func NewCompiledWord(name string, effect StackEffect, code []Instr, flags Flags) *Word {
	return &Word{name: name, flags: flags &^ FlagNative, effect: effect, code: code}
}

// Name returns the word's Forth name, or "" for an anonymous quotation.
func (w *Word) Name() string { return w.name }

// Opcode returns the opcode of a native word.
func (w *Word) Opcode() Opcode { return w.opcode }

// Effect returns the word's declared stack effect.
func (w *Word) Effect() StackEffect { return w.effect }

// Code returns the instruction sequence of an interpreted word.
func (w *Word) Code() []Instr { return w.code }

// Has reports whether all given flags are set.
func (w *Word) Has(f Flags) bool { return w.flags&f == f }

// IsNative reports whether the word is implemented natively.
func (w *Word) IsNative() bool { return w.Has(FlagNative) }

// IsMagic reports whether the word is off limits to parsers.
func (w *Word) IsMagic() bool { return w.Has(FlagMagic) }

// IsInline reports whether calls to the word are spliced inline.
func (w *Word) IsInline() bool { return w.Has(FlagInline) }

// HasParam reports whether the word is followed by an inline parameter
// slot in encoded code.
func (w *Word) HasParam() bool {
	return w.flags&(FlagIntParam|FlagValParam|FlagWordParam) != 0
}

// WithName returns a copy of the word under a new name. DEFINE uses
// this to install a named copy of a quotation.
func (w *Word) WithName(name string) *Word {
	c := *w
	c.name = name
	return &c
}
