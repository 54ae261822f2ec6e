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

// Package vm implements the Tails virtual machine core: tagged Values,
// TypeSets and stack effects, the opcode table, Words (native and
// interpreted), Vocabularies, and the threaded-code dispatch loop.
//
// Interpreted code is a sequence of Instr slots. Every instruction starts
// with an opcode slot; opcodes that take an inline parameter (a branch
// offset, a small integer, a boxed Value, a Word reference, or a packed
// locals/results pair) are followed by one parameter slot. Branch offsets
// are relative and counted in slots: the target slot of a branch equals
// the index of its parameter slot plus the offset.
//
// The VM performs no runtime checks. Stack safety and type safety of a
// compiled word are established ahead of execution by the compiler's
// stack-effect checker, and the Instance pre-sizes the data stack to the
// word's declared maximum depth, so neither overflow nor underflow can
// occur for checked code.
package vm
