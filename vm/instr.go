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

// DropCount is the packed parameter of _DROPARGS: the number of
// function arguments plus locals to remove from the stack, and the
// number of results on top to keep.
type DropCount struct {
	Locals, Results uint8
}

// An Instr is one slot of an instruction stream: either an opcode or
// the inline parameter of the preceding opcode. Which parameter field
// is meaningful follows from the opcode's Word flags.
type Instr struct {
	Op   Opcode
	Off  int16
	Lit  Value
	Word *Word
	Drop DropCount
}

// OpInstr returns an opcode slot.
func OpInstr(op Opcode) Instr { return Instr{Op: op} }

// ParamOff returns a parameter slot holding a branch offset, stack
// offset, or small-integer immediate.
func ParamOff(off int16) Instr { return Instr{Op: OpNone, Off: off} }

// ParamLit returns a parameter slot holding a boxed literal Value.
func ParamLit(v Value) Instr { return Instr{Op: OpNone, Lit: v} }

// ParamWord returns a parameter slot referencing an interpreted word.
func ParamWord(w *Word) Instr { return Instr{Op: OpNone, Word: w} }

// ParamDrop returns a parameter slot holding packed _DROPARGS counts.
func ParamDrop(locals, results uint8) Instr {
	return Instr{Op: OpNone, Drop: DropCount{Locals: locals, Results: results}}
}

// A WordRef pairs a word with its inline parameter (if it takes one).
// The compiler's logical instruction list and the disassembler's output
// are sequences of WordRefs.
type WordRef struct {
	Word  *Word
	Param Instr
}

// Ref returns a WordRef with no parameter.
func Ref(w *Word) WordRef { return WordRef{Word: w} }

// RefParam returns a WordRef carrying an inline parameter.
func RefParam(w *Word, param Instr) WordRef { return WordRef{Word: w, Param: param} }
