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

// Opcode identifies a native word. The numeric order is stable: it is
// the emission order of the instruction encoding and the index into the
// OpWords table.
type Opcode uint8

// Tails virtual machine opcodes.
const (
	OpInterp Opcode = iota
	OpTailInterp
	OpLiteral
	OpInt
	OpReturn
	OpBranch
	OpZBranch
	OpNop
	OpRecurse
	OpDrop
	OpDup
	OpOver
	OpRot
	OpRotN
	OpSwap
	OpZero
	OpOne
	OpEq
	OpNe
	OpEqZero
	OpNeZero
	OpGe
	OpGt
	OpGtZero
	OpLe
	OpLt
	OpLtZero
	OpAbs
	OpMax
	OpMin
	OpDiv
	OpMod
	OpMinus
	OpMult
	OpPlus
	OpCall
	OpNull
	OpLength
	OpIfElse
	OpDefine
	OpGetArg
	OpSetArg
	OpLocals
	OpDropArgs
	OpPrint
	OpSpace
	OpNewline
	OpNewlineQ

	opCount

	// OpNone marks a parameter slot, which carries no opcode of its own.
	OpNone Opcode = 255
)
