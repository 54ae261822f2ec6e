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

// Reference: <https://forth-standard.org/standard/core>

package vm

func native(name string, op Opcode, effect string, flags Flags) *Word {
	return NewNativeWord(name, op, MustEffect(effect), flags)
}

func weird(name string, op Opcode, flags Flags) *Word {
	return NewNativeWord(name, op, WeirdEffect(), flags)
}

// The built-in native words, one per opcode.
//
// The underscored ones are magic: the compiler emits them itself and
// parsers must never emit them from source. Stack effects use input
// matching ("a -- a a") so the checker propagates exact types through
// the stack shufflers.
var (
	Interp     = weird("_INTERP", OpInterp, FlagMagic|FlagWordParam)
	TailInterp = weird("_TAILINTERP", OpTailInterp, FlagMagic|FlagWordParam)
	Literal    = native("_LITERAL", OpLiteral, "-- a", FlagMagic|FlagValParam)
	SmallInt   = native("_INT", OpInt, "-- #", FlagMagic|FlagIntParam)
	Return     = native("_RETURN", OpReturn, "--", FlagMagic)
	Branch     = native("BRANCH", OpBranch, "--", FlagMagic|FlagIntParam)
	ZBranch    = native("0BRANCH", OpZBranch, "a --", FlagMagic|FlagIntParam)
	Nop        = native("NOP", OpNop, "--", 0)
	Recurse    = weird("_RECURSE", OpRecurse, FlagMagic|FlagIntParam)

	Drop = native("DROP", OpDrop, "a --", 0)
	Dup  = native("DUP", OpDup, "a -- a a", 0)
	Over = native("OVER", OpOver, "a b -- a b a", 0)
	Rot  = native("ROT", OpRot, "a b c -- b c a", 0)
	RotN = weird("ROTn", OpRotN, FlagMagic|FlagIntParam)
	Swap = native("SWAP", OpSwap, "a b -- b a", 0)

	Zero = native("0", OpZero, "-- #", 0)
	One  = native("1", OpOne, "-- #", 0)

	Eq     = native("=", OpEq, "a b -- #", 0)
	Ne     = native("<>", OpNe, "a b -- #", 0)
	EqZero = native("0=", OpEqZero, "a -- #", 0)
	NeZero = native("0<>", OpNeZero, "a -- #", 0)
	Ge     = native(">=", OpGe, "a b -- #", 0)
	Gt     = native(">", OpGt, "a b -- #", 0)
	GtZero = native("0>", OpGtZero, "a -- #", 0)
	Le     = native("<=", OpLe, "a b -- #", 0)
	Lt     = native("<", OpLt, "a b -- #", 0)
	LtZero = native("0<", OpLtZero, "a -- #", 0)

	Abs   = native("ABS", OpAbs, "# -- #", 0)
	Max   = native("MAX", OpMax, "a b -- a", 0)
	Min   = native("MIN", OpMin, "a b -- a", 0)
	Div   = native("/", OpDiv, "# # -- #", 0)
	Mod   = native("MOD", OpMod, "# # -- #", 0)
	Minus = native("-", OpMinus, "# # -- #", 0)
	Mult  = native("*", OpMult, "# # -- #", 0)
	Plus  = native("+", OpPlus, "a#$[] b#$[] -- a", 0)

	Call = weird("CALL", OpCall, FlagMagic)
	Null = NewNativeWord("NULL", OpNull,
		NewEffect(nil, []TypeSet{TypeSetOf(ANull)}), 0)
	Length = native("LENGTH", OpLength, "a$[] -- #", 0)
	IfElse = weird("IFELSE", OpIfElse, 0)
	Define = native("DEFINE", OpDefine, "quote{} name$ --", 0)

	GetArg   = weird("_GETARG", OpGetArg, FlagMagic|FlagIntParam)
	SetArg   = weird("_SETARG", OpSetArg, FlagMagic|FlagIntParam)
	Locals   = weird("_LOCALS", OpLocals, FlagMagic|FlagIntParam)
	DropArgs = weird("_DROPARGS", OpDropArgs, FlagMagic|FlagIntParam)

	Print    = native(".", OpPrint, "a --", 0)
	Space    = native("SP.", OpSpace, "--", 0)
	Newline  = native("NL.", OpNewline, "--", 0)
	NewlineQ = native("NL?", OpNewlineQ, "--", 0)
)

// OpWords maps each Opcode to the Word that implements it; used by the
// disassembler and to seed the core vocabulary.
var OpWords = [opCount]*Word{
	Interp, TailInterp, Literal, SmallInt, Return, Branch, ZBranch, Nop, Recurse,
	Drop, Dup, Over, Rot, RotN, Swap,
	Zero, One,
	Eq, Ne, EqZero, NeZero,
	Ge, Gt, GtZero,
	Le, Lt, LtZero,
	Abs, Max, Min,
	Div, Mod, Minus, Mult, Plus,
	Call, Null, Length, IfElse, Define,
	GetArg, SetArg, Locals, DropArgs,
	Print, Space, Newline, NewlineQ,
}

func init() {
	for i, w := range OpWords {
		if w.opcode != Opcode(i) {
			panic("vm: OpWords out of order at " + w.name)
		}
	}
}
