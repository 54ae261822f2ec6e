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

package vm_test

import (
	"bytes"
	"testing"

	"github.com/movingfox/tails/vm"
)

// word hand-assembles an interpreted word; effects are declared rather
// than checked, since these tests drive the dispatch loop directly.
func word(effect string, max int, code ...vm.Instr) *vm.Word {
	return vm.NewCompiledWord("", vm.MustEffect(effect).WithMax(max), code, 0)
}

func run(t *testing.T, w *vm.Word, inputs ...vm.Value) []vm.Value {
	t.Helper()
	i, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	out, err := i.Run(w, inputs...)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func checkStack(t *testing.T, name string, got, want []vm.Value) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%s: stack %v, want %v", name, got, want)
		return
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("%s: stack %v, want %v", name, got, want)
			return
		}
	}
}

func C(ns ...float64) []vm.Value {
	vals := make([]vm.Value, len(ns))
	for i, n := range ns {
		vals[i] = vm.Num(n)
	}
	return vals
}

func TestCoreOps(t *testing.T) {
	tests := []struct {
		name   string
		effect string
		max    int
		code   []vm.Instr
		data   []vm.Value
		want   []vm.Value
	}{
		{"int literal", "-- #", 1,
			[]vm.Instr{vm.OpInstr(vm.OpInt), vm.ParamOff(25), vm.OpInstr(vm.OpReturn)},
			nil, C(25)},
		{"boxed literal", "-- $", 1,
			[]vm.Instr{vm.OpInstr(vm.OpLiteral), vm.ParamLit(vm.Str("hi")), vm.OpInstr(vm.OpReturn)},
			nil, []vm.Value{vm.Str("hi")}},
		{"dup", "# -- # #", 1,
			[]vm.Instr{vm.OpInstr(vm.OpDup), vm.OpInstr(vm.OpReturn)},
			C(1234), C(1234, 1234)},
		{"swap", "a b -- b a", 0,
			[]vm.Instr{vm.OpInstr(vm.OpSwap), vm.OpInstr(vm.OpReturn)},
			C(50, 60), C(60, 50)},
		{"over", "a b -- a b a", 1,
			[]vm.Instr{vm.OpInstr(vm.OpOver), vm.OpInstr(vm.OpReturn)},
			C(1, 2), C(1, 2, 1)},
		{"rot", "a b c -- b c a", 0,
			[]vm.Instr{vm.OpInstr(vm.OpRot), vm.OpInstr(vm.OpReturn)},
			C(1, 2, 3), C(2, 3, 1)},
		{"rotn", "a b c -- ?", 0,
			[]vm.Instr{vm.OpInstr(vm.OpRotN), vm.ParamOff(2), vm.OpInstr(vm.OpReturn)},
			C(1, 2, 3), C(2, 3, 1)},
		{"minus", "# # -- #", 0,
			[]vm.Instr{vm.OpInstr(vm.OpMinus), vm.OpInstr(vm.OpReturn)},
			C(3, -4), C(7)},
		{"abs", "# -- #", 0,
			[]vm.Instr{vm.OpInstr(vm.OpAbs), vm.OpInstr(vm.OpReturn)},
			C(-1234), C(1234)},
		{"max", "# # -- #", 0,
			[]vm.Instr{vm.OpInstr(vm.OpMax), vm.OpInstr(vm.OpReturn)},
			C(3, 4), C(4)},
		{"eq", "a b -- #", 0,
			[]vm.Instr{vm.OpInstr(vm.OpEq), vm.OpInstr(vm.OpReturn)},
			C(2, 2), C(1)},
		{"branch", "-- #", 1,
			// 25, then jump over an unreached 99.
			[]vm.Instr{
				vm.OpInstr(vm.OpInt), vm.ParamOff(25),
				vm.OpInstr(vm.OpBranch), vm.ParamOff(3),
				vm.OpInstr(vm.OpInt), vm.ParamOff(99),
				vm.OpInstr(vm.OpReturn)},
			nil, C(25)},
		{"zbranch taken", "# -- #", 1,
			// if falsy jump to the 666 push.
			[]vm.Instr{
				vm.OpInstr(vm.OpZBranch), vm.ParamOff(5),
				vm.OpInstr(vm.OpInt), vm.ParamOff(123),
				vm.OpInstr(vm.OpBranch), vm.ParamOff(3),
				vm.OpInstr(vm.OpInt), vm.ParamOff(666),
				vm.OpInstr(vm.OpReturn)},
			C(0), C(666)},
		{"zbranch not taken", "# -- #", 1,
			[]vm.Instr{
				vm.OpInstr(vm.OpZBranch), vm.ParamOff(5),
				vm.OpInstr(vm.OpInt), vm.ParamOff(123),
				vm.OpInstr(vm.OpBranch), vm.ParamOff(3),
				vm.OpInstr(vm.OpInt), vm.ParamOff(666),
				vm.OpInstr(vm.OpReturn)},
			C(1), C(123)},
		{"getarg", "a b -- a b a", 1,
			[]vm.Instr{vm.OpInstr(vm.OpGetArg), vm.ParamOff(-1), vm.OpInstr(vm.OpReturn)},
			C(7, 8), C(7, 8, 7)},
		{"setarg", "a b -- a", 0,
			[]vm.Instr{vm.OpInstr(vm.OpSetArg), vm.ParamOff(-1), vm.OpInstr(vm.OpReturn)},
			C(7, 8), C(8)},
		{"locals and dropargs", "# -- #", 2,
			// reserve one local, set it from the arg, fetch it back,
			// then collapse the frame keeping one result.
			[]vm.Instr{
				vm.OpInstr(vm.OpLocals), vm.ParamOff(1),
				vm.OpInstr(vm.OpGetArg), vm.ParamOff(-1),
				vm.OpInstr(vm.OpSetArg), vm.ParamOff(-1),
				vm.OpInstr(vm.OpGetArg), vm.ParamOff(0),
				vm.OpInstr(vm.OpDropArgs), vm.ParamDrop(2, 1),
				vm.OpInstr(vm.OpReturn)},
			C(42), C(42)},
		{"length", "$ -- #", 0,
			[]vm.Instr{vm.OpInstr(vm.OpLength), vm.OpInstr(vm.OpReturn)},
			[]vm.Value{vm.Str("abcd")}, C(4)},
	}

	for _, tt := range tests {
		w := word(tt.effect, tt.max, tt.code...)
		got := run(t, w, tt.data...)
		checkStack(t, tt.name, got, tt.want)
	}
}

func TestInterpAndTailInterp(t *testing.T) {
	square := word("# -- #", 1,
		vm.OpInstr(vm.OpDup), vm.OpInstr(vm.OpMult), vm.OpInstr(vm.OpReturn))

	caller := word("# -- #", 1,
		vm.OpInstr(vm.OpInterp), vm.ParamWord(square),
		vm.OpInstr(vm.OpReturn))
	checkStack(t, "interp", run(t, caller, vm.Num(4)), C(16))

	tail := word("# -- #", 1,
		vm.OpInstr(vm.OpTailInterp), vm.ParamWord(square))
	checkStack(t, "tailinterp", run(t, tail, vm.Num(5)), C(25))
}

func TestCallAndIfElse(t *testing.T) {
	double := word("# -- #", 1,
		vm.OpInstr(vm.OpDup), vm.OpInstr(vm.OpPlus), vm.OpInstr(vm.OpReturn))
	negate := word("# -- #", 2,
		vm.OpInstr(vm.OpZero), vm.OpInstr(vm.OpSwap), vm.OpInstr(vm.OpMinus),
		vm.OpInstr(vm.OpReturn))

	call := word("# {} -- #", 1,
		vm.OpInstr(vm.OpCall), vm.OpInstr(vm.OpReturn))
	got := run(t, call, vm.Num(21), vm.Quote(double))
	checkStack(t, "call", got, C(42))

	ifelse := word("# # -- #", 2, vm.OpInstr(vm.OpIfElse), vm.OpInstr(vm.OpReturn))
	got, err := func() ([]vm.Value, error) {
		i, err := vm.New()
		if err != nil {
			return nil, err
		}
		return i.Run(ifelse, vm.Num(7), vm.Num(1), vm.Quote(double), vm.Quote(negate))
	}()
	if err != nil {
		t.Fatal(err)
	}
	checkStack(t, "ifelse true", got, C(14))
}

func TestPrintWords(t *testing.T) {
	var buf bytes.Buffer
	i, err := vm.New(vm.Output(&buf))
	if err != nil {
		t.Fatal(err)
	}
	w := word("-- ", 1,
		vm.OpInstr(vm.OpInt), vm.ParamOff(42),
		vm.OpInstr(vm.OpPrint),
		vm.OpInstr(vm.OpSpace),
		vm.OpInstr(vm.OpNewlineQ),
		vm.OpInstr(vm.OpNewlineQ),
		vm.OpInstr(vm.OpReturn))
	if _, err := i.Run(w); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "42 \n" {
		t.Errorf("printed %q, want %q", got, "42 \n")
	}
}

func TestRunErrors(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	w := word("# # -- #", 0, vm.OpInstr(vm.OpPlus), vm.OpInstr(vm.OpReturn))
	if _, err := i.Run(w, vm.Num(1)); err == nil {
		t.Error("expected underflow error for missing inputs")
	}
	if _, err := i.Run(vm.Dup); err == nil {
		t.Error("expected error running a native word")
	}
}
