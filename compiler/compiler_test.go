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

package compiler_test

import (
	"strings"
	"testing"

	"github.com/movingfox/tails/asm"
	"github.com/movingfox/tails/compiler"
	"github.com/movingfox/tails/vm"
)

// item is either a literal int or float64, or a *vm.Word to call.
func compile(t *testing.T, items ...interface{}) *vm.Word {
	t.Helper()
	c := compiler.New("")
	for _, item := range items {
		switch v := item.(type) {
		case int:
			c.AddLiteral(vm.Int(v), compiler.NoPos)
		case float64:
			c.AddLiteral(vm.Num(v), compiler.NoPos)
		case *vm.Word:
			if _, err := c.AddWord(v, compiler.NoPos); err != nil {
				t.Fatal(err)
			}
		default:
			t.Fatalf("bad test item %v", item)
		}
	}
	w, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func runTop(t *testing.T, w *vm.Word, inputs ...vm.Value) vm.Value {
	t.Helper()
	i, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	stack, err := i.Run(w, inputs...)
	if err != nil {
		t.Fatal(err)
	}
	if len(stack) == 0 {
		t.Fatal("empty stack")
	}
	return stack[len(stack)-1]
}

func testProgram(t *testing.T, expected float64, items ...interface{}) {
	t.Helper()
	w := compile(t, items...)
	if got := runTop(t, w); !got.Equal(vm.Num(expected)) {
		t.Errorf("got %v, want %v", got, expected)
	}
}

func newSquare(t *testing.T) *vm.Word {
	t.Helper()
	c := compiler.New("SQUARE")
	c.SetStackEffect(vm.MustEffect("# -- #"))
	c.SetInline()
	if _, err := c.AddWord(vm.Dup, compiler.NoPos); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddWord(vm.Mult, compiler.NoPos); err != nil {
		t.Fatal(err)
	}
	w, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestCompiledPrograms(t *testing.T) {
	testProgram(t, 1234, 1234)
	testProgram(t, -1234, -1234)
	testProgram(t, 32768, 32768)   // too big for _INT
	testProgram(t, -32769, -32769) // too small for _INT
	testProgram(t, -1, 3, 4, vm.Minus)
	testProgram(t, 0.75, 3, 4, vm.Div)
	testProgram(t, 1, 1, 2, 3, vm.Rot)
	testProgram(t, 1234, -1234, vm.Abs)
	testProgram(t, 1234, 1234, vm.Abs)
	testProgram(t, 4, 3, 4, vm.Max)
	testProgram(t, 4, 4, 3, vm.Max)

	square := newSquare(t)
	testProgram(t, 16, 4, square)
	testProgram(t, 9604, 4, 3, vm.Plus, square, vm.Dup, vm.Plus, square, vm.Abs)
}

func TestLiteralEncoding(t *testing.T) {
	w := compile(t, 3, 32768)
	text, err := asm.String(w.Code())
	if err != nil {
		t.Fatal(err)
	}
	if text != "_INT<3> _LITERAL:<32768> _RETURN" {
		t.Errorf("encoding: %s", text)
	}
}

func TestInlineSplicing(t *testing.T) {
	square := newSquare(t)
	w := compile(t, 4, square)
	text, err := asm.String(w.Code())
	if err != nil {
		t.Fatal(err)
	}
	if text != "_INT<4> DUP * _RETURN" {
		t.Errorf("inline word not spliced: %s", text)
	}
}

func TestInferredEffect(t *testing.T) {
	w := compile(t, 3, 4, vm.Plus)
	e := w.Effect()
	if e.InputCount() != 0 || e.OutputCount() != 1 {
		t.Errorf("effect = %v", e)
	}
	if e.Max() != 2 {
		t.Errorf("max = %d, want 2", e.Max())
	}
}

// A tail-recursive word's _RECURSE is rewritten into a backward branch.
func TestTailRecursionRewrite(t *testing.T) {
	c := compiler.New("")
	c.SetStackEffect(vm.MustEffect("# -- #"))
	mustAdd := func(w *vm.Word) {
		if _, err := c.AddWord(w, compiler.NoPos); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd(vm.Dup)
	mustAdd(vm.GtZero)
	ifPos := c.PushBranch('i', vm.ZBranch, compiler.NoPos)
	c.AddLiteral(vm.Num(1), compiler.NoPos)
	mustAdd(vm.Minus)
	c.AddRecurse(compiler.NoPos)
	if _, err := c.PopBranch("i", compiler.NoPos); err != nil {
		t.Fatal(err)
	}
	c.FixBranch(ifPos)
	w, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}

	text, err := asm.String(w.Code())
	if err != nil {
		t.Fatal(err)
	}
	if want := "DUP 0> 0BRANCH<6> _INT<1> - BRANCH<-8> _RETURN"; text != want {
		t.Errorf("tail call not rewritten:\n got  %s\n want %s", text, want)
	}
	if w.Has(vm.FlagRecursive) {
		t.Error("tail-recursive word should not be flagged Recursive")
	}
	if w.Effect().MaxIsUnknown() {
		t.Error("tail recursion should have a bounded max")
	}
	if got := runTop(t, w, vm.Num(5)); !got.Equal(vm.Num(0)) {
		t.Errorf("countdown(5) = %v", got)
	}
}

func TestDeadCodeRemoval(t *testing.T) {
	c := compiler.New("")
	c.AddLiteral(vm.Num(1), compiler.NoPos)
	br := c.PushBranch('e', vm.Branch, compiler.NoPos)
	c.AddLiteral(vm.Num(2), compiler.NoPos) // unreachable
	if _, err := c.PopBranch("e", compiler.NoPos); err != nil {
		t.Fatal(err)
	}
	c.FixBranch(br)
	w, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}
	text, err := asm.String(w.Code())
	if err != nil {
		t.Fatal(err)
	}
	if want := "_INT<1> BRANCH<1> _RETURN"; text != want {
		t.Errorf("dead code survived:\n got  %s\n want %s", text, want)
	}
}

func TestCompileErrors(t *testing.T) {
	// Stack underflow with a declared effect.
	c := compiler.New("")
	c.SetStackEffect(vm.MustEffect("--"))
	if _, err := c.AddWord(vm.Plus, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Finish(); err == nil || !strings.Contains(err.Error(), "underflow") {
		t.Errorf("underflow not detected: %v", err)
	}

	// Magic words are off limits to parsers.
	c = compiler.New("")
	if _, err := c.AddWord(vm.ZBranch, 0); err == nil ||
		!strings.Contains(err.Error(), "magic") {
		t.Errorf("magic word not rejected: %v", err)
	}

	// Type mismatch.
	c = compiler.New("")
	c.AddLiteral(vm.Str("abc"), compiler.NoPos)
	if _, err := c.AddWord(vm.Abs, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Finish(); err == nil || !strings.Contains(err.Error(), "type mismatch") {
		t.Errorf("type mismatch not detected: %v", err)
	}

	// Unfinished control flow.
	c = compiler.New("")
	c.AddLiteral(vm.Num(1), compiler.NoPos)
	c.PushBranch('i', vm.ZBranch, compiler.NoPos)
	if _, err := c.Finish(); err == nil || !strings.Contains(err.Error(), "unfinished") {
		t.Errorf("unfinished control flow not detected: %v", err)
	}

	// Mismatched control flow tags.
	c = compiler.New("")
	c.AddLiteral(vm.Num(1), compiler.NoPos)
	c.PushBranch('i', vm.ZBranch, compiler.NoPos)
	if _, err := c.PopBranch("w", 0); err == nil ||
		!strings.Contains(err.Error(), "no matching") {
		t.Errorf("tag mismatch not detected: %v", err)
	}
}

func TestInconsistentBranchDepths(t *testing.T) {
	// IF pushes one extra value only on one arm.
	c := compiler.New("")
	c.AddLiteral(vm.Num(1), compiler.NoPos)
	ifPos := c.PushBranch('i', vm.ZBranch, compiler.NoPos)
	c.AddLiteral(vm.Num(2), compiler.NoPos)
	c.AddLiteral(vm.Num(3), compiler.NoPos)
	if _, err := c.PopBranch("i", compiler.NoPos); err != nil {
		t.Fatal(err)
	}
	elsePos := c.PushBranch('e', vm.Branch, compiler.NoPos)
	c.FixBranch(ifPos)
	c.AddLiteral(vm.Num(4), compiler.NoPos)
	c.FixBranch(elsePos)
	if _, err := c.PopBranch("e", compiler.NoPos); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Finish(); err == nil ||
		!strings.Contains(err.Error(), "inconsistent stack depth") {
		t.Errorf("inconsistent depths not detected: %v", err)
	}
}

// DEFINE installs a named copy of a quote at runtime.
func TestDefine(t *testing.T) {
	body := compile(t, 1, vm.Plus)

	c := compiler.New("")
	c.AddLiteral(vm.Quote(body), compiler.NoPos)
	c.AddLiteral(vm.Str("incr"), compiler.NoPos)
	if _, err := c.AddWord(vm.Define, compiler.NoPos); err != nil {
		t.Fatal(err)
	}
	w, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}
	i, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := i.Run(w); err != nil {
		t.Fatal(err)
	}
	incr := vm.ActiveVocabularies().Lookup("INCR")
	if incr == nil {
		t.Fatal("INCR not defined")
	}
	if got := runTop(t, incr, vm.Num(41)); !got.Equal(vm.Num(42)) {
		t.Errorf("INCR(41) = %v", got)
	}
}
