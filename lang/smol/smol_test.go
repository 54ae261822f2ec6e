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

package smol_test

import (
	"strings"
	"testing"

	"github.com/movingfox/tails/asm"
	"github.com/movingfox/tails/lang/smol"
	"github.com/movingfox/tails/vm"
)

// testParser compiles source, compares the disassembly, and runs the
// word on the given inputs.
func testParser(t *testing.T, source, wantCode string, inputs []vm.Value, want vm.Value) {
	t.Helper()
	w, err := smol.NewParser().Parse(source)
	if err != nil {
		t.Errorf("%q: %v", source, err)
		return
	}
	if wantCode != "" {
		text, err := asm.String(w.Code())
		if err != nil {
			t.Fatal(err)
		}
		if text != wantCode {
			t.Errorf("%q compiles to\n  %s\nwant\n  %s", source, text, wantCode)
		}
	}
	i, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	out, err := i.Run(w, inputs...)
	if err != nil {
		t.Errorf("%q: %v", source, err)
		return
	}
	if len(out) == 0 {
		t.Errorf("%q: empty stack", source)
		return
	}
	if got := out[len(out)-1]; !got.Equal(want) {
		t.Errorf("%q: got %v, want %v", source, got, want)
	}
}

// testParserXY prefixes the standard two-argument signature and runs
// with x=7, y=8.
func testParserXY(t *testing.T, source, wantCode string, want vm.Value) {
	t.Helper()
	testParser(t, "(#x y# -- #) "+source, wantCode,
		[]vm.Value{vm.Num(7), vm.Num(8)}, want)
}

func TestPrattParser(t *testing.T) {
	testParserXY(t, "3+4",
		"_INT<3> _INT<4> + _DROPARGS<2,1> _RETURN",
		vm.Num(7))
	testParserXY(t, "-(3-4)",
		"0 _INT<3> _INT<4> - - _DROPARGS<2,1> _RETURN",
		vm.Num(1))
	testParserXY(t, "3+4*5",
		"_INT<3> _INT<4> _INT<5> * + _DROPARGS<2,1> _RETURN",
		vm.Num(23))
	testParserXY(t, "3*4+5",
		"_INT<3> _INT<4> * _INT<5> + _DROPARGS<2,1> _RETURN",
		vm.Num(17))
	testParserXY(t, "3*(4+5)",
		"_INT<3> _INT<4> _INT<5> + * _DROPARGS<2,1> _RETURN",
		vm.Num(27))
	testParserXY(t, "3*4 == 5",
		"_INT<3> _INT<4> * _INT<5> = _DROPARGS<2,1> _RETURN",
		vm.Num(0))
	testParserXY(t, `"foo" != 2`,
		`_LITERAL:<"foo"> _INT<2> <> _DROPARGS<2,1> _RETURN`,
		vm.Num(1))
}

func TestArguments(t *testing.T) {
	testParserXY(t, "3+x",
		"_INT<3> _GETARG<-2> + _DROPARGS<2,1> _RETURN",
		vm.Num(10))
	testParserXY(t, "x+y",
		"_GETARG<-1> _GETARG<-1> + _DROPARGS<2,1> _RETURN",
		vm.Num(15))
	testParserXY(t, "12; x",
		"_INT<12> DROP _GETARG<-1> _DROPARGS<2,1> _RETURN",
		vm.Num(7))
	testParserXY(t, "12; x;",
		"_INT<12> DROP _GETARG<-1> _DROPARGS<2,1> _RETURN",
		vm.Num(7))
	testParserXY(t, "x := 5; y",
		"_INT<5> _SETARG<-2> _GETARG<0> _DROPARGS<2,1> _RETURN",
		vm.Num(8))
}

func TestConditionals(t *testing.T) {
	testParserXY(t, "x if: 1+2 else: 0",
		"_GETARG<-1> 0BRANCH<8> _INT<1> _INT<2> + BRANCH<3> _INT<0> _DROPARGS<2,1> _RETURN",
		vm.Num(3))
	testParser(t, "(n# -- #) n if: 10 else: 20",
		"",
		[]vm.Value{vm.Num(0)}, vm.Num(20))
}

func TestLocals(t *testing.T) {
	testParserXY(t, "let z = 3+4; z",
		"_LOCALS<1> _INT<3> _INT<4> + _SETARG<-1> _GETARG<0> _DROPARGS<3,1> _RETURN",
		vm.Num(7))
	testParser(t, "let x = 3; let y = 4; x*x + y*y", "",
		nil, vm.Num(25))
}

func TestFunctionCalls(t *testing.T) {
	testParserXY(t, "abs(-3)",
		"0 _INT<3> - ABS _DROPARGS<2,1> _RETURN",
		vm.Num(3))
	testParserXY(t, "Max(x,y)",
		"_GETARG<-1> _GETARG<-1> MAX _DROPARGS<2,1> _RETURN",
		vm.Num(8))
	testParserXY(t, "abs(MAX(x,y))",
		"_GETARG<-1> _GETARG<-1> MAX ABS _DROPARGS<2,1> _RETURN",
		vm.Num(8))
}

func TestRecursion(t *testing.T) {
	w, err := smol.NewParser().Parse("(n# -- #) n > 1 if: recurse(n-1) * n else: n")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Has(vm.FlagRecursive) {
		t.Error("recursive word not flagged")
	}
	text, err := asm.String(w.Code())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "_RECURSE<") {
		t.Errorf("no _RECURSE in %s", text)
	}
	i, err := vm.New()
	if err != nil {
		t.Fatal(err)
	}
	out, err := i.Run(w, vm.Num(5))
	if err != nil {
		t.Fatal(err)
	}
	if got := out[len(out)-1]; !got.Equal(vm.Num(120)) {
		t.Errorf("5! = %v", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"frobnicate", "unknown symbol"},
		{"3 4", "expected an operator"},
		{"(#x -- #) let x = 3; x", "already a local"},
		{"let x = ", "unexpected end of input"},
		{"(x) x", "separator"}, // bad stack-effect annotation
		{"3 if: 1", "cannot return a value"},
		{"(#x y# -- #) x +", "unexpected end of input"},
		{`"abc" + 2`, "type mismatch"},
	}
	for _, tt := range tests {
		_, err := smol.NewParser().Parse(tt.source)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: error %v, want substring %q", tt.source, err, tt.want)
		}
	}
}
