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

package lang

import "testing"

type symbolSet map[string]bool

func (s symbolSet) HasSymbol(name string) bool { return s[name] }

var symbols = symbolSet{
	"(": true, ")": true, "+": true, "-": true, "*": true,
	"=": true, "==": true, ":=": true, "!=": true, ";": true,
}

func collect(t *testing.T, tok *Tokenizer) []Token {
	t.Helper()
	var out []Token
	for {
		tk, err := tok.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !tk.Valid() {
			return out
		}
		out = append(out, tk)
	}
}

func TestWordMode(t *testing.T) {
	toks := collect(t, NewWordTokenizer(`3 -4.5 DUP 0= "a b" [ 1 ] { 2 }`))
	want := []struct {
		typ TokenType
		lit string
	}{
		{Number, "3"}, {Number, "-4.5"}, {Ident, "DUP"}, {Ident, "0="},
		{String, `"a b"`}, {Operator, "["}, {Number, "1"}, {Operator, "]"},
		{Operator, "{"}, {Number, "2"}, {Operator, "}"},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Literal != w.lit {
			t.Errorf("token %d: got (%v %q), want (%v %q)",
				i, toks[i].Type, toks[i].Literal, w.typ, w.lit)
		}
	}
	if toks[4].Str != "a b" {
		t.Errorf("string value = %q", toks[4].Str)
	}
}

func TestSymbolMode(t *testing.T) {
	toks := collect(t, NewTokenizer(`x := 3; if: y == 4`, symbols))
	want := []struct {
		typ TokenType
		lit string
	}{
		{Ident, "x"}, {Operator, ":="}, {Number, "3"}, {Operator, ";"},
		{Ident, "if:"}, {Ident, "y"}, {Operator, "=="}, {Number, "4"},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Literal != w.lit {
			t.Errorf("token %d: got (%v %q), want (%v %q)",
				i, toks[i].Type, toks[i].Literal, w.typ, w.lit)
		}
	}
}

func TestLongestMatch(t *testing.T) {
	toks := collect(t, NewTokenizer("a==b", symbols))
	if len(toks) != 3 || toks[1].Literal != "==" {
		t.Fatalf("tokens = %v", toks)
	}
}

func TestTokenErrors(t *testing.T) {
	if _, err := NewTokenizer(`"unclosed`, symbols).Next(); err == nil {
		t.Error("unclosed string not detected")
	}
	if _, err := NewTokenizer("§", symbols).Next(); err == nil {
		t.Error("unknown token not detected")
	}
}

func TestSkipThrough(t *testing.T) {
	tok := NewTokenizer("x# y# -- #) rest", symbols)
	text, ok := tok.SkipThrough(')')
	if !ok || text != "x# y# -- #" {
		t.Fatalf("SkipThrough = %q, %v", text, ok)
	}
	next, err := tok.Next()
	if err != nil || next.Literal != "rest" {
		t.Fatalf("after SkipThrough: %v %v", next, err)
	}
}

func TestPositions(t *testing.T) {
	tok := NewWordTokenizer("ab  cd")
	a, _ := tok.Next()
	b, _ := tok.Next()
	if a.Pos != 0 || b.Pos != 4 {
		t.Errorf("positions %d %d, want 0 4", a.Pos, b.Pos)
	}
}
