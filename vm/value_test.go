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

import "testing"

func TestValueArith(t *testing.T) {
	tests := []struct {
		name string
		got  Value
		want Value
	}{
		{"add", Num(3).Add(Num(4)), Num(7)},
		{"add negative", Num(3).Add(Num(-4)), Num(-1)},
		{"concat strings", Str("foo").Add(Str("bar")), Str("foobar")},
		{"concat arrays", NewArray(Num(1)).Add(NewArray(Num(2))), NewArray(Num(1), Num(2))},
		{"mixed add", Str("foo").Add(Num(1)), NullValue},
		{"sub", Num(3).Sub(Num(-4)), Num(7)},
		{"mul", Num(6).Mul(Num(7)), Num(42)},
		{"div", Num(3).Div(Num(4)), Num(0.75)},
		{"mod", Num(7).Mod(Num(4)), Num(3)},
		{"mod zero", Num(7).Mod(Num(0)), Num(0)},
		{"length string", Str("abcd").Length(), Num(4)},
		{"length array", NewArray(Num(1), Num(2)).Length(), Num(2)},
		{"length number", Num(1).Length(), NullValue},
	}
	for _, tt := range tests {
		if !tt.got.Equal(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestValueCompare(t *testing.T) {
	if !Num(1).Truthy() || Num(0).Truthy() || NullValue.Truthy() {
		t.Error("number truthiness wrong")
	}
	if !Str("").Truthy() {
		t.Error("empty string should be truthy")
	}
	if Num(1).Equal(Str("1")) {
		t.Error("1 should not equal \"1\"")
	}
	if c := Num(3).Cmp(Num(4)); c >= 0 {
		t.Errorf("3 cmp 4 = %d", c)
	}
	if c := Str("b").Cmp(Str("a")); c <= 0 {
		t.Errorf("b cmp a = %d", c)
	}
	if c := NullValue.Cmp(Num(0)); c >= 0 {
		t.Error("null should order below numbers")
	}
	if !NewArray(Num(1), Num(2)).Equal(NewArray(Num(1), Num(2))) {
		t.Error("equal arrays compare unequal")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NullValue, "null"},
		{Num(3), "3"},
		{Num(-1234), "-1234"},
		{Num(0.75), "0.75"},
		{Str("foo"), `"foo"`},
		{NewArray(Num(1), Str("x")), `{1 "x"}`},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String(%v): got %q, want %q", tt.v.Type(), got, tt.want)
		}
	}
}
