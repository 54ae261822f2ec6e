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

import (
	"math"
	"strconv"
	"strings"
)

// Type is the tag of a Value variant.
type Type uint8

// Value variants, in comparison order.
const (
	ANull Type = iota
	ANumber
	AString
	AnArray
	AQuote

	numTypes = 5
)

// TypeName returns a human-readable name for a Type, for error messages.
func TypeName(t Type) string {
	switch t {
	case ANull:
		return "null"
	case ANumber:
		return "number"
	case AString:
		return "string"
	case AnArray:
		return "array"
	case AQuote:
		return "quotation"
	}
	return "?"
}

// Value is the tagged scalar stored on the data stack: null, a number,
// a string, an array of Values, or a quotation (a reference to a
// compiled Word). The zero Value is null.
type Value struct {
	kind  Type
	num   float64
	str   string
	arr   *[]Value
	quote *Word
}

// NullValue is the null Value.
var NullValue Value

// Num returns a number Value.
func Num(n float64) Value { return Value{kind: ANumber, num: n} }

// Int returns a number Value from an integer.
func Int(n int) Value { return Num(float64(n)) }

// Str returns a string Value.
func Str(s string) Value { return Value{kind: AString, str: s} }

// NewArray returns an array Value holding the given items.
func NewArray(items ...Value) Value {
	a := make([]Value, len(items))
	copy(a, items)
	return Value{kind: AnArray, arr: &a}
}

// Quote returns a quotation Value referencing a compiled word.
func Quote(w *Word) Value { return Value{kind: AQuote, quote: w} }

// Type returns the Value's type tag.
func (v Value) Type() Type { return v.kind }

// IsNull reports whether the Value is null.
func (v Value) IsNull() bool { return v.kind == ANull }

// AsNumber returns the numeric form of the Value, or 0 for non-numbers.
func (v Value) AsNumber() float64 { return v.num }

// AsString returns the string form, or "" for non-strings.
func (v Value) AsString() string { return v.str }

// AsArray returns the array items, or nil for non-arrays.
func (v Value) AsArray() []Value {
	if v.arr == nil {
		return nil
	}
	return *v.arr
}

// AsQuote returns the referenced Word, or nil for non-quotations.
func (v Value) AsQuote() *Word { return v.quote }

// Truthy reports the Value's truthiness: every Value except null and the
// number 0 is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case ANull:
		return false
	case ANumber:
		return v.num != 0
	}
	return true
}

// Equal reports whether two Values are equal. Arrays compare item-wise;
// quotations compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ANull:
		return true
	case ANumber:
		return v.num == o.num
	case AString:
		return v.str == o.str
	case AnArray:
		a, b := v.AsArray(), o.AsArray()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	default:
		return v.quote == o.quote
	}
}

// Cmp is a 3-way comparison. Values of different types order by type tag;
// numbers and strings order naturally, arrays lexicographically.
func (v Value) Cmp(o Value) int {
	if v.kind != o.kind {
		return int(v.kind) - int(o.kind)
	}
	switch v.kind {
	case ANull:
		return 0
	case ANumber:
		switch {
		case v.num < o.num:
			return -1
		case v.num > o.num:
			return 1
		}
		return 0
	case AString:
		return strings.Compare(v.str, o.str)
	case AnArray:
		a, b := v.AsArray(), o.AsArray()
		for i := 0; i < len(a) && i < len(b); i++ {
			if c := a[i].Cmp(b[i]); c != 0 {
				return c
			}
		}
		return len(a) - len(b)
	default:
		if v.quote == o.quote {
			return 0
		}
		return 1
	}
}

// Add adds numbers, or concatenates strings or arrays.
func (v Value) Add(o Value) Value {
	switch {
	case v.kind == ANumber && o.kind == ANumber:
		return Num(v.num + o.num)
	case v.kind == AString && o.kind == AString:
		return Str(v.str + o.str)
	case v.kind == AnArray && o.kind == AnArray:
		return NewArray(append(append([]Value{}, v.AsArray()...), o.AsArray()...)...)
	}
	return NullValue
}

// Sub subtracts two numbers.
func (v Value) Sub(o Value) Value { return Num(v.num - o.num) }

// Mul multiplies two numbers.
func (v Value) Mul(o Value) Value { return Num(v.num * o.num) }

// Div divides two numbers. Division follows IEEE-754, so dividing by
// zero yields an infinity rather than trapping.
func (v Value) Div(o Value) Value { return Num(v.num / o.num) }

// Mod takes the floating-point remainder; the remainder of division by
// zero is 0.
func (v Value) Mod(o Value) Value {
	if o.num == 0 {
		return Num(0)
	}
	return Num(math.Mod(v.num, o.num))
}

// Length returns the length of a string or array, else null.
func (v Value) Length() Value {
	switch v.kind {
	case AString:
		return Int(len(v.str))
	case AnArray:
		return Int(len(v.AsArray()))
	}
	return NullValue
}

// String renders the Value the way the REPL and the disassembler print
// literals: numbers in shortest form, strings quoted, arrays in brace
// literal syntax.
func (v Value) String() string {
	switch v.kind {
	case ANull:
		return "null"
	case ANumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case AString:
		return strconv.Quote(v.str)
	case AnArray:
		var b strings.Builder
		b.WriteByte('{')
		for i, item := range v.AsArray() {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(item.String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		if v.quote != nil && v.quote.Name() != "" {
			return "[" + v.quote.Name() + "]"
		}
		return "[QUOTE]"
	}
}
