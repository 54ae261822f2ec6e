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
	"strconv"
	"strings"
)

const (
	typeFlags      = 1<<numTypes - 1 // low bits: one per Type
	inputMatchUnit = 1 << numTypes   // high bits: input index + 1
)

// A TypeSet describes one slot of a stack effect: the set of Value types
// the slot may hold. An output TypeSet can additionally declare that it
// matches the type of input #k, which is how stack-polymorphic words
// like DUP and SWAP propagate exact types through the checker. A
// quote-typed TypeSet can carry the known stack effect of the quote.
type TypeSet struct {
	flags uint8
	quote *StackEffect
}

// NoTypes is the empty TypeSet.
var NoTypes TypeSet

// AnyType returns the TypeSet allowing every type.
func AnyType() TypeSet { return TypeSet{flags: typeFlags} }

// TypeSetOf returns a TypeSet allowing exactly the given types.
func TypeSetOf(types ...Type) TypeSet {
	var ts TypeSet
	for _, t := range types {
		ts.flags |= 1 << t
	}
	return ts
}

// Exists reports whether the set allows at least one type.
func (ts TypeSet) Exists() bool { return ts.flags&typeFlags != 0 }

// CanBeAnyType reports whether the set allows every type.
func (ts TypeSet) CanBeAnyType() bool { return ts.flags&typeFlags == typeFlags }

// CanBe reports whether the set allows the given type.
func (ts TypeSet) CanBe(t Type) bool { return ts.flags&(1<<t) != 0 }

// MultiType reports whether more than one type is allowed.
func (ts TypeSet) MultiType() bool {
	f := ts.flags & typeFlags
	return f != 0 && f&(f-1) != 0
}

// FirstType returns the lowest-numbered allowed type.
func (ts TypeSet) FirstType() (Type, bool) {
	for t := Type(0); t < numTypes; t++ {
		if ts.CanBe(t) {
			return t, true
		}
	}
	return 0, false
}

// Add returns the set with the given type added.
func (ts TypeSet) Add(t Type) TypeSet {
	ts.flags |= 1 << t
	return ts
}

// Or returns the union of two sets. Input-match tags do not survive a
// union; a known quote effect survives only if both sides agree on it.
func (ts TypeSet) Or(o TypeSet) TypeSet {
	r := TypeSet{flags: (ts.flags | o.flags) & typeFlags}
	if ts.quote != nil && o.quote != nil && ts.quote.Equal(*o.quote) {
		r.quote = ts.quote
	}
	return r
}

// And returns the intersection of two sets.
func (ts TypeSet) And(o TypeSet) TypeSet {
	return TypeSet{flags: ts.flags & o.flags & typeFlags}
}

// Minus returns the set of types in ts but not in o. A non-empty result
// from Minus is how the checker detects a type mismatch.
func (ts TypeSet) Minus(o TypeSet) TypeSet {
	return TypeSet{flags: ts.flags &^ o.flags & typeFlags}
}

// Equal compares the allowed types of two sets, ignoring match tags.
func (ts TypeSet) Equal(o TypeSet) bool {
	return ts.flags&typeFlags == o.flags&typeFlags
}

// IsInputMatch reports whether this (output) slot matches an input slot.
func (ts TypeSet) IsInputMatch() bool { return ts.flags&^typeFlags != 0 }

// InputMatch returns the index of the matched input (0 = top of stack),
// or -1 if the slot declares no match.
func (ts TypeSet) InputMatch() int { return int(ts.flags>>numTypes) - 1 }

// WithInputMatch returns the set tagged as matching input #k, adopting
// that input's allowed types.
func (ts TypeSet) WithInputMatch(input TypeSet, k int) TypeSet {
	return TypeSet{flags: uint8((k+1)<<numTypes) | input.flags&typeFlags}
}

// QuoteEffect returns the known stack effect of a quote-typed slot, if any.
func (ts TypeSet) QuoteEffect() *StackEffect { return ts.quote }

// WithQuoteEffect returns the set carrying a known quote stack effect.
func (ts TypeSet) WithQuoteEffect(e StackEffect) TypeSet {
	ts.quote = &e
	return ts
}

// Flags exposes the raw bits; used by tests.
func (ts TypeSet) Flags() uint8 { return ts.flags }

// String renders the set in stack-effect literal notation.
func (ts TypeSet) String() string {
	var b strings.Builder
	if ts.CanBeAnyType() {
		b.WriteByte('x')
	} else if !ts.Exists() {
		b.WriteByte('!')
	} else {
		names := [numTypes]string{"?", "#", "$", "[]", "{}"}
		for t := Type(0); t < numTypes; t++ {
			if ts.CanBe(t) {
				b.WriteString(names[t])
			}
		}
	}
	if ts.IsInputMatch() {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(ts.InputMatch()))
	}
	return b.String()
}
