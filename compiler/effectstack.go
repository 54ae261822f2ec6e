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

package compiler

import (
	"strings"

	"github.com/movingfox/tails/vm"
)

// A typeItem is one slot of the abstract stack: either an exact literal
// Value (from _LITERAL/_INT) or a TypeSet.
type typeItem struct {
	lit   *vm.Value
	types vm.TypeSet
}

func literalItem(v vm.Value) typeItem { return typeItem{lit: &v} }

func typesItem(ts vm.TypeSet) typeItem { return typeItem{types: ts} }

// typeSet returns the slot's possible types. A quote literal carries
// its word's stack effect, so CALL and IFELSE can be checked.
func (it typeItem) typeSet() vm.TypeSet {
	if it.lit == nil {
		return it.types
	}
	ts := vm.TypeSetOf(it.lit.Type())
	if q := it.lit.AsQuote(); q != nil {
		ts = ts.WithQuoteEffect(q.Effect())
	}
	return ts
}

func (it typeItem) equal(o typeItem) bool {
	if (it.lit == nil) != (o.lit == nil) {
		return false
	}
	if it.lit != nil {
		return it.lit.Equal(*o.lit)
	}
	return it.types.Equal(o.types)
}

func (it typeItem) union(o typeItem) typeItem {
	if it.equal(o) {
		return it
	}
	return typesItem(it.typeSet().Or(o.typeSet()))
}

// An effectStack simulates the runtime stack at compile time while the
// checker walks the control-flow graph.
type effectStack struct {
	items        []typeItem // bottom of stack first
	initialDepth int
	maxDepth     int
}

// newEffectStack seeds the abstract stack with a word's declared inputs.
func newEffectStack(initial vm.StackEffect) *effectStack {
	s := &effectStack{}
	ins := initial.Inputs()
	for i := len(ins) - 1; i >= 0; i-- {
		s.items = append(s.items, typesItem(ins[i]))
	}
	s.initialDepth = len(s.items)
	s.maxDepth = len(s.items)
	return s
}

func (s *effectStack) depth() int { return len(s.items) }

// maxGrowth returns the peak depth relative to the initial depth.
func (s *effectStack) maxGrowth() int { return s.maxDepth - s.initialDepth }

// at returns the item at depth i; 0 is the top of the stack.
func (s *effectStack) at(i int) (typeItem, error) {
	if i >= len(s.items) || i < 0 {
		return typeItem{}, Errorf(NoPos, "stack underflow")
	}
	return s.items[len(s.items)-1-i], nil
}

// literalAt returns the literal Value at depth i, if the slot holds one.
func (s *effectStack) literalAt(i int) *vm.Value {
	if i < len(s.items) {
		return s.items[len(s.items)-1-i].lit
	}
	return nil
}

func (s *effectStack) push(it typeItem) {
	s.items = append(s.items, it)
	if len(s.items) > s.maxDepth {
		s.maxDepth = len(s.items)
	}
}

func (s *effectStack) pop() (typeItem, error) {
	top, err := s.at(0)
	if err != nil {
		return top, err
	}
	s.items = s.items[:len(s.items)-1]
	return top, nil
}

// over pushes a copy of the item at depth n.
func (s *effectStack) over(n int) error {
	it, err := s.at(n)
	if err != nil {
		return err
	}
	s.push(it)
	return nil
}

// rotate emulates the ROTn instruction: positive n moves the item at
// depth n to the top, negative n buries the top at depth -n.
func (s *effectStack) rotate(n int) error {
	if n == 0 {
		return nil
	}
	d := n
	if d < 0 {
		d = -d
	}
	if s.depth() <= d {
		return Errorf(NoPos, "stack underflow")
	}
	top := len(s.items) - 1
	if n > 0 {
		it := s.items[top-n]
		copy(s.items[top-n:top], s.items[top-n+1:top+1])
		s.items[top] = it
	} else {
		it := s.items[top]
		copy(s.items[top+n+1:top+1], s.items[top+n:top])
		s.items[top+n] = it
	}
	return nil
}

// addAtBottom inserts a type below the whole stack; used while deducing
// the inputs of a quotation.
func (s *effectStack) addAtBottom(ts vm.TypeSet) {
	s.items = append([]typeItem{typesItem(ts)}, s.items...)
	s.initialDepth++
	s.maxDepth++
}

// setTypeAt replaces the type of the slot at depth i; used when a local
// variable is first assigned.
func (s *effectStack) setTypeAt(i int, ts vm.TypeSet) {
	s.items[len(s.items)-1-i] = typesItem(ts)
}

// erase removes the slots between depths begin and end (non-inclusive).
func (s *effectStack) erase(begin, end int) error {
	if end > len(s.items) {
		return Errorf(NoPos, "stack underflow")
	}
	s.items = append(s.items[:len(s.items)-end], s.items[len(s.items)-begin:]...)
	return nil
}

// apply performs a word's stack effect on the abstract stack, checking
// input count and types. Outputs that match an input copy that input's
// item, so exact types (and literals) survive DUP, SWAP and friends.
func (s *effectStack) apply(w *vm.Word, effect vm.StackEffect) error {
	nIn := effect.InputCount()
	if nIn > s.depth() {
		return Errorf(NoPos, "stack underflow: calling `%s` needs %d value(s), have %d",
			w.Name(), nIn, s.depth())
	}
	if bad, i := s.typeCheck(effect.Inputs()); bad.Exists() {
		return Errorf(NoPos, "type mismatch passing %s to `%s` (depth %d)", bad, w.Name(), i)
	}

	inputs := make([]typeItem, nIn)
	for i := 0; i < nIn; i++ {
		inputs[i], _ = s.at(i)
	}

	if d := s.depth() + effect.Max(); d > s.maxDepth {
		s.maxDepth = d
	}
	s.items = s.items[:len(s.items)-nIn]

	outs := effect.Outputs()
	for i := len(outs) - 1; i >= 0; i-- {
		if k := outs[i].InputMatch(); k >= 0 && k < nIn {
			s.push(inputs[k])
		} else {
			s.push(typesItem(outs[i]))
		}
	}
	return nil
}

// typeCheck verifies the top slots against the given TypeSets; on
// mismatch it returns the offending types and the depth.
func (s *effectStack) typeCheck(types []vm.TypeSet) (vm.TypeSet, int) {
	for i, ts := range types {
		it, _ := s.at(i)
		if bad := it.typeSet().Minus(ts); bad.Exists() {
			return bad, i
		}
	}
	return vm.NoTypes, 0
}

// mergeWith joins this stack with the one from another control path.
func (s *effectStack) mergeWith(o *effectStack) error {
	if s.depth() != o.depth() {
		return Errorf(NoPos, "inconsistent stack depth")
	}
	for i := range s.items {
		s.items[i] = s.items[i].union(o.items[i])
	}
	if o.maxDepth > s.maxDepth {
		s.maxDepth = o.maxDepth
	}
	return nil
}

// checkOutputs verifies the stack reached at _RETURN against the word's
// declared outputs, optionally widening the declaration.
func (s *effectStack) checkOutputs(effect *vm.StackEffect, canAddOutputs, canAddOutputTypes bool) error {
	nOut := effect.OutputCount()
	if nOut > s.depth() {
		return Errorf(NoPos, "insufficient outputs: have %d, declared %d", s.depth(), nOut)
	}
	if canAddOutputTypes {
		outs := effect.Outputs()
		for i := 0; i < nOut; i++ {
			it, _ := s.at(i)
			outs[i] = outs[i].Or(it.typeSet())
		}
	} else if bad, i := s.typeCheck(effect.Outputs()); bad.Exists() {
		return Errorf(NoPos, "output type mismatch: can't return %s as %s (depth %d)",
			bad, effect.Outputs()[i], i)
	}
	for i := nOut; i < s.depth(); i++ {
		if !canAddOutputs {
			return Errorf(NoPos, "too many outputs: have %d, declared %d", s.depth(), nOut)
		}
		it, _ := s.at(i)
		effect.AddOutputAtBottom(it.typeSet())
	}
	return nil
}

func (s *effectStack) equal(o *effectStack) bool {
	if s.depth() != o.depth() {
		return false
	}
	for i := range s.items {
		if !s.items[i].equal(o.items[i]) {
			return false
		}
	}
	return true
}

func (s *effectStack) clone() *effectStack {
	c := *s
	c.items = append([]typeItem(nil), s.items...)
	return &c
}

func (s *effectStack) String() string {
	var b strings.Builder
	b.WriteString("[")
	for i, it := range s.items {
		if i > 0 {
			b.WriteByte(' ')
		}
		if it.lit != nil {
			b.WriteString("`" + it.lit.String() + "`")
		} else {
			b.WriteString(it.types.String())
		}
	}
	b.WriteString("]")
	return b.String()
}
