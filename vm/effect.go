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
	"strings"

	"github.com/pkg/errors"
)

// UnknownMax marks a stack effect whose peak depth is not known at
// compile time, e.g. for non-tail recursion.
const UnknownMax = 1<<16 - 1

// A StackEffect summarizes the API of a word: the number and types of
// the values it reads from the stack, the values it leaves, and the
// maximum growth of the stack while it runs. Inputs and outputs are
// indexed with the top of the stack at 0.
type StackEffect struct {
	ins, outs []TypeSet
	max       int
	weird     bool
}

// NewEffect builds a StackEffect from input and output TypeSets,
// top of stack first.
func NewEffect(inputs, outputs []TypeSet) StackEffect {
	e := StackEffect{ins: inputs, outs: outputs}
	e.setMax(0)
	return e
}

// WeirdEffect returns the effect of a word whose stack behavior depends
// on its inline parameter or is otherwise unknowable statically. The
// checker special-cases every word declared weird.
func WeirdEffect() StackEffect { return StackEffect{weird: true} }

// InputCount returns the number of stack items consumed.
func (e StackEffect) InputCount() int { return len(e.ins) }

// OutputCount returns the number of stack items produced.
func (e StackEffect) OutputCount() int { return len(e.outs) }

// Net returns the net change in stack depth.
func (e StackEffect) Net() int { return len(e.outs) - len(e.ins) }

// Max returns the maximum stack growth during execution.
func (e StackEffect) Max() int { return e.max }

// MaxIsUnknown reports whether the peak depth is unknowable.
func (e StackEffect) MaxIsUnknown() bool { return e.max == UnknownMax }

// IsWeird reports whether the effect is unknown at compile time.
func (e StackEffect) IsWeird() bool { return e.weird }

// Inputs returns the input TypeSets, top of stack first.
func (e StackEffect) Inputs() []TypeSet { return e.ins }

// Outputs returns the output TypeSets, top of stack first. The slice is
// the effect's own storage; the checker widens output types in place.
func (e StackEffect) Outputs() []TypeSet { return e.outs }

// Clone returns a deep copy.
func (e StackEffect) Clone() StackEffect {
	c := e
	c.ins = append([]TypeSet(nil), e.ins...)
	c.outs = append([]TypeSet(nil), e.outs...)
	return c
}

// AddInput adds an input at the top of the stack.
func (e *StackEffect) AddInput(ts TypeSet) {
	e.ins = append([]TypeSet{ts}, e.ins...)
	e.setMax(0)
}

// AddInputAtBottom adds an input at the bottom of the stack; used when
// the checker widens the frame of a quotation with unknown inputs.
func (e *StackEffect) AddInputAtBottom(ts TypeSet) {
	e.ins = append(e.ins, ts)
	e.setMax(0)
}

// AddOutput adds an output at the top of the stack.
func (e *StackEffect) AddOutput(ts TypeSet) {
	e.outs = append([]TypeSet{ts}, e.outs...)
	e.setMax(0)
}

// AddOutputAtBottom adds an output at the bottom of the stack.
func (e *StackEffect) AddOutputAtBottom(ts TypeSet) {
	e.outs = append(e.outs, ts)
	e.setMax(0)
}

// WithMax returns a copy with the max stack growth raised to m. The max
// never drops below 0 or below Net.
func (e StackEffect) WithMax(m int) StackEffect {
	c := e.Clone()
	c.setMax(m)
	return c
}

// WithUnknownMax returns a copy whose peak depth is unknown.
func (e StackEffect) WithUnknownMax() StackEffect { return e.WithMax(UnknownMax) }

func (e *StackEffect) setMax(m int) {
	if n := e.Net(); n > m {
		m = n
	}
	if m < 0 {
		m = 0
	}
	if m > e.max {
		e.max = m
	}
	if e.max > UnknownMax {
		e.max = UnknownMax
	}
}

// Equal compares two effects slot by slot, including max.
func (e StackEffect) Equal(o StackEffect) bool {
	if e.weird || o.weird || e.max != o.max ||
		len(e.ins) != len(o.ins) || len(e.outs) != len(o.outs) {
		return false
	}
	for i := range e.ins {
		if !e.ins[i].Equal(o.ins[i]) {
			return false
		}
	}
	for i := range e.outs {
		if !e.outs[i].Equal(o.outs[i]) {
			return false
		}
	}
	return true
}

// Then returns the effect of running e followed by b: b's inputs consume
// e's outputs, which must suffice in number and type. Unconsumed outputs
// of e remain below b's outputs; outputs of b that match inputs adopt
// the corresponding produced type.
func (e StackEffect) Then(b StackEffect) (StackEffect, error) {
	if e.weird || b.weird {
		return StackEffect{}, errors.New("stack effect not known")
	}
	outs, ins := e.OutputCount(), b.InputCount()
	if outs < ins {
		return StackEffect{}, errors.New("stack underflow")
	}
	for i := 0; i < ins; i++ {
		if bad := e.outs[i].Minus(b.ins[i]); bad.Exists() {
			return StackEffect{}, errors.Errorf("type mismatch: %s where %s expected",
				bad, b.ins[i])
		}
	}

	result := NewEffect(append([]TypeSet(nil), e.ins...), append([]TypeSet(nil), b.outs...))
	for i := ins; i < outs; i++ {
		result.AddOutputAtBottom(e.outs[i])
	}
	for i, ts := range result.outs {
		if k := ts.InputMatch(); k >= 0 && k < outs {
			in := e.outs[k]
			if in.MultiType() {
				result.outs[i] = ts.WithInputMatch(in, k)
			} else {
				result.outs[i] = in
			}
		}
	}
	return result, nil
}

// String renders the effect in literal syntax, e.g. "# $ -- x" (an
// any-type slot renders as "x").
func (e StackEffect) String() string {
	var b strings.Builder
	for i := len(e.ins) - 1; i >= 0; i-- {
		b.WriteString(e.ins[i].String())
		b.WriteByte(' ')
	}
	b.WriteString("--")
	for i := len(e.outs) - 1; i >= 0; i-- {
		b.WriteByte(' ')
		b.WriteString(e.outs[i].String())
	}
	return b.String()
}
