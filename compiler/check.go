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

import "github.com/movingfox/tails/vm"

// computeEffect runs the stack-effect checker: a forward abstract
// interpretation over the logical instruction list, following both
// edges of every conditional branch, unifying stacks where control
// joins, and verifying the declared stack effect at _RETURN. It throws
// out programs whose stacks under- or overflow or whose types disagree,
// which is what lets the VM run without any checks of its own.
func (c *Compiler) computeEffect() error {
	return c.checkFlow(0, newEffectStack(c.effect))
}

func (c *Compiler) checkFlow(i int, cur *effectStack) error {
	for {
		sw := c.words[i]

		// Merge flows of control at branch destinations. The stack seen
		// first is memoized; later flows either match it (done) or are
		// unified with it and re-walked.
		if sw.isBranchDest {
			if sw.known != nil {
				if sw.known.equal(cur) {
					return nil
				}
				if err := cur.mergeWith(sw.known); err != nil {
					return At(sw.srcPos, err)
				}
			}
			sw.known = cur.clone()
		}

		if err := c.checkWord(sw, cur); err != nil {
			return At(sw.srcPos, err)
		}

		if (sw.ref.Word == vm.Branch || sw.ref.Word == vm.ZBranch) && sw.branchTo == nil {
			return Errorf(sw.srcPos, "branch without a destination")
		}
		switch sw.ref.Word {
		case vm.Return:
			if err := cur.checkOutputs(&c.effect, c.canAddOutputs, c.canAddOutputTypes); err != nil {
				return At(sw.srcPos, err)
			}
			c.canAddOutputs = false
			if g := cur.maxGrowth(); g > c.effect.Max() {
				c.effect = c.effect.WithMax(g)
			}
			return nil
		case vm.ZBranch:
			// Follow the fall-through case with a copy, then the branch.
			if err := c.checkFlow(i+1, cur.clone()); err != nil {
				return err
			}
			i = c.index(sw.branchTo)
		case vm.Branch:
			i = c.index(sw.branchTo)
		default:
			i++
		}
	}
}

// checkWord applies one instruction's compile-time behavior to the
// abstract stack.
func (c *Compiler) checkWord(sw *SourceWord, cur *effectStack) error {
	w := sw.ref.Word
	switch w {
	case vm.Literal:
		cur.push(literalItem(sw.ref.Param.Lit))
		return nil

	case vm.SmallInt:
		cur.push(literalItem(vm.Num(float64(sw.ref.Param.Off))))
		return nil

	case vm.RotN:
		return cur.rotate(int(sw.ref.Param.Off))

	case vm.GetArg, vm.SetArg:
		return c.checkArg(sw, cur)

	case vm.Locals:
		// Reserved slots start out typeless; the first assignment sets
		// the type.
		for n := int(sw.ref.Param.Off); n > 0; n-- {
			cur.push(typesItem(vm.NoTypes))
		}
		return nil

	case vm.DropArgs:
		locals := int(sw.ref.Param.Drop.Locals)
		results := int(sw.ref.Param.Drop.Results)
		actual := cur.depth() - locals
		if c.canAddOutputs {
			// Outputs are still being inferred; the epilogue keeps
			// whatever the code produced.
			if actual < 0 {
				return Errorf(sw.srcPos, "stack underflow")
			}
			results = actual
			sw.ref.Param.Drop.Results = uint8(results)
		} else if actual != results {
			return Errorf(sw.srcPos, "should return %d value(s), not %d", results, actual)
		}
		return cur.erase(results, results+locals)

	case vm.Recurse:
		if c.canAddInputs || c.canAddOutputs {
			return Errorf(sw.srcPos, "RECURSE requires an explicit stack effect declaration")
		}
		effect := c.effect
		if !c.returnsImmediately(c.index(sw) + 1) {
			if c.flags&vm.FlagInline != 0 {
				return Errorf(sw.srcPos, "illegal recursion in an inline word")
			}
			effect = effect.WithUnknownMax() // non-tail recursion
		}
		return c.applyEffect(sw, cur, effect)

	case vm.Call:
		return c.checkCall(sw, cur)

	case vm.IfElse:
		effect, err := c.effectOfIfElse(sw, cur)
		if err != nil {
			return err
		}
		return c.applyEffect(sw, cur, effect)

	case vm.Plus:
		// "+" is polymorphic over numbers, strings and arrays, but both
		// operands must share a type.
		if cur.depth() >= 2 {
			a, _ := cur.at(0)
			b, _ := cur.at(1)
			both := a.typeSet().And(b.typeSet())
			if a.typeSet().Exists() && b.typeSet().Exists() && !both.Exists() {
				return Errorf(sw.srcPos, "type mismatch: can't add %s to %s",
					a.typeSet(), b.typeSet())
			}
		}
		return c.applyEffect(sw, cur, w.Effect())

	default:
		effect := w.Effect()
		if effect.IsWeird() {
			return Errorf(sw.srcPos, "don't know word %s's stack effect", w.Name())
		}
		return c.applyEffect(sw, cur, effect)
	}
}

// applyEffect applies a word's effect, first widening the input frame
// if this code may reach deeper into the stack than it has produced
// (i.e. when compiling a quotation with unknown inputs).
func (c *Compiler) applyEffect(sw *SourceWord, cur *effectStack, effect vm.StackEffect) error {
	if c.canAddInputs {
		for i := cur.depth(); i < effect.InputCount(); i++ {
			entry := effect.Inputs()[i]
			cur.addAtBottom(entry)
			c.effect.AddInputAtBottom(entry)
		}
	}
	return cur.apply(sw.ref.Word, effect)
}

// checkArg handles _GETARG and _SETARG. Front ends record offsets
// relative to the function frame (arguments at and below 0, locals
// above); here they are rewritten to be relative to the current stack
// top, which is what the instruction reads at runtime.
func (c *Compiler) checkArg(sw *SourceWord, cur *effectStack) error {
	adjust := int16(cur.depth() - c.effect.InputCount())
	if sw.argOffset <= 0 {
		// A function argument.
		if int(-sw.argOffset) >= c.effect.InputCount() {
			return Errorf(sw.srcPos, "no argument at offset %d", sw.argOffset)
		}
		paramType := c.effect.Inputs()[-sw.argOffset]
		sw.ref.Param.Off = sw.argOffset - adjust
		if sw.ref.Word == vm.GetArg {
			cur.push(typesItem(paramType))
			return nil
		}
		return cur.apply(sw.ref.Word, vm.NewEffect([]vm.TypeSet{paramType}, nil))
	}

	// A local variable.
	offset := sw.argOffset - adjust
	sw.ref.Param.Off = offset
	depth := int(-offset)
	if sw.ref.Word == vm.GetArg {
		if err := cur.over(depth); err != nil {
			return err
		}
		if top, _ := cur.at(0); !top.typeSet().Exists() {
			return Errorf(sw.srcPos, "reading local before it's assigned a value")
		}
		return nil
	}
	local, err := cur.at(depth)
	if err != nil {
		return err
	}
	value, err := cur.at(0)
	if err != nil {
		return err
	}
	if localType := local.typeSet(); localType.Exists() {
		if bad := value.typeSet().Minus(localType); bad.Exists() {
			return Errorf(sw.srcPos, "type mismatch assigning %s to a %s local",
				value.typeSet(), localType)
		}
	} else {
		cur.setTypeAt(depth, value.typeSet())
	}
	_, err = cur.pop()
	return err
}

// checkCall verifies a CALL of a quote whose stack effect is known.
func (c *Compiler) checkCall(sw *SourceWord, cur *effectStack) error {
	callee, err := cur.pop()
	if err != nil {
		return err
	}
	ts := callee.typeSet()
	if !ts.Equal(vm.TypeSetOf(vm.AQuote)) {
		return Errorf(sw.srcPos, "can't call a value of type %s", ts)
	}
	effect := ts.QuoteEffect()
	if effect == nil {
		return Errorf(sw.srcPos, "this quote's parameters aren't known")
	}
	return c.applyEffect(sw, cur, *effect)
}

// effectOfIfElse merges the effects of IFELSE's two quotations, which
// must be literal values on the abstract stack. Diverging effects are
// rejected rather than guessed at.
func (c *Compiler) effectOfIfElse(sw *SourceWord, cur *effectStack) (vm.StackEffect, error) {
	quoteEffect := func(depth int) (vm.StackEffect, error) {
		if v := cur.literalAt(depth); v != nil {
			if q := v.AsQuote(); q != nil {
				return q.Effect(), nil
			}
		}
		return vm.StackEffect{}, Errorf(sw.srcPos, "IFELSE must be preceded by two quotations")
	}
	a, err := quoteEffect(1)
	if err != nil {
		return a, err
	}
	b, err := quoteEffect(0)
	if err != nil {
		return b, err
	}
	if a.Net() != b.Net() {
		return a, Errorf(sw.srcPos, "IFELSE quotes have inconsistent stack depths")
	}

	result := a.Clone()
	for i := 0; i < b.InputCount(); i++ {
		entry := b.Inputs()[i]
		if i < result.InputCount() {
			entry = entry.And(result.Inputs()[i])
			if !entry.Exists() {
				return a, Errorf(sw.srcPos, "IFELSE quotes have incompatible parameter #%d", i)
			}
			result.Inputs()[i] = entry
		} else {
			result.AddInput(entry)
		}
	}
	for i := 0; i < b.OutputCount(); i++ {
		entry := b.Outputs()[i]
		if i < result.OutputCount() {
			result.Outputs()[i] = result.Outputs()[i].Or(entry)
		} else {
			result.AddOutput(entry)
		}
	}

	// Add the inputs of IFELSE itself: the test and the two quotes.
	result.AddInput(vm.AnyType())
	result.AddInput(vm.TypeSetOf(vm.AQuote))
	result.AddInput(vm.TypeSetOf(vm.AQuote))

	m := a.Max()
	if b.Max() > m {
		m = b.Max()
	}
	if m -= 3; m < 0 {
		m = 0
	}
	return result.WithMax(m), nil
}
