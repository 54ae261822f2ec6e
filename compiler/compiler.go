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

	"github.com/movingfox/tails/asm"
	"github.com/movingfox/tails/vm"
)

// A SourceWord is one entry of the compiler's logical instruction list:
// a word reference plus the bookkeeping the passes need. Its address is
// stable for the life of the compilation, so front ends hold
// *SourceWord as an opaque position for branch fixups.
type SourceWord struct {
	ref          vm.WordRef
	srcPos       int         // byte offset into the source, or NoPos
	argOffset    int16       // _GETARG/_SETARG frame-relative offset, pre-rewrite
	branchTo     *SourceWord // branch destination, if a branch
	isBranchDest bool
	known        *effectStack // memoized stack at branch destinations
	pc           int          // encoded offset, assigned during emission
	tailCall     bool         // interpreted call in tail position
}

func (s *SourceWord) branchesTo(dst *SourceWord) {
	s.branchTo = dst
	dst.isBranchDest = true
}

type branchFrame struct {
	tag byte
	pos *SourceWord
}

// A Compiler assembles one interpreted word from a sequence of word
// references, then validates its stack effect and emits final code.
// Use one Compiler per compilation unit and consume it with Finish.
type Compiler struct {
	name  string
	flags vm.Flags
	words []*SourceWord // always ends with a placeholder for the next add

	effect            vm.StackEffect
	canAddInputs      bool
	canAddOutputs     bool
	canAddOutputTypes bool
	usesArgs          bool
	localTypes        []vm.TypeSet

	ctrl []branchFrame
}

// New returns a Compiler for a word with the given name ("" compiles an
// anonymous quotation). Until a stack effect is declared, inputs and
// outputs are deduced from the code.
func New(name string) *Compiler {
	return &Compiler{
		name:              name,
		words:             []*SourceWord{{ref: vm.Ref(vm.Nop)}},
		canAddInputs:      true,
		canAddOutputs:     true,
		canAddOutputTypes: true,
	}
}

// Name returns the name the compiled word will be registered under.
func (c *Compiler) Name() string { return c.name }

// SetStackEffect declares what the word's stack effect must be. The
// checker then verifies the code against the declaration instead of
// inferring one.
func (c *Compiler) SetStackEffect(e vm.StackEffect) {
	c.effect = e
	c.canAddInputs = false
	c.canAddOutputs = false
	c.canAddOutputTypes = false
}

// SetInputStack declares the inputs from an actual value stack (the
// REPL's), leaving the outputs to be deduced.
func (c *Compiler) SetInputStack(stack []vm.Value) {
	c.effect = vm.StackEffect{}
	for _, v := range stack {
		c.effect.AddInput(vm.TypeSetOf(v.Type()))
	}
	c.canAddInputs = false
	c.canAddOutputs = true
	c.canAddOutputTypes = true
}

// SetInline marks the word for splicing into its call sites.
func (c *Compiler) SetInline() { c.flags |= vm.FlagInline }

// PreserveArgs forces the argument-dropping epilogue even if no
// argument is read; declared inputs then survive until the word exits.
func (c *Compiler) PreserveArgs() { c.usesArgs = true }

// Add appends a word reference, recording the source position for error
// reporting. It returns a stable position handle for branch fixups.
func (c *Compiler) Add(ref vm.WordRef, srcPos int) *SourceWord {
	last := c.words[len(c.words)-1]
	wasDest := last.isBranchDest
	*last = SourceWord{ref: ref, srcPos: srcPos, isBranchDest: wasDest}
	c.words = append(c.words, &SourceWord{ref: vm.Ref(vm.Nop)})
	return last
}

// AddWord appends a call to a word the way a parser does: magic words
// are rejected, inline words are spliced.
func (c *Compiler) AddWord(w *vm.Word, srcPos int) (*SourceWord, error) {
	if w.IsMagic() {
		return nil, Errorf(srcPos, "magic word %s can't be used in source code", w.Name())
	}
	if w.IsInline() {
		return c.AddInline(w, srcPos)
	}
	return c.Add(vm.Ref(w), srcPos), nil
}

// AddInline appends a word by splicing its definition, except for its
// trailing _RETURN. Native words are added normally.
func (c *Compiler) AddInline(w *vm.Word, srcPos int) (*SourceWord, error) {
	if w.IsNative() {
		return c.Add(vm.Ref(w), srcPos), nil
	}
	first := c.words[len(c.words)-1]
	refs, err := asm.Disassemble(w.Code())
	if err != nil {
		return nil, At(srcPos, err)
	}
	for _, ref := range refs {
		if ref.Word == vm.Return {
			break
		}
		c.Add(ref, srcPos)
	}
	return first, nil
}

// AddLiteral appends an instruction pushing v, choosing _INT when the
// value fits in an int16.
func (c *Compiler) AddLiteral(v vm.Value, srcPos int) *SourceWord {
	if v.Type() == vm.ANumber {
		n := v.AsNumber()
		if i := int16(n); float64(i) == n {
			return c.Add(vm.RefParam(vm.SmallInt, vm.ParamOff(i)), srcPos)
		}
	}
	return c.Add(vm.RefParam(vm.Literal, vm.ParamLit(v)), srcPos)
}

// AddGetArg appends an instruction reading the argument or local at the
// given frame offset (arguments at and below 0, locals above).
func (c *Compiler) AddGetArg(offset int, srcPos int) *SourceWord {
	c.usesArgs = true
	sw := c.Add(vm.RefParam(vm.GetArg, vm.ParamOff(int16(offset))), srcPos)
	sw.argOffset = int16(offset)
	return sw
}

// AddSetArg appends an instruction writing the argument or local at the
// given frame offset from a popped value.
func (c *Compiler) AddSetArg(offset int, srcPos int) *SourceWord {
	sw := c.Add(vm.RefParam(vm.SetArg, vm.ParamOff(int16(offset))), srcPos)
	sw.argOffset = int16(offset)
	return sw
}

// ReserveLocalVariable allocates a local slot of the given type and
// returns its positive frame offset. A single _LOCALS prologue at the
// head of the word reserves all slots.
func (c *Compiler) ReserveLocalVariable(ts vm.TypeSet) int {
	var head *SourceWord
	if c.words[0].ref.Word == vm.Locals {
		head = c.words[0]
	} else {
		head = &SourceWord{ref: vm.RefParam(vm.Locals, vm.ParamOff(0)), srcPos: NoPos}
		c.words = append([]*SourceWord{head}, c.words...)
	}
	c.localTypes = append(c.localTypes, ts)
	offset := len(c.localTypes)
	head.ref.Param.Off = int16(offset)
	return offset
}

// AddRecurse appends a tail-capable recursive call to the word being
// compiled.
func (c *Compiler) AddRecurse(srcPos int) *SourceWord {
	sw := c.Add(vm.RefParam(vm.Recurse, vm.ParamOff(-1)), srcPos)
	sw.branchesTo(c.words[0])
	return sw
}

// AddBranchBackTo appends a backward branch to a previous position.
func (c *Compiler) AddBranchBackTo(pos *SourceWord, srcPos int) {
	c.Add(vm.RefParam(vm.Branch, vm.ParamOff(-1)), srcPos).branchesTo(pos)
}

// FixBranch retargets a previously added branch to the next instruction
// to be added.
func (c *Compiler) FixBranch(src *SourceWord) {
	src.branchesTo(c.words[len(c.words)-1])
}

// PushBranch appends a branch word (unless branch is nil) and pushes
// its position onto the control-flow stack under a one-character tag.
// Front ends use matched Push/PopBranch pairs to build IF/ELSE/THEN and
// BEGIN/WHILE/REPEAT.
func (c *Compiler) PushBranch(tag byte, branch *vm.Word, srcPos int) *SourceWord {
	var pos *SourceWord
	if branch != nil {
		pos = c.Add(vm.RefParam(branch, vm.ParamOff(-1)), srcPos)
	} else {
		pos = c.words[len(c.words)-1] // the next word to be added
	}
	c.ctrl = append(c.ctrl, branchFrame{tag: tag, pos: pos})
	return pos
}

// PopBranch pops the control-flow stack, requiring the popped tag to be
// one of matching.
func (c *Compiler) PopBranch(matching string, srcPos int) (*SourceWord, error) {
	if n := len(c.ctrl); n > 0 && strings.IndexByte(matching, c.ctrl[n-1].tag) >= 0 {
		pos := c.ctrl[n-1].pos
		c.ctrl = c.ctrl[:n-1]
		return pos, nil
	}
	return nil, Errorf(srcPos, "no matching IF or WHILE")
}

// Effect returns the word's stack effect; meaningful after Finish.
func (c *Compiler) Effect() vm.StackEffect { return c.effect }

func (c *Compiler) index(sw *SourceWord) int {
	for i, w := range c.words {
		if w == sw {
			return i
		}
	}
	return -1
}

// returnsImmediately reports whether the instruction is a _RETURN or a
// branch chain that ends in one.
func (c *Compiler) returnsImmediately(i int) bool {
	sw := c.words[i]
	if sw.ref.Word == vm.Branch {
		return c.returnsImmediately(c.index(sw.branchTo))
	}
	return sw.ref.Word == vm.Return
}

// Finish completes the compilation: it appends the epilogue and
// _RETURN, runs the stack checker, optimizes, resolves branches, and
// emits the final instruction stream. On success the word is registered
// with the current vocabulary (unless anonymous). The Compiler must not
// be used afterwards.
func (c *Compiler) Finish() (*vm.Word, error) {
	if len(c.ctrl) > 0 {
		return nil, Errorf(c.ctrl[len(c.ctrl)-1].pos.srcPos,
			"unfinished IF-ELSE-THEN or BEGIN-WHILE-REPEAT")
	}

	// If the word preserves its args or has locals, clean up the stack
	// on exit.
	if c.usesArgs || len(c.localTypes) > 0 {
		locals := c.effect.InputCount() + len(c.localTypes)
		if locals > 0 {
			c.Add(vm.RefParam(vm.DropArgs,
				vm.ParamDrop(uint8(locals), uint8(c.effect.OutputCount()))), NoPos)
		}
	}

	// The trailing placeholder becomes the single _RETURN.
	last := c.words[len(c.words)-1]
	last.ref = vm.Ref(vm.Return)

	if err := c.computeEffect(); err != nil {
		return nil, err
	}

	code, err := c.generateInstructions()
	if err != nil {
		return nil, err
	}

	name := strings.ToUpper(c.name)
	word := vm.NewCompiledWord(name, c.effect, code, c.flags)
	if name != "" {
		vm.ActiveVocabularies().Current().Add(word)
	}
	return word, nil
}

// generateInstructions runs the optimization passes, assigns pc
// offsets, and assembles the final stream with branch distances filled
// in.
func (c *Compiler) generateInstructions() ([]vm.Instr, error) {
	// Dead-code removal, tail-call rewrites, branch-chain collapse,
	// and pc assignment, in one walk over the list.
	var scratch asm.Assembler
	kept := make([]*SourceWord, 0, len(c.words))
	afterBranch := false
	for i := 0; i < len(c.words); i++ {
		sw := c.words[i]
		if afterBranch && !sw.isBranchDest {
			continue // unreachable
		}
		if sw.ref.Word == vm.Recurse {
			// A recursive call straight into _RETURN is a tail call:
			// rewrite it as a plain branch back to the head.
			if c.returnsImmediately(i + 1) {
				sw.ref.Word = vm.Branch
			} else {
				c.flags |= vm.FlagRecursive
			}
		}
		if sw.branchTo != nil {
			for sw.branchTo.ref.Word == vm.Branch {
				sw.branchTo = sw.branchTo.branchTo
			}
		}
		if !sw.ref.Word.IsNative() && c.returnsImmediately(i+1) {
			sw.tailCall = true
		}
		sw.pc = scratch.CodeSize()
		scratch.Add(c.encoded(sw))
		afterBranch = sw.ref.Word == vm.Branch
		kept = append(kept, sw)
	}
	c.words = kept

	// Emission: branch distances are now computable.
	var out asm.Assembler
	for _, sw := range c.words {
		if sw.branchTo != nil {
			sw.ref.Param.Off = int16(sw.branchTo.pc - sw.pc - 1)
		}
		out.Add(c.encoded(sw))
	}
	return out.Finish(), nil
}

// encoded maps a SourceWord to the WordRef actually assembled:
// interpreted calls become _INTERP, or _TAILINTERP in tail position.
func (c *Compiler) encoded(sw *SourceWord) vm.WordRef {
	if w := sw.ref.Word; !w.IsNative() {
		interp := vm.Interp
		if sw.tailCall {
			interp = vm.TailInterp
		}
		return vm.RefParam(interp, vm.ParamWord(w))
	}
	return sw.ref
}

// Compile builds an anonymous word from a fixed list of word
// references; mostly for tests.
func Compile(refs ...vm.WordRef) (*vm.Word, error) {
	c := New("")
	for _, ref := range refs {
		c.Add(ref, NoPos)
	}
	return c.Finish()
}
