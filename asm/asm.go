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

package asm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/movingfox/tails/internal/tgi"
	"github.com/movingfox/tails/vm"
)

// An Assembler emits opcodes and their inline parameters into an
// instruction stream, tracking program-counter offsets as it goes.
type Assembler struct {
	code []vm.Instr
}

// CodeSize returns the pc offset of the next instruction to be added.
func (a *Assembler) CodeSize() int { return len(a.code) }

// Add emits one word reference. Native words emit their opcode plus an
// optional parameter slot; interpreted words emit _INTERP followed by a
// reference to the word.
func (a *Assembler) Add(ref vm.WordRef) {
	w := ref.Word
	if !w.IsNative() {
		a.code = append(a.code, vm.OpInstr(vm.OpInterp), vm.ParamWord(w))
		return
	}
	a.code = append(a.code, vm.OpInstr(w.Opcode()))
	if w.HasParam() {
		a.code = append(a.code, ref.Param)
	}
}

// Finish returns the assembled instruction stream.
func (a *Assembler) Finish() []vm.Instr { return a.code }

// Assemble encodes a list of word references.
func Assemble(refs []vm.WordRef) []vm.Instr {
	var a Assembler
	for _, ref := range refs {
		a.Add(ref)
	}
	return a.Finish()
}

// A Disassembler decodes an instruction stream back into word
// references, one instruction at a time, stopping after _RETURN.
//
// In literal mode the _INTERP family decodes as itself with its word
// parameter; otherwise an _INTERP decodes directly as the called word,
// which is what the compiler's inliner wants.
type Disassembler struct {
	code    []vm.Instr
	pc      int
	literal bool
	done    bool
}

// NewDisassembler returns a Disassembler over code.
func NewDisassembler(code []vm.Instr) *Disassembler {
	return &Disassembler{code: code}
}

// SetLiteral switches literal decoding on or off.
func (d *Disassembler) SetLiteral(literal bool) { d.literal = literal }

// More reports whether instructions remain.
func (d *Disassembler) More() bool { return !d.done && d.pc < len(d.code) }

// Next decodes the next instruction.
func (d *Disassembler) Next() (vm.WordRef, error) {
	if !d.More() {
		return vm.WordRef{}, errors.New("disassembled past end of code")
	}
	op := d.code[d.pc].Op
	if int(op) >= len(vm.OpWords) {
		return vm.WordRef{}, errors.Errorf("unknown opcode %d at pc %d", op, d.pc)
	}
	word := vm.OpWords[op]
	d.pc++
	switch {
	case word.Has(vm.FlagWordParam):
		callee := d.code[d.pc].Word
		d.pc++
		if d.literal {
			return vm.RefParam(word, vm.ParamWord(callee)), nil
		}
		return vm.Ref(callee), nil
	case word.HasParam():
		param := d.code[d.pc]
		d.pc++
		return vm.RefParam(word, param), nil
	default:
		if op == vm.OpReturn {
			d.done = true
		}
		return vm.Ref(word), nil
	}
}

// Disassemble decodes an entire instruction stream, resolving _INTERP
// instructions to the words they call.
func Disassemble(code []vm.Instr) ([]vm.WordRef, error) {
	return disassemble(code, false)
}

// DisassembleLiteral decodes an entire instruction stream one encoded
// instruction per WordRef, suitable for re-assembly.
func DisassembleLiteral(code []vm.Instr) ([]vm.WordRef, error) {
	return disassemble(code, true)
}

func disassemble(code []vm.Instr, literal bool) ([]vm.WordRef, error) {
	d := NewDisassembler(code)
	d.SetLiteral(literal)
	var refs []vm.WordRef
	for d.More() {
		ref, err := d.Next()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// RefString renders a single word reference in disassembly notation.
func RefString(ref vm.WordRef) string {
	w := ref.Word
	name := w.Name()
	if name == "" {
		name = "???"
	}
	var b strings.Builder
	b.WriteString(name)
	switch {
	case w == vm.DropArgs:
		fmt.Fprintf(&b, "<%d,%d>", ref.Param.Drop.Locals, ref.Param.Drop.Results)
	case w.Has(vm.FlagWordParam):
		callee := "???"
		if ref.Param.Word != nil && ref.Param.Word.Name() != "" {
			callee = ref.Param.Word.Name()
		}
		b.WriteString(":<" + callee + ">")
	case w.Has(vm.FlagValParam):
		b.WriteString(":<" + ref.Param.Lit.String() + ">")
	case w.HasParam():
		b.WriteString("<" + strconv.Itoa(int(ref.Param.Off)) + ">")
	}
	return b.String()
}

// Print writes a one-line disassembly of code to w.
func Print(w io.Writer, code []vm.Instr) error {
	ew := tgi.NewErrWriter(w)
	refs, err := DisassembleLiteral(code)
	if err != nil {
		return err
	}
	for n, ref := range refs {
		if n > 0 {
			ew.Write([]byte{' '})
		}
		io.WriteString(ew, RefString(ref))
	}
	return ew.Err
}

// String returns the one-line disassembly of a compiled word's code.
func String(code []vm.Instr) (string, error) {
	var b strings.Builder
	if err := Print(&b, code); err != nil {
		return "", err
	}
	return b.String(), nil
}
