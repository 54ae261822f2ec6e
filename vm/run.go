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
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Stack depth allocated for words whose peak depth the checker could
// not bound (non-tail recursion).
const unknownMaxDepth = UnknownMax

// An Instance executes compiled words. It owns the data stack and the
// output terminal; the return stack is the host call stack.
type Instance struct {
	data []Value
	out  *Terminal
}

// Option configures an Instance.
type Option func(*Instance) error

// Output sets the writer that the I/O words print to. The default is
// os.Stdout.
func Output(w io.Writer) Option {
	return func(i *Instance) error {
		i.out = NewTerminal(w)
		return nil
	}
}

// DataSize pre-allocates the data stack to at least size values.
func DataSize(size int) Option {
	return func(i *Instance) error {
		if size > cap(i.data) {
			i.data = append(i.data[:cap(i.data)], make([]Value, size-cap(i.data))...)
		}
		return nil
	}
}

// New creates a VM instance.
func New(opts ...Option) (*Instance, error) {
	i := &Instance{out: NewTerminal(os.Stdout)}
	if err := i.SetOptions(opts...); err != nil {
		return nil, err
	}
	return i, nil
}

// SetOptions applies the given options.
func (i *Instance) SetOptions(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return err
		}
	}
	return nil
}

// Terminal returns the instance's output terminal.
func (i *Instance) Terminal() *Terminal { return i.out }

// Run executes an interpreted word with the given input stack (bottom
// first) and returns the resulting stack. The stack is pre-sized to the
// word's declared maximum depth; the dispatch loop itself performs no
// checks, so the word must have passed the stack-effect checker.
//
// If an error occurs it is recovered here and returned annotated.
func (i *Instance) Run(w *Word, inputs ...Value) (result []Value, err error) {
	if w.IsNative() {
		return nil, errors.Errorf("%s is a native word", w.Name())
	}
	if n := w.Effect().InputCount(); len(inputs) < n {
		return nil, errors.Errorf("stack underflow: %s needs %d input(s), have %d",
			w.Name(), n, len(inputs))
	}
	max := w.Effect().Max()
	if max == UnknownMax {
		max = unknownMaxDepth
	}
	need := len(inputs) + max
	if need > len(i.data) {
		i.data = make([]Value, need)
	}
	copy(i.data, inputs)
	for n := len(inputs); n < len(i.data); n++ {
		i.data[n] = NullValue
	}

	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("recovered error in %s: %v", w.Name(), e)
		}
	}()
	sp := i.exec(len(inputs)-1, w.Code(), 0)
	result = append([]Value(nil), i.data[:sp+1]...)
	return result, nil
}

// exec is the threaded dispatch loop. Each native handler reads its
// inline parameter from the slot after its opcode, performs its effect
// on the stack, and falls through to the next instruction; _RETURN
// returns to the caller. Calls to interpreted words recurse into exec,
// using the host call stack as the return stack; _TAILINTERP instead
// continues the loop in the callee's code, so tail calls do not grow
// the stack.
func (i *Instance) exec(sp int, code []Instr, pc int) int {
	data := i.data
	for {
		op := code[pc].Op
		pc++
		switch op {
		case OpInterp:
			sp = i.exec(sp, code[pc].Word.Code(), 0)
			data = i.data
			pc++
		case OpTailInterp:
			code = code[pc].Word.Code()
			pc = 0
		case OpLiteral:
			sp++
			data[sp] = code[pc].Lit
			pc++
		case OpInt:
			sp++
			data[sp] = Num(float64(code[pc].Off))
			pc++
		case OpReturn:
			return sp
		case OpBranch:
			pc += int(code[pc].Off)
		case OpZBranch:
			if !data[sp].Truthy() {
				sp--
				pc += int(code[pc].Off)
			} else {
				sp--
				pc++
			}
		case OpNop:
		case OpRecurse:
			sp = i.exec(sp, code, pc+int(code[pc].Off))
			data = i.data
			pc++
		case OpDrop:
			sp--
		case OpDup:
			sp++
			data[sp] = data[sp-1]
		case OpOver:
			sp++
			data[sp] = data[sp-2]
		case OpRot:
			data[sp-2], data[sp-1], data[sp] = data[sp-1], data[sp], data[sp-2]
		case OpRotN:
			n := int(code[pc].Off)
			pc++
			if n > 0 {
				top := data[sp-n]
				copy(data[sp-n:sp], data[sp-n+1:sp+1])
				data[sp] = top
			} else if n < 0 {
				top := data[sp]
				copy(data[sp+n+1:sp+1], data[sp+n:sp])
				data[sp+n] = top
			}
		case OpSwap:
			data[sp], data[sp-1] = data[sp-1], data[sp]
		case OpZero:
			sp++
			data[sp] = Num(0)
		case OpOne:
			sp++
			data[sp] = Num(1)
		case OpEq:
			data[sp-1] = boolValue(data[sp-1].Equal(data[sp]))
			sp--
		case OpNe:
			data[sp-1] = boolValue(!data[sp-1].Equal(data[sp]))
			sp--
		case OpEqZero:
			data[sp] = boolValue(data[sp].Equal(Num(0)))
		case OpNeZero:
			data[sp] = boolValue(!data[sp].Equal(Num(0)))
		case OpGe:
			data[sp-1] = boolValue(data[sp-1].Cmp(data[sp]) >= 0)
			sp--
		case OpGt:
			data[sp-1] = boolValue(data[sp-1].Cmp(data[sp]) > 0)
			sp--
		case OpGtZero:
			data[sp] = boolValue(data[sp].Cmp(Num(0)) > 0)
		case OpLe:
			data[sp-1] = boolValue(data[sp-1].Cmp(data[sp]) <= 0)
			sp--
		case OpLt:
			data[sp-1] = boolValue(data[sp-1].Cmp(data[sp]) < 0)
			sp--
		case OpLtZero:
			data[sp] = boolValue(data[sp].Cmp(Num(0)) < 0)
		case OpAbs:
			if n := data[sp].AsNumber(); n < 0 {
				data[sp] = Num(-n)
			}
		case OpMax:
			if data[sp].Cmp(data[sp-1]) > 0 {
				data[sp-1] = data[sp]
			}
			sp--
		case OpMin:
			if data[sp].Cmp(data[sp-1]) < 0 {
				data[sp-1] = data[sp]
			}
			sp--
		case OpDiv:
			data[sp-1] = data[sp-1].Div(data[sp])
			sp--
		case OpMod:
			data[sp-1] = data[sp-1].Mod(data[sp])
			sp--
		case OpMinus:
			data[sp-1] = data[sp-1].Sub(data[sp])
			sp--
		case OpMult:
			data[sp-1] = data[sp-1].Mul(data[sp])
			sp--
		case OpPlus:
			data[sp-1] = data[sp-1].Add(data[sp])
			sp--
		case OpCall:
			q := data[sp].AsQuote()
			sp--
			sp = i.exec(sp, q.Code(), 0)
			data = i.data
		case OpNull:
			sp++
			data[sp] = NullValue
		case OpLength:
			data[sp] = data[sp].Length()
		case OpIfElse:
			v := data[sp]
			if data[sp-2].Truthy() {
				v = data[sp-1]
			}
			sp -= 3
			sp = i.exec(sp, v.AsQuote().Code(), 0)
			data = i.data
		case OpDefine:
			name := data[sp].AsString()
			q := data[sp-1].AsQuote()
			sp -= 2
			ActiveVocabularies().Current().Add(q.WithName(strings.ToUpper(name)))
		case OpGetArg:
			n := int(code[pc].Off)
			pc++
			sp++
			data[sp] = data[sp-1+n]
		case OpSetArg:
			n := int(code[pc].Off)
			pc++
			data[sp+n] = data[sp]
			sp--
		case OpLocals:
			for n := int(code[pc].Off); n > 0; n-- {
				sp++
				data[sp] = NullValue
			}
			pc++
		case OpDropArgs:
			d := code[pc].Drop
			pc++
			l, r := int(d.Locals), int(d.Results)
			copy(data[sp-l-r+1:], data[sp-r+1:sp+1])
			sp -= l
		case OpPrint:
			i.out.WriteString(data[sp].String())
			sp--
		case OpSpace:
			i.out.WriteString(" ")
		case OpNewline:
			i.out.Newline()
		case OpNewlineQ:
			i.out.EndLine()
		default:
			panic(errors.Errorf("bad opcode %d at pc %d", op, pc-1))
		}
	}
}

func boolValue(b bool) Value {
	if b {
		return Num(1)
	}
	return Num(0)
}
