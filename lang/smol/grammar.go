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

package smol

import (
	"sync"

	"github.com/movingfox/tails/compiler"
	"github.com/movingfox/tails/lang"
	"github.com/movingfox/tails/vm"
)

// Operator priorities. Each infix operator has a left and a right
// binding priority; right = left+1 gives left associativity, right =
// left-1 right associativity.
const (
	seqLeft     Priority = 0
	seqRight    Priority = 1
	ifLeft      Priority = 5
	ifRight     Priority = 6
	groupPrio   Priority = 5
	letPrio     Priority = 5
	assignLeft  Priority = 11
	assignRight Priority = 10
	eqLeft      Priority = 30
	eqRight     Priority = 31
	relLeft     Priority = 40
	relRight    Priority = 41
	addLeft     Priority = 50
	addRight    Priority = 51
	mulLeft     Priority = 60
	mulRight    Priority = 61
)

var (
	grammarOnce  sync.Once
	grammarTable *SymbolTable
)

// grammar returns the standard Smol symbol table, built once on first
// use and immutable afterwards.
func grammar() *SymbolTable {
	grammarOnce.Do(initGrammar)
	return grammarTable
}

func initGrammar() {
	t := NewSymbolTable(nil)
	grammarTable = t

	// Punctuation that terminates expressions.
	t.Add(NewSymbol(")"))
	t.Add(NewSymbol(","))
	t.Add(NewSymbol("="))
	t.Add(NewSymbol(":="))
	t.Add(NewSymbol("else:"))

	// Parenthesized grouping.
	t.Add(NewSymbol("(").MakePrefix(groupPrio, func(p *Parser) (vm.StackEffect, error) {
		x, err := p.NextExpression(groupPrio)
		if err != nil {
			return x, err
		}
		return x, p.requireToken(")")
	}))

	// ';' sequences expressions, dropping the values of the left one.
	// A trailing ';' is a no-op.
	t.Add(NewSymbol(";").MakeInfix(seqLeft, seqRight, parseSequence))

	// 'x if: a else: b' conditionals.
	t.Add(NewSymbol("if:").MakeInfix(ifLeft, ifRight, parseIf))

	// 'let name = expr' local bindings.
	t.Add(NewSymbol("let").MakePrefix(letPrio, parseLet))

	t.Add(WordSymbol(vm.Eq).Rename("==").MakeInfix(eqLeft, eqRight, nil))
	t.Add(WordSymbol(vm.Ne).Rename("!=").MakeInfix(eqLeft, eqRight, nil))
	t.Add(WordSymbol(vm.Lt).MakeInfix(relLeft, relRight, nil))
	t.Add(WordSymbol(vm.Le).MakeInfix(relLeft, relRight, nil))
	t.Add(WordSymbol(vm.Gt).MakeInfix(relLeft, relRight, nil))
	t.Add(WordSymbol(vm.Ge).MakeInfix(relLeft, relRight, nil))

	t.Add(WordSymbol(vm.Plus).MakeInfix(addLeft, addRight, nil))
	t.Add(WordSymbol(vm.Minus).MakeInfix(addLeft, addRight, nil).
		MakePrefix(addLeft, parseNegate))
	t.Add(WordSymbol(vm.Mult).MakeInfix(mulLeft, mulRight, nil))
	t.Add(WordSymbol(vm.Div).MakeInfix(mulLeft, mulRight, nil))
}

func parseSequence(lhs vm.StackEffect, p *Parser) (vm.StackEffect, error) {
	tok, err := p.tokens.Peek()
	if err != nil {
		return lhs, compiler.At(p.tokens.Position(), err)
	}
	if !tok.Valid() {
		return lhs, nil // trailing ';'
	}
	for i := lhs.OutputCount(); i > 0; i-- {
		if err := p.CompileCall(vm.Drop); err != nil {
			return lhs, err
		}
	}
	rhs, err := p.NextExpression(seqRight)
	if err != nil {
		return rhs, err
	}
	if rhs.InputCount() > 0 {
		return rhs, p.fail("stack underflow on the right of ';'")
	}
	return vm.NewEffect(lhs.Inputs(), rhs.Outputs()), nil
}

func parseIf(lhs vm.StackEffect, p *Parser) (vm.StackEffect, error) {
	if lhs.OutputCount() != 1 {
		return lhs, p.fail("left side of 'if:' must have a value")
	}
	pos := p.tokens.Position()
	branch := p.comp.Add(vm.RefParam(vm.ZBranch, vm.ParamOff(-1)), pos)

	ifEffect, err := p.NextExpression(ifRight)
	if err != nil {
		return ifEffect, err
	}
	hasElse, err := p.ifToken("else:")
	if err != nil {
		return ifEffect, err
	}
	if hasElse {
		elseBranch := p.comp.Add(vm.RefParam(vm.Branch, vm.ParamOff(-1)), p.tokens.Position())
		p.comp.FixBranch(branch)
		branch = elseBranch
		elseEffect, err := p.NextExpression(ifRight)
		if err != nil {
			return elseEffect, err
		}
		if elseEffect.OutputCount() != ifEffect.OutputCount() {
			return ifEffect, p.fail("'if:' and 'else:' clauses must return the same number of values")
		}
		for i := range ifEffect.Outputs() {
			ifEffect.Outputs()[i] = ifEffect.Outputs()[i].Or(elseEffect.Outputs()[i])
		}
	} else if ifEffect.OutputCount() != 0 {
		return ifEffect, p.fail("'if:' without 'else:' cannot return a value")
	}
	p.comp.FixBranch(branch)
	return vm.NewEffect(lhs.Inputs(), ifEffect.Outputs()), nil
}

func parseLet(p *Parser) (vm.StackEffect, error) {
	tok, err := p.tokens.Next()
	if err != nil {
		return vm.StackEffect{}, compiler.At(p.tokens.Position(), err)
	}
	if tok.Type != lang.Ident {
		return vm.StackEffect{}, compiler.Errorf(tok.Pos, "expected a local variable name")
	}
	name := tok.Literal
	if p.symbols.ItselfHas(name) {
		return vm.StackEffect{}, compiler.Errorf(tok.Pos, "%s is already a local variable", name)
	}
	if err := p.requireToken("="); err != nil {
		return vm.StackEffect{}, err
	}
	rhs, err := p.NextExpression(seqRight)
	if err != nil {
		return rhs, err
	}
	if rhs.InputCount() != 0 || rhs.OutputCount() != 1 {
		return rhs, compiler.Errorf(tok.Pos, "no value to assign to %s", name)
	}
	typ := rhs.Outputs()[0]
	offset := p.comp.ReserveLocalVariable(typ)
	p.symbols.Add(ParamSymbol(name, FnParam{Type: typ, Offset: offset}))
	p.CompileSetArg(typ, offset, tok.Pos)
	return vm.NewEffect(nil, nil), nil
}

// parseNegate compiles unary minus as "0 expr -".
func parseNegate(p *Parser) (vm.StackEffect, error) {
	if err := p.CompileCall(vm.Zero); err != nil {
		return vm.StackEffect{}, err
	}
	operand, err := p.NextExpression(addLeft)
	if err != nil {
		return operand, err
	}
	if operand.InputCount() != 0 || operand.OutputCount() != 1 {
		return operand, p.fail("invalid operand for prefix '-'")
	}
	if err := p.CompileCall(vm.Minus); err != nil {
		return operand, err
	}
	e, err := vm.Zero.Effect().Then(operand)
	if err != nil {
		return e, compiler.At(p.tokens.Position(), err)
	}
	return p.then(e, vm.Minus.Effect())
}
