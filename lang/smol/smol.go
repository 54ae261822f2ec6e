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

// Package smol is the infix front end: a Pratt (top-down operator
// precedence) parser whose grammar is a table of Symbols, each carrying
// prefix/infix/postfix rules that emit into the same Compiler as the
// postfix front end.
//
// A program is one expression. It may start with an argument list in
// parentheses, written in stack-effect notation with named parameters:
//
//	(x# y# -- #) x*x + y*y
//
// The grammar has let-bindings, assignment with :=, conditionals with
// if:/else:, expression sequencing with ';', and function-call syntax
// for vocabulary words, e.g. max(x, y).
package smol

import (
	"strings"

	"github.com/movingfox/tails/compiler"
	"github.com/movingfox/tails/lang"
	"github.com/movingfox/tails/vm"
)

// A Parser compiles one infix source string into a word. Use a new
// Parser for every compilation.
type Parser struct {
	symbols *SymbolTable
	tokens  *lang.Tokenizer
	comp    *compiler.Compiler
	effect  vm.StackEffect
}

// NewParser returns a parser over the standard grammar.
func NewParser() *Parser {
	return &Parser{symbols: NewSymbolTable(grammar())}
}

// Parse compiles the source and returns the finished word.
func (p *Parser) Parse(source string) (*vm.Word, error) {
	p.tokens = lang.NewTokenizer(source, p.symbols)
	p.comp = compiler.New("")

	ok, err := p.ifToken("(")
	if err != nil {
		return nil, err
	}
	if ok {
		if err := p.parseSignature(); err != nil {
			return nil, err
		}
	}

	if _, err := p.NextExpression(NoPriority); err != nil {
		return nil, err
	}
	if !p.tokens.AtEnd() {
		return nil, p.fail("expected input to end here")
	}
	return p.comp.Finish()
}

// parseSignature reads the argument list "( x# y$ -- # )", declares the
// word's stack effect, and binds the parameter names.
func (p *Parser) parseSignature() error {
	pos := p.tokens.Position()
	text, ok := p.tokens.SkipThrough(')')
	if !ok {
		return compiler.Errorf(pos, "missing ')' to end parameter list")
	}
	effect, inNames, _, err := vm.ParseEffectNames(text)
	if err != nil {
		return compiler.At(pos, err)
	}
	p.effect = effect
	p.comp.SetStackEffect(effect)
	p.comp.PreserveArgs()
	for i, name := range inNames {
		if name == "" {
			return compiler.Errorf(pos, "unnamed parameter")
		}
		if p.symbols.ItselfHas(name) {
			return compiler.Errorf(pos, "duplicate parameter name %s", name)
		}
		p.symbols.Add(ParamSymbol(name, FnParam{Type: effect.Inputs()[i], Offset: -i}))
	}
	return nil
}

// NextExpression is the Pratt loop: parse a prefix expression, then
// keep consuming infix and postfix operators whose left priority is at
// least minPriority. It returns the stack effect of the code emitted.
func (p *Parser) NextExpression(minPriority Priority) (vm.StackEffect, error) {
	var lhs vm.StackEffect
	tok, err := p.tokens.Next()
	if err != nil {
		return lhs, compiler.At(p.tokens.Position(), err)
	}
	switch tok.Type {
	case lang.End:
		return lhs, p.fail("unexpected end of input")
	case lang.Number:
		lhs = p.CompileLiteral(vm.Num(tok.Num), tok.Pos)
	case lang.String:
		lhs = p.CompileLiteral(vm.Str(tok.Str), tok.Pos)
	default:
		lhs, err = p.parsePrefixToken(tok)
		if err != nil {
			return lhs, err
		}
	}

	for {
		op, err := p.tokens.Peek()
		if err != nil {
			return lhs, compiler.At(p.tokens.Position(), err)
		}
		switch op.Type {
		case lang.End:
			return lhs, nil
		case lang.Number, lang.String:
			return lhs, p.fail("expected an operator")
		}
		sym := p.symbols.Get(op.Literal)
		if sym == nil {
			return lhs, compiler.Errorf(op.Pos, "unknown symbol %q", op.Literal)
		}
		switch {
		case sym.IsPostfix():
			if sym.postfixPriority < minPriority {
				return lhs, nil
			}
			p.tokens.ConsumePeeked()
			lhs, err = p.applyPostfix(sym, lhs)
		case sym.IsInfix():
			if sym.leftPriority < minPriority {
				return lhs, nil
			}
			p.tokens.ConsumePeeked()
			lhs, err = p.applyInfix(sym, lhs)
		default:
			return lhs, nil
		}
		if err != nil {
			return lhs, err
		}
	}
}

func (p *Parser) parsePrefixToken(tok lang.Token) (vm.StackEffect, error) {
	if sym := p.symbols.Get(tok.Literal); sym != nil {
		switch {
		case sym.IsLiteral():
			return p.CompileLiteral(*sym.literal, tok.Pos), nil
		case sym.IsParam():
			return p.parseParam(sym.param, tok.Pos)
		case sym.IsPrefix():
			return p.applyPrefix(sym)
		}
		return vm.StackEffect{}, compiler.Errorf(tok.Pos, "%s cannot begin an expression", sym.Token)
	}
	if tok.Type == lang.Ident {
		if strings.EqualFold(tok.Literal, "recurse") {
			return p.parseRecurse(tok.Pos)
		}
		if w := vm.ActiveVocabularies().Lookup(tok.Literal); w != nil {
			return p.parseWordCall(w, tok.Pos)
		}
	}
	return vm.StackEffect{}, compiler.Errorf(tok.Pos, "unknown symbol %q", tok.Literal)
}

func (p *Parser) applyPrefix(sym *Symbol) (vm.StackEffect, error) {
	if sym.parsePrefix != nil {
		return sym.parsePrefix(p)
	}
	operand, err := p.NextExpression(sym.prefixPriority)
	if err != nil {
		return operand, err
	}
	if err := p.CompileCall(sym.word); err != nil {
		return operand, err
	}
	return p.then(operand, sym.word.Effect())
}

func (p *Parser) applyInfix(sym *Symbol, lhs vm.StackEffect) (vm.StackEffect, error) {
	if sym.parseInfix != nil {
		return sym.parseInfix(lhs, p)
	}
	rhs, err := p.NextExpression(sym.rightPriority)
	if err != nil {
		return rhs, err
	}
	operands, err := p.then(lhs, rhs)
	if err != nil {
		return operands, err
	}
	if err := p.CompileCall(sym.word); err != nil {
		return operands, err
	}
	return p.then(operands, sym.word.Effect())
}

func (p *Parser) applyPostfix(sym *Symbol, lhs vm.StackEffect) (vm.StackEffect, error) {
	if sym.parsePostfix != nil {
		return sym.parsePostfix(lhs, p)
	}
	if err := p.CompileCall(sym.word); err != nil {
		return lhs, err
	}
	return p.then(lhs, sym.word.Effect())
}

// parseParam compiles a reference to an argument or local: a plain read
// emits _GETARG; a reference followed by := parses the right-hand side
// and emits _SETARG.
func (p *Parser) parseParam(param *FnParam, pos int) (vm.StackEffect, error) {
	assign, err := p.ifToken(":=")
	if err != nil {
		return vm.StackEffect{}, err
	}
	if !assign {
		return p.CompileGetArg(param.Type, param.Offset, pos), nil
	}
	rhs, err := p.NextExpression(assignRight)
	if err != nil {
		return rhs, err
	}
	if rhs.InputCount() != 0 || rhs.OutputCount() != 1 {
		return rhs, compiler.Errorf(pos, "no value to assign")
	}
	p.CompileSetArg(param.Type, param.Offset, pos)
	return vm.NewEffect(nil, nil), nil
}

// parseWordCall compiles a vocabulary word in function-call syntax,
// e.g. abs(-3) or max(x, y). A word with no inputs may be named bare.
func (p *Parser) parseWordCall(w *vm.Word, pos int) (vm.StackEffect, error) {
	args, called, err := p.parseCallArgs(pos)
	if err != nil {
		return args, err
	}
	if !called {
		if w.Effect().InputCount() != 0 {
			return args, compiler.Errorf(pos, "%s cannot begin an expression", w.Name())
		}
	} else if args.OutputCount() != w.Effect().InputCount() {
		return args, compiler.Errorf(pos, "%s takes %d argument(s), got %d",
			w.Name(), w.Effect().InputCount(), args.OutputCount())
	}
	if err := p.CompileCall(w); err != nil {
		return args, err
	}
	return p.then(args, w.Effect())
}

// parseRecurse compiles a recursive call to the word being compiled,
// using the declared stack effect.
func (p *Parser) parseRecurse(pos int) (vm.StackEffect, error) {
	args, called, err := p.parseCallArgs(pos)
	if err != nil {
		return args, err
	}
	if called && args.OutputCount() != p.effect.InputCount() {
		return args, compiler.Errorf(pos, "recurse takes %d argument(s), got %d",
			p.effect.InputCount(), args.OutputCount())
	}
	p.comp.AddRecurse(pos)
	return p.then(args, vm.NewEffect(p.effect.Inputs(), p.effect.Outputs()))
}

// parseCallArgs parses an optional parenthesized, comma-separated
// argument list and returns the combined effect of the arguments.
func (p *Parser) parseCallArgs(pos int) (args vm.StackEffect, called bool, err error) {
	ok, err := p.ifToken("(")
	if err != nil || !ok {
		return args, false, err
	}
	empty, err := p.ifToken(")")
	if err != nil {
		return args, true, err
	}
	for !empty {
		arg, err := p.NextExpression(NoPriority)
		if err != nil {
			return args, true, err
		}
		if args, err = p.then(args, arg); err != nil {
			return args, true, compiler.At(pos, err)
		}
		comma, err := p.ifToken(",")
		if err != nil {
			return args, true, err
		}
		if !comma {
			if err := p.requireToken(")"); err != nil {
				return args, true, err
			}
			break
		}
	}
	return args, true, nil
}

// CompileLiteral emits a push of a literal value.
func (p *Parser) CompileLiteral(v vm.Value, pos int) vm.StackEffect {
	p.comp.AddLiteral(v, pos)
	return vm.NewEffect(nil, []vm.TypeSet{vm.TypeSetOf(v.Type())})
}

// CompileCall emits a call to a word.
func (p *Parser) CompileCall(w *vm.Word) error {
	_, err := p.comp.AddWord(w, p.tokens.Position())
	return err
}

// CompileGetArg emits a read of an argument or local.
func (p *Parser) CompileGetArg(ts vm.TypeSet, offset, pos int) vm.StackEffect {
	p.comp.AddGetArg(offset, pos)
	return vm.NewEffect(nil, []vm.TypeSet{ts})
}

// CompileSetArg emits a write to an argument or local.
func (p *Parser) CompileSetArg(ts vm.TypeSet, offset, pos int) vm.StackEffect {
	p.comp.AddSetArg(offset, pos)
	return vm.NewEffect([]vm.TypeSet{ts}, nil)
}

// Compiler exposes the underlying Compiler to grammar rules.
func (p *Parser) Compiler() *compiler.Compiler { return p.comp }

// Symbols exposes the parser-local symbol table to grammar rules.
func (p *Parser) Symbols() *SymbolTable { return p.symbols }

// Tokens exposes the tokenizer to grammar rules.
func (p *Parser) Tokens() *lang.Tokenizer { return p.tokens }

// DeclaredEffect returns the stack effect declared by the signature.
func (p *Parser) DeclaredEffect() vm.StackEffect { return p.effect }

func (p *Parser) then(a, b vm.StackEffect) (vm.StackEffect, error) {
	e, err := a.Then(b)
	if err != nil {
		return e, compiler.At(p.tokens.Position(), err)
	}
	return e, nil
}

func (p *Parser) ifToken(literal string) (bool, error) {
	tok, err := p.tokens.Peek()
	if err != nil {
		return false, compiler.At(p.tokens.Position(), err)
	}
	if tok.Literal != literal {
		return false, nil
	}
	p.tokens.ConsumePeeked()
	return true, nil
}

func (p *Parser) requireToken(literal string) error {
	ok, err := p.ifToken(literal)
	if err != nil {
		return err
	}
	if !ok {
		return p.fail("expected %q", literal)
	}
	return nil
}

func (p *Parser) fail(format string, args ...interface{}) error {
	return compiler.Errorf(p.tokens.Position(), format, args...)
}
