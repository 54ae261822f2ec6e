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
	"strings"

	"github.com/movingfox/tails/vm"
)

// Priority is the binding priority of an operator in the Pratt parser;
// 0 is the weakest.
type Priority int

// NoPriority marks an absent parse rule.
const NoPriority Priority = -1 << 30

// An FnParam is a named function argument or local variable, bound to a
// stack offset in the current frame.
type FnParam struct {
	Type   vm.TypeSet
	Offset int
}

// Parse rule callbacks. Each emits code into the parser's Compiler and
// returns the stack effect of what it produced.
type (
	PrefixFn  func(p *Parser) (vm.StackEffect, error)
	InfixFn   func(lhs vm.StackEffect, p *Parser) (vm.StackEffect, error)
	PostfixFn = InfixFn
)

// A Symbol is one entry of the grammar: a token plus up to three parse
// rules (prefix, infix, postfix), each with a priority. A Symbol may
// also bind a literal Value, a vocabulary Word, or a function
// parameter.
type Symbol struct {
	Token string

	word    *vm.Word
	literal *vm.Value
	param   *FnParam

	prefixPriority  Priority
	leftPriority    Priority
	rightPriority   Priority
	postfixPriority Priority

	parsePrefix  PrefixFn
	parseInfix   InfixFn
	parsePostfix PostfixFn
}

// NewSymbol returns a bare symbol for a token.
func NewSymbol(token string) *Symbol {
	return &Symbol{
		Token:           token,
		prefixPriority:  NoPriority,
		leftPriority:    NoPriority,
		rightPriority:   NoPriority,
		postfixPriority: NoPriority,
	}
}

// WordSymbol returns a symbol naming a vocabulary word.
func WordSymbol(w *vm.Word) *Symbol {
	s := NewSymbol(w.Name())
	s.word = w
	return s
}

// LiteralSymbol returns a symbol that compiles to a literal value.
func LiteralSymbol(token string, v vm.Value) *Symbol {
	s := NewSymbol(token)
	s.literal = &v
	return s
}

// ParamSymbol returns a symbol bound to a function argument or local.
func ParamSymbol(name string, p FnParam) *Symbol {
	s := NewSymbol(name)
	s.param = &p
	return s
}

// Rename changes the symbol's token, e.g. to register = under "==".
func (s *Symbol) Rename(token string) *Symbol {
	s.Token = token
	return s
}

// IsLiteral reports whether the symbol is a literal value.
func (s *Symbol) IsLiteral() bool { return s.literal != nil }

// IsParam reports whether the symbol is a function argument or local.
func (s *Symbol) IsParam() bool { return s.param != nil }

// IsPrefix reports whether the symbol can begin an expression.
func (s *Symbol) IsPrefix() bool { return s.prefixPriority != NoPriority }

// IsInfix reports whether the symbol can continue an expression.
func (s *Symbol) IsInfix() bool { return s.leftPriority != NoPriority }

// IsPostfix reports whether the symbol can follow an expression.
func (s *Symbol) IsPostfix() bool { return s.postfixPriority != NoPriority }

// MakePrefix gives the symbol a prefix rule. With no custom callback
// the rule parses an operand and compiles the symbol's word.
func (s *Symbol) MakePrefix(priority Priority, fn PrefixFn) *Symbol {
	s.prefixPriority = priority
	s.parsePrefix = fn
	return s
}

// MakeInfix gives the symbol an infix rule with left and right binding
// priorities.
func (s *Symbol) MakeInfix(left, right Priority, fn InfixFn) *Symbol {
	s.leftPriority = left
	s.rightPriority = right
	s.parseInfix = fn
	return s
}

// MakePostfix gives the symbol a postfix rule.
func (s *Symbol) MakePostfix(priority Priority, fn PostfixFn) *Symbol {
	s.postfixPriority = priority
	s.parsePostfix = fn
	return s
}

// A SymbolTable is a dictionary of Symbols, optionally inheriting from
// a parent table; lookups are case-insensitive.
type SymbolTable struct {
	parent  *SymbolTable
	symbols map[string]*Symbol
}

// NewSymbolTable returns an empty table inheriting from parent (which
// may be nil).
func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{parent: parent, symbols: make(map[string]*Symbol)}
}

// Add registers a symbol under its token.
func (t *SymbolTable) Add(s *Symbol) {
	t.symbols[strings.ToUpper(s.Token)] = s
}

// Get looks a symbol up in this table and its ancestors.
func (t *SymbolTable) Get(token string) *Symbol {
	for tab := t; tab != nil; tab = tab.parent {
		if s, ok := tab.symbols[strings.ToUpper(token)]; ok {
			return s
		}
	}
	return nil
}

// ItselfHas reports whether the token exists in this table, without
// consulting ancestors.
func (t *SymbolTable) ItselfHas(token string) bool {
	_, ok := t.symbols[strings.ToUpper(token)]
	return ok
}

// HasSymbol implements lang.SymbolSet for the tokenizer's longest-match
// operator scanning.
func (t *SymbolTable) HasSymbol(token string) bool { return t.Get(token) != nil }
