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

// Package forth is the postfix front end: classical Forth syntax with
// numbers, strings, word names, IF/ELSE/THEN, BEGIN/WHILE/REPEAT,
// array literals in braces, and quotations in brackets.
package forth

import (
	"github.com/movingfox/tails/compiler"
	"github.com/movingfox/tails/lang"
	"github.com/movingfox/tails/vm"
)

// Parse compiles postfix source into an anonymous word whose inputs
// and outputs are deduced from the code.
func Parse(source string) (*vm.Word, error) {
	c := compiler.New("")
	if err := ParseInto(c, source); err != nil {
		return nil, err
	}
	return c.Finish()
}

// ParseInto compiles postfix source into an existing Compiler, which
// the caller configures and finishes. The REPL uses this to compile
// against its current value stack.
func ParseInto(c *compiler.Compiler, source string) error {
	p := &parser{c: c, tokens: lang.NewWordTokenizer(source)}
	return p.run("")
}

type parser struct {
	c      *compiler.Compiler
	tokens *lang.Tokenizer
}

// run parses tokens until the given terminator (or the end of input if
// terminator is empty).
func (p *parser) run(terminator string) error {
	for {
		tok, err := p.tokens.Next()
		if err != nil {
			return compiler.At(p.tokens.Position(), err)
		}
		if !tok.Valid() {
			if terminator != "" {
				return compiler.Errorf(tok.Pos, "missing %q", terminator)
			}
			return nil
		}
		if tok.Literal == terminator {
			return nil
		}
		if err := p.parseToken(tok); err != nil {
			return err
		}
	}
}

func (p *parser) parseToken(tok lang.Token) error {
	switch tok.Type {
	case lang.Number:
		p.c.AddLiteral(vm.Num(tok.Num), tok.Pos)
		return nil
	case lang.String:
		p.c.AddLiteral(vm.Str(tok.Str), tok.Pos)
		return nil
	case lang.Operator:
		switch tok.Literal {
		case "{":
			return p.parseArray(tok.Pos)
		case "[":
			return p.parseQuote(tok.Pos)
		}
		return compiler.Errorf(tok.Pos, "unexpected %q", tok.Literal)
	}

	switch tok.Literal {
	case "IF":
		// IF compiles into 0BRANCH, with offset to be fixed later.
		p.c.PushBranch('i', vm.ZBranch, tok.Pos)
		return nil
	case "ELSE":
		// ELSE compiles into BRANCH and resolves the IF's branch.
		ifPos, err := p.c.PopBranch("i", tok.Pos)
		if err != nil {
			return err
		}
		p.c.PushBranch('e', vm.Branch, tok.Pos)
		p.c.FixBranch(ifPos)
		return nil
	case "THEN":
		// THEN generates no code but completes the branch from IF or ELSE.
		pos, err := p.c.PopBranch("ie", tok.Pos)
		if err != nil {
			return err
		}
		p.c.FixBranch(pos)
		return nil
	case "BEGIN":
		p.c.PushBranch('b', nil, tok.Pos)
		return nil
	case "WHILE":
		p.c.PushBranch('w', vm.ZBranch, tok.Pos)
		return nil
	case "REPEAT":
		whilePos, err := p.c.PopBranch("w", tok.Pos)
		if err != nil {
			return err
		}
		beginPos, err := p.c.PopBranch("b", tok.Pos)
		if err != nil {
			return err
		}
		p.c.AddBranchBackTo(beginPos, tok.Pos)
		p.c.FixBranch(whilePos)
		return nil
	case "RECURSE":
		p.c.AddRecurse(tok.Pos)
		return nil
	}

	if w := vm.ActiveVocabularies().Lookup(tok.Literal); w != nil {
		_, err := p.c.AddWord(w, tok.Pos)
		return err
	}
	return compiler.Errorf(tok.Pos, "unknown word %q", tok.Literal)
}

// parseArray compiles a literal array in braces. Only literal items are
// allowed.
func (p *parser) parseArray(startPos int) error {
	var items []vm.Value
	for {
		tok, err := p.tokens.Next()
		if err != nil {
			return compiler.At(p.tokens.Position(), err)
		}
		switch {
		case !tok.Valid():
			return compiler.Errorf(startPos, `missing "}"`)
		case tok.Literal == "}":
			p.c.AddLiteral(vm.NewArray(items...), startPos)
			return nil
		case tok.Type == lang.Number:
			items = append(items, vm.Num(tok.Num))
		case tok.Type == lang.String:
			items = append(items, vm.Str(tok.Str))
		case tok.Literal == "NULL":
			items = append(items, vm.NullValue)
		default:
			return compiler.Errorf(tok.Pos, "only literals are allowed in an array")
		}
	}
}

// parseQuote compiles a bracketed quotation into an anonymous word and
// pushes it as a literal. The quote's inputs are deduced from how far
// it reaches down the stack.
func (p *parser) parseQuote(startPos int) error {
	sub := &parser{c: compiler.New(""), tokens: p.tokens}
	if err := sub.run("]"); err != nil {
		return err
	}
	quote, err := sub.c.Finish()
	if err != nil {
		return err
	}
	p.c.AddLiteral(vm.Quote(quote), startPos)
	return nil
}
