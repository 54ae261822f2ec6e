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

// Package lang provides the tokenizer shared by the Tails front ends.
//
// The tokenizer has two modes. Word mode is Forth-style: tokens are
// whitespace-delimited words, except for string literals and the
// punctuation characters []{} which stand alone as operators; any other
// word that is not a number is an identifier. Symbol mode is for the infix
// front end: identifiers are alphanumeric (optionally ending in ':'),
// and runs of other characters are matched longest-first against a
// symbol table.
package lang

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType classifies a Token.
type TokenType int

// Token types.
const (
	Number TokenType = iota
	String
	Ident
	Operator
	End
)

// A Token is one lexical element of source code.
type Token struct {
	Type    TokenType
	Literal string  // the raw text of the token
	Str     string  // decoded value, for String tokens
	Num     float64 // numeric value, for Number tokens
	Pos     int     // byte offset into the source
}

// Valid reports whether the token is not the end marker.
func (t Token) Valid() bool { return t.Type != End }

// A SymbolSet tells the tokenizer which operator spellings exist, so it
// can split runs of punctuation by longest match.
type SymbolSet interface {
	HasSymbol(name string) bool
}

// A Tokenizer splits source code into Tokens with one token of
// lookahead.
type Tokenizer struct {
	src      string
	next     int
	cur      Token
	curErr   error
	has      bool
	symbols  SymbolSet
	wordMode bool
}

// NewTokenizer returns a symbol-mode tokenizer for the infix front end.
func NewTokenizer(src string, symbols SymbolSet) *Tokenizer {
	return &Tokenizer{src: src, symbols: symbols}
}

// NewWordTokenizer returns a word-mode tokenizer for the postfix front
// end.
func NewWordTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: src, wordMode: true}
}

// Peek returns the next token without consuming it.
func (t *Tokenizer) Peek() (Token, error) {
	if !t.has {
		t.cur, t.curErr = t.readToken()
		t.has = true
	}
	return t.cur, t.curErr
}

// Next consumes and returns the next token.
func (t *Tokenizer) Next() (Token, error) {
	tok, err := t.Peek()
	t.has = false
	return tok, err
}

// ConsumePeeked consumes the token Peek returned.
func (t *Tokenizer) ConsumePeeked() { t.has = false }

// AtEnd reports whether all input has been consumed.
func (t *Tokenizer) AtEnd() bool {
	tok, err := t.Peek()
	return err == nil && !tok.Valid()
}

// Position returns the byte offset of the next token.
func (t *Tokenizer) Position() int {
	if t.has {
		return t.cur.Pos
	}
	t.skipSpace()
	return t.next
}

// SkipThrough returns the raw text up to the next occurrence of c,
// consuming it and the delimiter. It reports failure if c is missing.
func (t *Tokenizer) SkipThrough(c byte) (string, bool) {
	t.has = false
	i := strings.IndexByte(t.src[t.next:], c)
	if i < 0 {
		return "", false
	}
	text := t.src[t.next : t.next+i]
	t.next += i + 1
	return text, true
}

func (t *Tokenizer) skipSpace() {
	for t.next < len(t.src) {
		c, size := utf8.DecodeRuneInString(t.src[t.next:])
		if !unicode.IsSpace(c) {
			break
		}
		t.next += size
	}
}

func (t *Tokenizer) readToken() (Token, error) {
	t.skipSpace()
	start := t.next
	if start >= len(t.src) {
		return Token{Type: End, Pos: start}, nil
	}
	c := t.src[start]
	r, _ := utf8.DecodeRuneInString(t.src[start:])
	switch {
	case c == '"':
		return t.readString(start)
	case t.wordMode:
		return t.readWord(start)
	case c >= '0' && c <= '9':
		return t.readNumber(start)
	case isIdentStart(r):
		return t.readIdent(start)
	default:
		return t.readSymbol(start)
	}
}

func (t *Tokenizer) readString(start int) (Token, error) {
	var b strings.Builder
	i := start + 1
	for i < len(t.src) {
		c := t.src[i]
		switch c {
		case '"':
			t.next = i + 1
			return Token{Type: String, Literal: t.src[start:t.next], Str: b.String(), Pos: start}, nil
		case '\\':
			i++
			if i >= len(t.src) {
				return Token{Pos: start}, &TokenError{Msg: "unclosed string literal", Pos: start}
			}
			switch t.src[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(t.src[i])
			}
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return Token{Pos: start}, &TokenError{Msg: "unclosed string literal", Pos: start}
}

func (t *Tokenizer) readWord(start int) (Token, error) {
	i := start
	if c := t.src[i]; c == '[' || c == ']' || c == '{' || c == '}' {
		t.next = i + 1
		return Token{Type: Operator, Literal: t.src[start:t.next], Pos: start}, nil
	}
	for i < len(t.src) {
		c, size := utf8.DecodeRuneInString(t.src[i:])
		if unicode.IsSpace(c) || strings.ContainsRune("[]{}", c) {
			break
		}
		i += size
	}
	t.next = i
	lit := t.src[start:i]
	if n, err := strconv.ParseFloat(lit, 64); err == nil {
		return Token{Type: Number, Literal: lit, Num: n, Pos: start}, nil
	}
	return Token{Type: Ident, Literal: lit, Pos: start}, nil
}

func (t *Tokenizer) readNumber(start int) (Token, error) {
	i := start
	for i < len(t.src) && (t.src[i] >= '0' && t.src[i] <= '9' || t.src[i] == '.') {
		i++
	}
	lit := t.src[start:i]
	n, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Token{Pos: start}, &TokenError{Msg: "invalid number " + lit, Pos: start}
	}
	t.next = i
	return Token{Type: Number, Literal: lit, Num: n, Pos: start}, nil
}

func (t *Tokenizer) readIdent(start int) (Token, error) {
	i := start
	for i < len(t.src) {
		c, size := utf8.DecodeRuneInString(t.src[i:])
		if !isIdentPart(c) {
			break
		}
		i += size
	}
	// An identifier may end in ':' (the if:/else: keywords).
	if i < len(t.src) && t.src[i] == ':' && !(i+1 < len(t.src) && t.src[i+1] == '=') {
		i++
	}
	t.next = i
	return Token{Type: Ident, Literal: t.src[start:i], Pos: start}, nil
}

// readSymbol matches the longest registered operator, up to 3 runes.
func (t *Tokenizer) readSymbol(start int) (Token, error) {
	end := -1
	i := start
	for n := 0; n < 3 && i < len(t.src); n++ {
		_, size := utf8.DecodeRuneInString(t.src[i:])
		i += size
		if t.symbols == nil || t.symbols.HasSymbol(t.src[start:i]) {
			end = i
			if t.symbols == nil {
				break
			}
		}
	}
	if end < 0 {
		return Token{Pos: start}, &TokenError{Msg: "unknown token " + strconv.Quote(t.src[start:i]), Pos: start}
	}
	t.next = end
	return Token{Type: Operator, Literal: t.src[start:end], Pos: start}, nil
}

func isIdentStart(c rune) bool { return c == '_' || unicode.IsLetter(c) }

func isIdentPart(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// A TokenError is a lexical error with its source offset.
type TokenError struct {
	Msg string
	Pos int
}

func (e *TokenError) Error() string { return e.Msg }
