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

// Package asm assembles and disassembles Tails VM code.
//
// The Assembler turns a sequence of word references into an encoded
// instruction stream, tracking program-counter offsets so the compiler
// can resolve branch distances. The Disassembler is its inverse; the
// compiler uses it to splice inline words, and tests and the REPL use
// its text rendering:
//
//	NAME            word without parameter
//	NAME<n>         int16 parameter (branch offset, stack offset, _INT)
//	NAME<l,r>       packed _DROPARGS counts
//	NAME:<value>    boxed literal parameter
//	NAME:<WORD>     word-reference parameter (_INTERP family)
package asm
