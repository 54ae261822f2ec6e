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
	"strings"

	"github.com/pkg/errors"
)

// ParseEffect parses a stack-effect literal like "a# b$ -- c?".
//
// Tokens before "--" are inputs, tokens after are outputs, each written
// bottom-to-top (the rightmost token on each side is the top of the
// stack). Punctuation in a token declares allowed types: '#' number,
// '$' string, "[]" array, "{}" quotation, '?' null. Alphanumerics name
// the slot without constraining it; a token with no type marks (or only
// '?') allows any type. An output whose name repeats an input's name
// declares "same value as that input", which the checker uses to
// propagate exact types through polymorphic words.
func ParseEffect(s string) (StackEffect, error) {
	e, _, _, err := ParseEffectNames(s)
	return e, err
}

// ParseEffectNames is ParseEffect, also returning the input and output
// slot names (top of stack first; unnamed slots are empty strings).
func ParseEffectNames(s string) (StackEffect, []string, []string, error) {
	var effect StackEffect
	var inNames, outNames []string
	inputs := true
	seenSep := false

	for _, field := range strings.Fields(s) {
		if field == "--" {
			if !inputs || seenSep {
				return effect, nil, nil, errors.New("invalid stack separator")
			}
			inputs = false
			seenSep = true
			continue
		}
		ts, name, err := parseEffectToken(field)
		if err != nil {
			return effect, nil, nil, err
		}
		if inputs {
			// Tokens arrive bottom-to-top; the top of stack is index 0.
			effect.ins = append([]TypeSet{ts}, effect.ins...)
			inNames = append([]string{name}, inNames...)
		} else {
			if name != "" {
				for k, inName := range inNames {
					if inName == name {
						ts = ts.WithInputMatch(effect.ins[k], k)
						break
					}
				}
			}
			effect.outs = append([]TypeSet{ts}, effect.outs...)
			outNames = append([]string{name}, outNames...)
		}
	}
	if !seenSep {
		return effect, nil, nil, errors.New("missing stack separator")
	}
	effect.setMax(0)
	return effect, inNames, outNames, nil
}

// MustEffect parses a stack-effect literal, panicking on error. Used for
// the built-in word declarations.
func MustEffect(s string) StackEffect {
	e, err := ParseEffect(s)
	if err != nil {
		panic("vm: bad stack effect " + s + ": " + err.Error())
	}
	return e
}

func parseEffectToken(tok string) (TypeSet, string, error) {
	var ts TypeSet
	var name strings.Builder
	for _, c := range tok {
		switch {
		case c == '?':
			ts = ts.Add(ANull)
		case c == '#':
			ts = ts.Add(ANumber)
		case c == '$':
			ts = ts.Add(AString)
		case c == '[' || c == ']':
			ts = ts.Add(AnArray)
		case c == '{' || c == '}':
			ts = ts.Add(AQuote)
		case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
			name.WriteRune(c)
		default:
			return ts, "", errors.Errorf("unknown stack type symbol %q", c)
		}
	}
	// A token with no type marks, or only '?', allows anything.
	if !ts.Exists() || ts.flags == 1<<ANull {
		ts = TypeSet{flags: typeFlags}
	}
	return ts, name.String(), nil
}
