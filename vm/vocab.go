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
	"sort"
	"strings"
	"sync"
)

// A Vocabulary maps word names (case-folded to upper) to Words. Entries
// are only ever added, never removed, so lookups are stable.
type Vocabulary struct {
	words map[string]*Word
}

// NewVocabulary returns an empty Vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{words: make(map[string]*Word)}
}

// Add registers a word under its (upper-cased) name.
func (v *Vocabulary) Add(w *Word) {
	v.words[strings.ToUpper(w.Name())] = w
}

// Lookup finds a word by name, or returns nil.
func (v *Vocabulary) Lookup(name string) *Word {
	return v.words[strings.ToUpper(name)]
}

// Len returns the number of registered words.
func (v *Vocabulary) Len() int { return len(v.words) }

// Names returns the registered names in sorted order.
func (v *Vocabulary) Names() []string {
	names := make([]string, 0, len(v.words))
	for n := range v.words {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var (
	coreOnce  sync.Once
	coreVocab *Vocabulary
)

// Core returns the vocabulary of built-in words. It is populated once,
// on first use, and treated as immutable afterwards.
func Core() *Vocabulary {
	coreOnce.Do(func() {
		coreVocab = NewVocabulary()
		for _, w := range OpWords {
			coreVocab.Add(w)
		}
	})
	return coreVocab
}

// A VocabularyStack is an ordered list of Vocabularies to look words up
// in, plus the "current" vocabulary that newly defined words are added
// to.
type VocabularyStack struct {
	active  []*Vocabulary
	current *Vocabulary
}

// NewVocabularyStack returns a stack holding the core vocabulary plus a
// fresh user vocabulary, which is also the current one.
func NewVocabularyStack() *VocabularyStack {
	user := NewVocabulary()
	return &VocabularyStack{active: []*Vocabulary{Core(), user}, current: user}
}

// Push makes v visible to lookups, above the existing vocabularies.
func (s *VocabularyStack) Push(v *Vocabulary) { s.active = append(s.active, v) }

// Pop removes the most recently pushed vocabulary.
func (s *VocabularyStack) Pop() {
	if len(s.active) > 1 {
		s.active = s.active[:len(s.active)-1]
	}
}

// Use pushes v unless it is already active; reports whether it pushed.
func (s *VocabularyStack) Use(v *Vocabulary) bool {
	for _, a := range s.active {
		if a == v {
			return false
		}
	}
	s.Push(v)
	return true
}

// Lookup searches the active vocabularies, most recently pushed first.
func (s *VocabularyStack) Lookup(name string) *Word {
	for i := len(s.active) - 1; i >= 0; i-- {
		if w := s.active[i].Lookup(name); w != nil {
			return w
		}
	}
	return nil
}

// Current returns the vocabulary that DEFINE and named compilations
// install new words into.
func (s *VocabularyStack) Current() *Vocabulary { return s.current }

// SetCurrent changes the installation target.
func (s *VocabularyStack) SetCurrent(v *Vocabulary) { s.current = v }

var (
	activeOnce  sync.Once
	activeStack *VocabularyStack
)

// ActiveVocabularies returns the process-wide vocabulary stack used by
// the compiler, the parsers, and the DEFINE word. It is initialized on
// first use; hosts that compile from multiple goroutines must
// serialize compilation.
func ActiveVocabularies() *VocabularyStack {
	activeOnce.Do(func() { activeStack = NewVocabularyStack() })
	return activeStack
}
