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

// Command tails is the Tails REPL. It reads a line, compiles it through
// the postfix (Forth) or infix (Smol) front end, runs it, and prints
// the resulting stack right-justified. An empty line clears the stack;
// EOF exits.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/movingfox/tails/asm"
	"github.com/movingfox/tails/compiler"
	"github.com/movingfox/tails/lang/forth"
	"github.com/movingfox/tails/lang/smol"
	"github.com/movingfox/tails/vm"
)

const (
	promptIndent = 40
	prompt       = " ➤ "
	promptWidth  = 3 // display width of prompt
	historyFile  = ".tails_history"
)

var (
	useSmol = flag.Bool("smol", false, "use the infix (Smol) front end")
	disasm  = flag.Bool("disasm", false, "print the disassembly of each compiled line")
)

// rightJustified renders s right-justified in the prompt indent column,
// truncating on the left if it is too wide.
func rightJustified(s string) string {
	if len(s) > promptIndent {
		s = s[len(s)-promptIndent:]
	}
	return strings.Repeat(" ", promptIndent-len(s)) + s
}

func stackString(stack []vm.Value) string {
	var b strings.Builder
	for _, v := range stack {
		b.WriteString(v.String())
		b.WriteByte(' ')
	}
	return b.String()
}

// compileLine compiles one input line. The Forth front end compiles it
// against the current stack; a Smol line ignores the stack.
func compileLine(line string, stack []vm.Value) (*vm.Word, error) {
	if *useSmol {
		return smol.NewParser().Parse(line)
	}
	c := compiler.New("")
	c.SetInputStack(stack)
	if err := forth.ParseInto(c, line); err != nil {
		return nil, err
	}
	return c.Finish()
}

// report prints a compile error, underlining the source position with a
// caret the way the line was displayed.
func report(out io.Writer, err error) {
	if pos := compiler.ErrorPos(err); pos >= 0 {
		fmt.Fprintf(out, "%s⬆\n", strings.Repeat(" ", promptIndent+promptWidth+pos))
	}
	fmt.Fprintf(out, "%sError: %v\n", strings.Repeat(" ", promptIndent+promptWidth), err)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}

func main() {
	flag.Parse()

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	instance, err := vm.New(vm.Output(stdout))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	if path := historyPath(); path != "" {
		if f, err := os.Open(path); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(path); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintln(stdout, "Tails interpreter!!  Empty line clears stack.  Ctrl-D to exit.")
	stdout.Flush()

	var stack []vm.Value
	for {
		input, err := line.Prompt(rightJustified(stackString(stack)) + prompt)
		switch err {
		case nil:
		case liner.ErrPromptAborted:
			continue
		default:
			fmt.Fprintln(stdout)
			return
		}
		if strings.TrimSpace(input) == "" {
			if len(stack) == 0 {
				fmt.Fprintln(stdout, rightJustified("Cleared stack."))
			}
			stack = stack[:0]
			stdout.Flush()
			continue
		}
		line.AppendHistory(input)

		word, err := compileLine(input, stack)
		if err != nil {
			report(stdout, err)
			stdout.Flush()
			continue
		}
		if *disasm {
			if text, err := asm.String(word.Code()); err == nil {
				fmt.Fprintf(stdout, "%s%s\n", strings.Repeat(" ", promptIndent+promptWidth), text)
			}
		}

		inputs := stack
		if *useSmol {
			// Smol lines are self-contained; their results join the stack.
			inputs = nil
		}
		result, err := instance.Run(word, inputs...)
		instance.Terminal().EndLine()
		if err != nil {
			report(stdout, err)
			stdout.Flush()
			continue
		}
		if *useSmol {
			stack = append(stack, result...)
		} else {
			stack = result
		}
		stdout.Flush()
	}
}
