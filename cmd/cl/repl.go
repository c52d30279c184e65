package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"chemlang/pkg/decimal"
	"chemlang/pkg/interpreter"
	"chemlang/pkg/lexer"
	"chemlang/pkg/parser"
	"chemlang/pkg/units"
)

const replPrompt = "cl> "
const replContinuation = "..> "

// runRepl drives a read-eval-print loop with line editing and history,
// grounded on the parsley REPL's use of peterh/liner (prompt, history
// file, Ctrl+C/Ctrl+D handling). Chemistry Language's significant
// indentation means a `during`/`exam`/`work` block spans several lines,
// so input accumulates until a blank line closes it, then the whole
// buffer is lexed, parsed, and run one statement at a time.
func runRepl() int {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyFile := historyPath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	ctx := decimal.NewContext(defaultPrecision)
	reg := units.NewRegistry()
	interp := interpreter.New(ctx, reg, os.Stdout, os.Stdin, os.Stderr)

	fmt.Fprintln(os.Stdout, "Chemistry Language REPL. Type 'exit' or Ctrl+D to quit.")

	var buf strings.Builder
	for {
		prompt := replPrompt
		if buf.Len() > 0 {
			prompt = replContinuation
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				buf.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(os.Stdout)
				return 0
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			continue
		}
		line.AppendHistory(input)

		trimmed := strings.TrimSpace(input)
		if buf.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			return 0
		}
		if buf.Len() == 0 && trimmed == "" {
			continue
		}

		buf.WriteString(input)
		buf.WriteString("\n")

		if trimmed != "" {
			continue // keep buffering until a blank line closes the block
		}

		evalBuffered(interp, reg, buf.String())
		buf.Reset()
	}
}

func evalBuffered(interp *interpreter.Interp, reg *units.Registry, src string) {
	toks, err := lexer.Lex(src, reg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	prog, errs := parser.Parse(toks, reg)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return
	}
	for _, stmt := range prog.Stmts {
		result, err := interp.Eval(stmt)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if result != "" {
			fmt.Fprintln(os.Stdout, result)
		}
	}
}

func historyPath() string {
	dir := os.TempDir()
	return dir + string(os.PathSeparator) + ".cl_history"
}
