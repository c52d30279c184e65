// Command cl runs Chemistry Language scripts, grounded on the teacher's
// cmd/able/main.go dispatch shape (run(args []string) int switching on
// args[0]) re-pointed at cl.yml's manifest and CL's own pipeline: lex,
// parse, interpret.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chemlang/pkg/decimal"
	"chemlang/pkg/driver"
	"chemlang/pkg/interpreter"
	"chemlang/pkg/lexer"
	"chemlang/pkg/parser"
	"chemlang/pkg/units"
)

const cliToolVersion = "cl 0.0.0-dev"

const defaultPrecision = decimal.DefaultPrecision

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runEntry(args[1:])
	case "repl":
		return runRepl()
	case "deps":
		return runDeps(args[1:])
	default:
		return runEntry(args)
	}
}

// runEntry executes a script, either a manifest's default entry (no
// arguments, cl.yml found in the current directory) or a directly named
// source file.
func runEntry(args []string) int {
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return 1
	}

	var manifest *driver.Manifest
	var entryPath string

	if len(args) == 1 {
		entryPath = args[0]
		if m, err := driver.LoadManifest(filepath.Join(filepath.Dir(entryPath), "cl.yml")); err == nil {
			manifest = m
		}
	} else {
		m, err := driver.LoadManifest("cl.yml")
		if err != nil {
			fmt.Fprintln(os.Stderr, "cl run requires a script path or a cl.yml manifest in the current directory")
			return 1
		}
		manifest = m
		entryPath = manifest.EntryPath()
	}

	if manifest != nil && len(manifest.Dependencies) > 0 {
		cacheDir := filepath.Join(filepath.Dir(manifest.Path), ".cl-deps")
		if logs, err := driver.FetchDependencies(manifest, cacheDir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to fetch dependencies: %v\n", err)
			return 1
		} else {
			for _, line := range logs {
				fmt.Fprintln(os.Stdout, line)
			}
		}
	}

	return executeEntry(entryPath, manifest)
}

func executeEntry(entryPath string, manifest *driver.Manifest) int {
	src, err := os.ReadFile(entryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", entryPath, err)
		return 1
	}

	precision := defaultPrecision
	if manifest != nil && manifest.Precision > 0 {
		precision = manifest.Precision
	}
	ctx := decimal.NewContext(precision)
	reg := units.NewRegistry()

	toks, err := lexer.Lex(string(src), reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	prog, errs := parser.Parse(toks, reg)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return 1
	}

	interp := interpreter.New(ctx, reg, os.Stdout, os.Stdin, os.Stderr)
	if manifest != nil {
		interp.SeedEnv(manifest.Env)
	}
	if interp.Run(prog) {
		return 1
	}
	return 0
}

func runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "cl deps requires a subcommand: install, update")
		return 1
	}

	manifest, err := driver.LoadManifest("cl.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load cl.yml: %v\n", err)
		return 1
	}

	switch args[0] {
	case "install", "update":
		cacheDir := filepath.Join(filepath.Dir(manifest.Path), ".cl-deps")
		logs, err := driver.FetchDependencies(manifest, cacheDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		for _, line := range logs {
			fmt.Fprintln(os.Stdout, line)
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown deps subcommand: %s\n", args[0])
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  cl run [script.cl]")
	fmt.Fprintln(os.Stderr, "  cl repl")
	fmt.Fprintln(os.Stderr, "  cl deps install")
	fmt.Fprintln(os.Stderr, "  cl deps update")
	fmt.Fprintln(os.Stderr, "  cl --version")
}
