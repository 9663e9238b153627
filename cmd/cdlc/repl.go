package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/check"
	"github.com/smasher164/cdl/parser"
)

const (
	historyFile = ".cdlc_history"
	prompt      = "cdl> "
)

const replHelp = `Each line is resolved as an expression in the scope of %s.
Commands:
  :props   list the component's props
  :quit    exit
Ctrl+C cancels input, Ctrl+D exits.
`

func cmdRepl(args []string) int {
	var opts options
	fset := newFlagSet("repl", &opts)
	fset.Parse(args)
	if fset.NArg() != 2 {
		fset.Usage()
		return 2
	}

	l := opts.loader()
	diag := opts.diagnostics()
	m, err := l.Load(modulePath(fset.Arg(0), 0))
	if err != nil {
		diag.report("", err)
		return 1
	}
	if opts.ast {
		ast.PrintAST(m.AST)
	}
	decl, ok := m.AST.Decl(fset.Arg(1)).(*ast.ComponentDecl)
	if !ok {
		log.Printf("%s does not declare a component %s", m.Path(), fset.Arg(1))
		return 1
	}
	scope := check.NewComponentScope(decl, m.Scope)
	fmt.Printf(replHelp, decl.Name)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			log.Print(err)
			return 1
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		switch line {
		case ":quit":
			return 0
		case ":props":
			for _, p := range decl.Props {
				typ, err := scope.LookupTypeFor(p.Name.String())
				if err != nil {
					diag.report(m.AST.Filename, err)
					continue
				}
				fmt.Printf("%s: %s\n", p.Name, typ)
			}
			continue
		}

		x, err := parser.ParseExpr(line)
		if err != nil {
			diag.report("<input>", err)
			continue
		}
		typ, err := check.ResolveTypeOf(x, scope)
		if err != nil {
			diag.report("<input>", err)
			continue
		}
		fmt.Println(typ)
	}
}
