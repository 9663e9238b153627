// Command cdlc checks component description modules.
//
// Usage:
//
//	cdlc check [-root dir] [-color] [path ...]
//	cdlc types [-root dir] [-dump] [-o file] path
//	cdlc repl [-root dir] path component
//
// A path names a module by import path ("ui/card") or by file name
// ("ui/card.cdl"), relative to -root.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/sanity-io/litter"
	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/check"
	"github.com/smasher164/cdl/fsx"
	"github.com/smasher164/cdl/lexer"
	"github.com/smasher164/cdl/loader"
	"github.com/smasher164/cdl/parser"
	"golang.org/x/term"
)

const usageText = `usage: cdlc <command> [flags] [arguments]

commands:
  check   load and check modules, reporting every diagnostic
  types   print the type of every expression in a module
  repl    resolve expressions interactively in a component's scope

Run 'cdlc <command> -h' for the flags of a command.
`

func usage() { fmt.Fprint(os.Stderr, usageText) }

func main() {
	log.SetFlags(0)
	log.SetPrefix("cdlc: ")
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch cmd := os.Args[1]; cmd {
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "types":
		os.Exit(cmdTypes(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
	default:
		log.Printf("unknown command %q", cmd)
		usage()
		os.Exit(2)
	}
}

// options are the flags shared by every command.
type options struct {
	root  string
	ast   bool
	trace bool
	color bool
}

func newFlagSet(name string, opts *options) *flag.FlagSet {
	fset := flag.NewFlagSet(name, flag.ExitOnError)
	fset.StringVar(&opts.root, "root", ".", "resolve import paths under `dir`")
	fset.BoolVar(&opts.ast, "ast", false, "print the syntax tree of each loaded module")
	fset.BoolVar(&opts.trace, "trace", false, "trace the parser to stderr")
	fset.BoolVar(&opts.color, "color", term.IsTerminal(int(os.Stderr.Fd())), "color diagnostics")
	return fset
}

func (opts *options) fsys() fsx.DirFS { return fsx.DirFS(opts.root) }

func (opts *options) loader() *loader.Loader {
	var popts []parser.Option
	if opts.trace {
		popts = append(popts, parser.WithTrace(os.Stderr))
	}
	return loader.New(opts.fsys(), popts...)
}

func (opts *options) diagnostics() *diagnostics {
	return &diagnostics{w: os.Stderr, color: opts.color}
}

// modulePath turns a command-line argument into an import path.
func modulePath(arg string, _ int) string {
	return strings.TrimPrefix(strings.TrimSuffix(filepath.ToSlash(arg), lexer.Ext), "./")
}

func cmdCheck(args []string) int {
	var opts options
	fset := newFlagSet("check", &opts)
	fset.Parse(args)

	paths := lo.Map(fset.Args(), modulePath)
	if len(paths) == 0 {
		var err error
		if paths, err = loader.Discover(opts.fsys(), "."); err != nil {
			log.Print(err)
			return 1
		}
	}
	l := opts.loader()
	diag := opts.diagnostics()
	for _, path := range paths {
		if _, err := l.Load(path); err != nil {
			diag.report("", err)
		}
	}
	checker := check.NewChecker(l)
	for _, m := range l.Modules() {
		if opts.ast {
			ast.PrintAST(m.AST)
		}
		if _, err := checker.CheckModuleIn(m.AST, m.Scope); err != nil {
			diag.report(m.AST.Filename, err)
		}
	}
	if diag.count > 0 {
		return 1
	}
	return 0
}

// typeEntry is one row of the types listing.
type typeEntry struct {
	Pos  string
	Node string
	Type string
}

func cmdTypes(args []string) int {
	var opts options
	fset := newFlagSet("types", &opts)
	dump := fset.Bool("dump", false, "dump the listing with litter")
	out := fset.String("o", "", "write the listing to `file` under -root")
	fset.Parse(args)
	if fset.NArg() != 1 {
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
	info, err := check.NewChecker(l).CheckModuleIn(m.AST, m.Scope)
	if err != nil {
		diag.report(m.AST.Filename, err)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := fsx.Create(opts.fsys(), *out)
		if err != nil {
			log.Print(err)
			return 1
		}
		defer f.Close()
		w = f
	}
	entries := lo.Map(info.Exprs(), func(x ast.Expr, _ int) typeEntry {
		span := x.Span()
		return typeEntry{
			Pos:  fmt.Sprintf("%d:%d", span.Start.Line, span.Start.Column),
			Node: strings.TrimPrefix(fmt.Sprintf("%T", x), "*ast."),
			Type: info.TypeOf(x).String(),
		}
	})
	if *dump {
		fmt.Fprintln(w, litter.Sdump(entries))
	} else {
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\n", e.Pos, e.Type)
		}
	}
	if diag.count > 0 {
		return 1
	}
	return 0
}

// diagnostics prints errors as file:line:col: message, one per line.
type diagnostics struct {
	w     io.Writer
	color bool
	count int
}

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func bold(s string) string { return "\x1b[1m" + s + "\x1b[0m" }

// report prints err, splitting joined errors. filename locates errors that
// carry only a span.
func (d *diagnostics) report(filename string, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, err := range joined.Unwrap() {
			d.report(filename, err)
		}
		return
	}
	d.count++
	loc, msg := locate(filename, err)
	if d.color {
		msg = red(msg)
		if loc != "" {
			loc = bold(loc)
		}
	}
	if loc != "" {
		msg = loc + ": " + msg
	}
	fmt.Fprintln(d.w, msg)
}

// locate finds the file and position err points at. Errors that name their
// own file win over filename.
func locate(filename string, err error) (loc, msg string) {
	var (
		pe *parser.Error
		se *check.SourceError
		ee *loader.ExportError
		ce check.Error
	)
	switch {
	case errors.As(err, &pe):
		if pe.Filename != "" {
			filename = pe.Filename
		}
		return position(filename, pe.Span), pe.Msg
	case errors.As(err, &se):
		return position(se.Filename, se.Pos()), err.Error()
	case errors.As(err, &ee) && ee.Filename != "":
		return position(ee.Filename, ee.Span), err.Error()
	case errors.As(err, &ce) && filename != "" && !ce.Pos().IsZero():
		return position(filename, ce.Pos()), err.Error()
	}
	return "", err.Error()
}

func position(filename string, span lexer.Span) string {
	return fmt.Sprintf("%s:%d:%d", filename, span.Start.Line, span.Start.Column)
}
