package loader

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/smasher164/cdl/ast"
	"github.com/smasher164/cdl/check"
	"github.com/smasher164/cdl/lexer"
	"github.com/smasher164/cdl/parser"
	"github.com/smasher164/cdl/types"
	"golang.org/x/exp/slices"
	"golang.org/x/mod/module"
)

var _ check.Importer = (*Loader)(nil)

// Module is a loaded source file together with the scope its declarations
// are resolved in.
type Module struct {
	AST   *ast.Module
	Scope *check.ModuleScope
}

func (m *Module) Path() string { return m.AST.Path }

// Loader loads modules from a file system. A module's import path is its
// file name without the extension: "ui/button" is read from ui/button.cdl.
// A Loader is safe for concurrent use.
type Loader struct {
	fsys fs.FS
	opts []parser.Option

	mu    sync.Mutex
	cache map[string]*Module
	order []string
}

func New(fsys fs.FS, opts ...parser.Option) *Loader {
	return &Loader{
		fsys:  fsys,
		opts:  opts,
		cache: make(map[string]*Module),
	}
}

// CycleError reports modules that import each other.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return "import cycle: " + strings.Join(e.Cycle, " -> ")
}

// ImportError reports a failure to load the module named by an import
// declaration.
type ImportError struct {
	Filename string
	Span     lexer.Span
	Path     string
	Err      error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s:%d:%d: importing %q: %v", e.Filename, e.Span.Start.Line, e.Span.Start.Column, e.Path, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ExportError reports an imported name that the target module does not
// declare. Filename and Span locate the import in the importing module.
type ExportError struct {
	Filename string
	Path     string
	Name     string
	Span     lexer.Span
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("module %q does not declare %s", e.Path, e.Name)
}

func (e *ExportError) Pos() lexer.Span { return e.Span }

// Load loads the module at path and, transitively, everything it imports.
// Modules are parsed once and cached.
func (l *Loader) Load(path string) (*Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(path, nil)
}

func (l *Loader) load(path string, stack []string) (*Module, error) {
	if i := slices.Index(stack, path); i >= 0 {
		return nil, &CycleError{Cycle: append(slices.Clone(stack[i:]), path)}
	}
	if m, ok := l.cache[path]; ok {
		return m, nil
	}
	if err := module.CheckImportPath(path); err != nil {
		return nil, err
	}
	filename := path + lexer.Ext
	mod, err := parser.ParseModule(l.fsys, filename, path, l.opts...)
	if err != nil {
		return nil, err
	}
	stack = append(stack, path)
	for _, imp := range mod.Imports {
		if _, err := l.load(imp.Path.Value, stack); err != nil {
			return nil, &ImportError{Filename: filename, Span: imp.Path.Span(), Path: imp.Path.Value, Err: err}
		}
	}
	m := &Module{AST: mod}
	m.Scope = check.NewModuleScope(mod, l, check.Universe)
	l.cache[path] = m
	l.order = append(l.order, path)
	return m, nil
}

// ResolveTypeOfImport implements check.Importer. The imported declaration's
// type is the one built by its own module's scope.
func (l *Loader) ResolveTypeOfImport(spec *ast.ImportSpec) (types.Type, error) {
	m, err := l.Load(spec.Path)
	if err != nil {
		return nil, err
	}
	t, ok := m.Scope.Declared(spec.Name.String())
	if !ok {
		return nil, &ExportError{Filename: l.importedBy(spec), Path: spec.Path, Name: spec.Name.String(), Span: spec.Span()}
	}
	return t, nil
}

// importedBy returns the file name of the loaded module that declares spec.
func (l *Loader) importedBy(spec *ast.ImportSpec) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.cache {
		if m.AST.Import(spec.Name.String()) == spec {
			return m.AST.Filename
		}
	}
	return ""
}

// Modules returns the loaded modules, each after the modules it imports.
func (l *Loader) Modules() []*Module {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo.Map(l.order, func(path string, _ int) *Module { return l.cache[path] })
}

// Discover returns the import paths of every module under dir, in lexical
// order.
func Discover(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			sub, err := Discover(fsys, path.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			paths = append(paths, sub...)
		}
	}
	paths = append(paths, lo.FilterMap(entries, func(entry fs.DirEntry, _ int) (string, bool) {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != lexer.Ext {
			return "", false
		}
		return strings.TrimPrefix(path.Join(dir, strings.TrimSuffix(name, lexer.Ext)), "./"), true
	})...)
	slices.Sort(paths)
	return paths, nil
}
