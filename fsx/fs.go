package fsx

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing/fstest"

	"github.com/samber/lo"
)

var (
	_ CreateFS = MemFS{}
	_ CreateFS = DirFS("")
)

type WriteableFile interface {
	fs.File
	io.Writer
}

type CreateFS interface {
	fs.FS
	Create(name string) (WriteableFile, error)
}

// Create creates or truncates the named file in fsys.
func Create(fsys fs.FS, name string) (WriteableFile, error) {
	if cfs, ok := fsys.(CreateFS); ok {
		return cfs.Create(name)
	}
	return nil, &fs.PathError{Op: "create", Path: name, Err: fs.ErrInvalid}
}

// MemFS is an in-memory file tree.
type MemFS struct {
	fstest.MapFS
}

// TestFS builds a MemFS from (path, body) pairs. Bodies are dedented, so
// sources can be written as indented raw strings.
func TestFS(files ...[2]string) MemFS {
	mfs := MemFS{fstest.MapFS{}}
	for _, file := range files {
		mfs.Add(file[0], Dedent(file[1]))
	}
	return mfs
}

func (mfs MemFS) Add(name, body string) MemFS {
	mfs.MapFS[name] = &fstest.MapFile{Data: []byte(body)}
	return mfs
}

type memFile struct {
	f *fstest.MapFile
	fs.File
}

func (mf memFile) Write(p []byte) (int, error) {
	mf.f.Data = append(mf.f.Data, p...)
	return len(p), nil
}

// Create implements CreateFS
func (mfs MemFS) Create(name string) (WriteableFile, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "create", Path: name, Err: fs.ErrInvalid}
	}
	if f, ok := mfs.MapFS[name]; ok && f.Mode.IsDir() {
		return nil, &fs.PathError{Op: "create", Path: name, Err: fs.ErrExist}
	}
	f := &fstest.MapFile{}
	mfs.MapFS[name] = f
	of, err := mfs.Open(name)
	if err != nil {
		return nil, err
	}
	return memFile{f, of}, nil
}

// DirFS is os.DirFS with support for creating files.
type DirFS string

func (dir DirFS) Open(name string) (fs.File, error) {
	fullname, err := dir.join(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	f, err := os.Open(fullname)
	if err != nil {
		err.(*os.PathError).Path = name
		return nil, err
	}
	return f, nil
}

// Create implements CreateFS
func (dir DirFS) Create(name string) (WriteableFile, error) {
	fullname, err := dir.join(name)
	if err != nil {
		return nil, &os.PathError{Op: "create", Path: name, Err: err}
	}
	f, err := os.Create(fullname)
	if err != nil {
		err.(*os.PathError).Path = name
		return nil, err
	}
	return f, nil
}

// join returns the path for name in dir.
func (dir DirFS) join(name string) (string, error) {
	if dir == "" {
		return "", errors.New("fsx: DirFS with empty root")
	}
	if !fs.ValidPath(name) {
		return "", os.ErrInvalid
	}
	name, err := filepath.Localize(name)
	if err != nil {
		return "", os.ErrInvalid
	}
	return filepath.Join(string(dir), name), nil
}

// Dedent removes the indentation common to every non-blank line of s, along
// with a leading newline.
func Dedent(s string) string {
	s = strings.TrimPrefix(s, "\n")
	lines := strings.Split(s, "\n")
	var prefix string
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ws := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = ws, false
			continue
		}
		for !strings.HasPrefix(ws, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return strings.Join(lo.Map(lines, func(line string, _ int) string {
		if strings.TrimSpace(line) == "" {
			return ""
		}
		return strings.TrimPrefix(line, prefix)
	}), "\n")
}
