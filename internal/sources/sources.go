// Package sources selects the translation units that make up an extension module.
package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSuffix is the extension of compilable source files
const DefaultSuffix = ".cpp"

// SourceFile is the path of one compilable unit
type SourceFile string

func (f SourceFile) String() string { return string(f) }

// FilesystemError is returned when the source directory can't be listed
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("source directory %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Options controls how a source directory is scanned
type Options struct {
	// Suffix defaults to DefaultSuffix. Matched case-insensitively.
	Suffix string
	// Recursive descends into subdirectories
	Recursive bool
}

// Resolve lists dir and returns every regular file whose extension matches suffix,
// in directory listing order. An empty directory yields an empty set, not an error.
func Resolve(dir, suffix string) ([]SourceFile, error) {
	return ResolveWithOptions(dir, Options{Suffix: suffix})
}

func ResolveWithOptions(dir string, opts Options) ([]SourceFile, error) {
	stat, err := os.Stat(dir)
	if err != nil {
		return nil, &FilesystemError{Path: dir, Err: err}
	}
	if !stat.IsDir() {
		return nil, &FilesystemError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}

	pattern := "*"
	if opts.Recursive {
		pattern = "**"
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern,
		doublestar.WithFilesOnly(),
		doublestar.WithFailOnIOErrors(),
	)
	if err != nil {
		return nil, &FilesystemError{Path: dir, Err: err}
	}

	files := make([]SourceFile, 0, len(matches))
	for _, match := range matches {
		if !HasSuffix(match, suffix) {
			continue
		}
		files = append(files, SourceFile(filepath.Join(dir, filepath.FromSlash(match))))
	}
	return files, nil
}

// HasSuffix reports whether name ends with suffix, ignoring case
func HasSuffix(name, suffix string) bool {
	return len(name) >= len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix)
}
