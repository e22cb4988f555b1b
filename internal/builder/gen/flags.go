package gen

import (
	"path/filepath"
	"strings"

	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

// unit is a target as the generators see it: absolute sources plus
// ready-to-use compile and link flags
type unit struct {
	name     string
	artifact string
	basedir  string
	sources  []sourceFile
	tc       toolchain.Config
}

// sourceFile represents a single source file and its corresponding object file path
type sourceFile struct {
	src string
	obj string
}

// objectPath places the object for src under objects/<module>.dir, mirroring
// the source tree relative to basedir
func objectPath(basedir, module, src, ext string) string {
	rel, err := filepath.Rel(basedir, src)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(src)
	}
	return filepath.Join("objects", module+".dir", rel+ext)
}

func objExt(msvc bool) string {
	if msvc {
		return ".obj"
	}
	return ".o"
}

// cflags renders tc in gcc/clang syntax
func cflags(tc toolchain.Config, pic bool) []string {
	flags := make([]string, 0, len(tc.CompileFlags)+len(tc.IncludeDirs)+1)
	if pic {
		flags = append(flags, "-fPIC")
	}
	flags = append(flags, tc.CompileFlags...)
	for _, dir := range tc.IncludeDirs {
		flags = append(flags, "-I"+dir)
	}
	return flags
}

// ldflags renders tc in gcc/clang syntax. sharedFlags come first so the
// link mode is set before any library is named.
func ldflags(tc toolchain.Config, sharedFlags []string) []string {
	flags := append([]string{}, sharedFlags...)
	for _, dir := range tc.LibraryDirs {
		flags = append(flags, "-L"+dir)
	}
	for _, lib := range tc.Libraries {
		flags = append(flags, "-l"+lib)
	}
	return append(flags, tc.LinkFlags...)
}

// msvcCflags renders tc for cl.exe
func msvcCflags(tc toolchain.Config) []string {
	flags := []string{"/nologo", "/EHsc", "/MD"}
	if tc.Standard != "" {
		flags = append(flags, "/std:"+strings.Replace(tc.Standard, "gnu++", "c++", 1))
	}
	flags = append(flags, tc.CompileFlags...)
	for _, dir := range tc.IncludeDirs {
		flags = append(flags, "/I"+dir)
	}
	return flags
}

// msvcLinkArgs renders tc for the /link section of cl.exe
func msvcLinkArgs(tc toolchain.Config) []string {
	args := []string{"/link"}
	for _, dir := range tc.LibraryDirs {
		args = append(args, "/LIBPATH:"+dir)
	}
	for _, lib := range tc.Libraries {
		args = append(args, libName(lib))
	}
	return append(args, tc.LinkFlags...)
}

func libName(lib string) string {
	if strings.HasSuffix(strings.ToLower(lib), ".lib") {
		return lib
	}
	return lib + ".lib"
}

// absSources resolves the target's sources against basedir
func absSources(basedir string, t *target.BuildTarget) []string {
	paths := t.SourcePaths()
	for i, path := range paths {
		if !filepath.IsAbs(path) {
			paths[i] = filepath.Join(basedir, path)
		}
	}
	return paths
}
