package gen

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

type NinjaGen struct {
	cxx  string
	goos string
	unit *unit
}

func (g *NinjaGen) SetCompiler(cxx string) { g.cxx = cxx }

func (g *NinjaGen) BuildFile() string { return "build.ninja" }

func (g *NinjaGen) targetOS() string {
	if g.goos == "" {
		return runtime.GOOS
	}
	return g.goos
}

func (g *NinjaGen) msvc() bool { return toolchain.IsMSVC(g.cxx) }

// AddTarget sets the extension module to build
func (g *NinjaGen) AddTarget(basedir string, t *target.BuildTarget) {
	u := &unit{
		name:     t.ModuleName,
		artifact: t.ArtifactName(g.targetOS()),
		basedir:  basedir,
		tc:       t.Toolchain,
	}
	for _, path := range absSources(basedir, t) {
		u.sources = append(u.sources, sourceFile{
			src: path,
			obj: filepath.ToSlash(objectPath(basedir, t.ModuleName, path, objExt(g.msvc()))),
		})
	}
	g.unit = u
}

func (g *NinjaGen) Generate(buildDir string) (string, error) {
	var sb strings.Builder
	u := g.unit

	writeln(&sb, "ninja_required_version = 1.1")
	writeln(&sb, "cxx = ", shellArg(g.cxx))

	// gen rules
	if g.msvc() {
		writeln(&sb, "cflags = ", shellArgs(msvcCflags(u.tc)))
		writeln(&sb, "ldflags = ", shellArgs(msvcLinkArgs(u.tc)))
		writeln(&sb)
		write(&sb,
			`rule cxx
  command = $cxx $cflags /c $in /Fo$out
  description = CXX $out
`)
		write(&sb,
			`rule link
  command = $cxx /nologo /LD $in /Fe$out $ldflags
  description = LINK $out
`)
	} else {
		writeln(&sb, "cflags = ", shellArgs(cflags(u.tc, g.targetOS() != "windows")))
		writeln(&sb, "ldflags = ", shellArgs(ldflags(u.tc, sharedFlags(g.targetOS()))))
		writeln(&sb)
		write(&sb,
			`rule cxx
  command = $cxx $cflags -c $in -o $out
  description = CXX $out
`)
		write(&sb,
			`rule link
  command = $cxx -o $out $in $ldflags
  description = LINK $out
`)
	}
	writeln(&sb)

	// build object files
	objs := make([]string, 0, len(u.sources))
	for _, source := range u.sources {
		obj := quote(source.obj)
		objs = append(objs, obj)
		writeln(&sb, "build ", obj, ": cxx ", quote(filepath.ToSlash(source.src)))
	}
	writeln(&sb)

	// link
	writeln(&sb, "build ", quote(u.artifact), ": link ", strings.Join(objs, " "))
	writeln(&sb, "default ", quote(u.artifact))

	return sb.String(), nil
}

func (g *NinjaGen) Artifact(buildDir string) string {
	if g.unit == nil {
		return ""
	}
	return filepath.Join(buildDir, g.unit.artifact)
}

func (g *NinjaGen) Invoke(ctx context.Context, buildDir string) error {
	cmd := exec.CommandContext(ctx, "ninja", "-C", buildDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
