package gen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tripped/ccscript-legacy/internal/msg"
	"github.com/tripped/ccscript-legacy/internal/target"
)

const (
	GeneratorNative = "native"
	GeneratorNinja  = "ninja"
	GeneratorVS2022 = "vs2022"
)

// Generators lists the accepted generator names with their help text
var Generators = map[string]string{
	GeneratorNative: "Invoke the compiler directly (default)",
	GeneratorNinja:  "Generate build.ninja and run ninja",
	GeneratorVS2022: "Generate a Visual Studio 2022 solution and run MSBuild",
}

var errUnknownGenerator = errors.New("unknown generator")

// Generator turns one extension target into compiler invocations, either
// directly or through a generated build file
type Generator interface {
	SetCompiler(cxx string)
	AddTarget(basedir string, t *target.BuildTarget)
	// Generate returns the contents of BuildFile, or "" if there is none
	Generate(buildDir string) (string, error)
	BuildFile() string
	Invoke(ctx context.Context, buildDir string) error
	// Artifact is where Invoke leaves the loadable module
	Artifact(buildDir string) string
}

// NoSourcesError is returned when a target has nothing to compile
type NoSourcesError struct {
	Module string
}

func (e *NoSourcesError) Error() string {
	return fmt.Sprintf("no source files to compile for module %s", e.Module)
}

// ToolchainMismatchError is returned when something the toolchain config
// asks for doesn't exist on this host
type ToolchainMismatchError struct {
	What string
	Path string
}

func (e *ToolchainMismatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("toolchain mismatch: no %s found", e.What)
	}
	return fmt.Sprintf("toolchain mismatch: %s %s does not exist", e.What, e.Path)
}

// Options configures a Tool
type Options struct {
	Generator string
	Compiler  string
	BaseDir   string
	BuildDir  string
	// VSPlatform is the MSBuild platform for the vs2022 generator (x64 or Win32)
	VSPlatform string
	// TargetOS is the GOOS the module is built for, the host's if empty
	TargetOS string
}

// Tool is the extension build tool: it checks the target against the host,
// writes the generator's build file and invokes it
type Tool struct {
	opts     Options
	gen      Generator
	artifact string
}

// NewGenerator creates the named generator. goos picks the artifact name and
// link mode; the host's is used if empty.
func NewGenerator(name, vsPlatform, goos string) (Generator, error) {
	switch name {
	case GeneratorNative, "":
		g := NewNativeBuilder()
		if goos != "" {
			g.goos = goos
		}
		return g, nil
	case GeneratorNinja:
		return &NinjaGen{goos: goos}, nil
	case GeneratorVS2022:
		return NewVS2022Gen(vsPlatform), nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownGenerator, name)
	}
}

func NewTool(opts Options) (*Tool, error) {
	g, err := NewGenerator(opts.Generator, opts.VSPlatform, opts.TargetOS)
	if err != nil {
		return nil, err
	}
	return &Tool{opts: opts, gen: g}, nil
}

// Artifact returns the path of the module produced by the last successful BuildExtension
func (t *Tool) Artifact() string { return t.artifact }

func (t *Tool) BuildExtension(ctx context.Context, bt *target.BuildTarget) error {
	if len(bt.Sources) == 0 {
		return &NoSourcesError{Module: bt.ModuleName}
	}
	// msbuild brings its own compiler
	if t.opts.Generator != GeneratorVS2022 && t.opts.Compiler == "" {
		return &ToolchainMismatchError{What: "C++ compiler (set CXX)"}
	}
	if err := checkToolchainDirs(bt); err != nil {
		return err
	}

	if err := os.MkdirAll(t.opts.BuildDir, 0o755); err != nil {
		return err
	}

	t.gen.SetCompiler(t.opts.Compiler)
	t.gen.AddTarget(t.opts.BaseDir, bt.Clone())

	out, err := t.gen.Generate(t.opts.BuildDir)
	if err != nil {
		return err
	}
	if out != "" {
		buildFile := filepath.Join(t.opts.BuildDir, t.gen.BuildFile())
		if err := os.WriteFile(buildFile, []byte(out), 0o644); err != nil {
			return err
		}
		msg.Debug("wrote %s", buildFile)
	}

	if err := t.gen.Invoke(ctx, t.opts.BuildDir); err != nil {
		return err
	}
	t.artifact = t.gen.Artifact(t.opts.BuildDir)
	return nil
}

func checkToolchainDirs(bt *target.BuildTarget) error {
	check := func(what string, dirs []string) error {
		for _, dir := range dirs {
			if stat, err := os.Stat(dir); err != nil || !stat.IsDir() {
				return &ToolchainMismatchError{What: what, Path: dir}
			}
		}
		return nil
	}
	if err := check("include directory", bt.Toolchain.IncludeDirs); err != nil {
		return err
	}
	return check("library directory", bt.Toolchain.LibraryDirs)
}

// GeneratorNames returns the generator names, sorted
func GeneratorNames() []string {
	names := make([]string, 0, len(Generators))
	for name := range Generators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
