package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tripped/ccscript-legacy/internal/builder/gen"
	"github.com/tripped/ccscript-legacy/internal/descriptor"
	"github.com/tripped/ccscript-legacy/internal/msg"
	"github.com/tripped/ccscript-legacy/internal/sources"
	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

// Options are the command line overrides for a build
type Options struct {
	// Platform is the target platform identifier ("linux", "win32", ...),
	// the host platform if empty
	Platform string
	// Standard raises the C++ standard requested by Extension.toml
	Standard string
	// Legacy selects the legacy Windows SDK profile
	Legacy    bool
	Generator string
	// Compiler overrides compiler discovery
	Compiler string
	// BuildDir is relative to the project unless absolute, "build" if empty
	BuildDir string
}

type Builder struct {
	cfg     *descriptor.Config
	basedir string
	env     descriptor.Env
	opts    Options
}

func NewBuilderInDirectory(path string, opts Options) (*Builder, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	env := descriptor.NewEnv(path, opts.Platform)
	cfg, err := descriptor.Load(path, env)
	if err != nil {
		return nil, err
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", descriptor.Filename, err)
	}
	for _, w := range warnings {
		msg.Warn("%s", w)
	}

	return &Builder{cfg: cfg, basedir: path, env: env, opts: opts}, nil
}

func (b *Builder) Config() *descriptor.Config { return b.cfg }
func (b *Builder) BaseDir() string            { return b.basedir }

// Platform returns the platform the target is being built for
func (b *Builder) Platform() toolchain.Platform {
	return toolchain.ParsePlatform(b.env.TargetOS, b.opts.Legacy || b.cfg.Legacy())
}

// TargetOS is the normalized operating system the module is built for
func (b *Builder) TargetOS() string { return b.env.TargetOS }

func (b *Builder) buildDir() string {
	dir := b.opts.BuildDir
	if dir == "" {
		dir = "build"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(b.basedir, dir)
	}
	return dir
}

// Describe assembles the build target without building it
func (b *Builder) Describe() (*target.BuildTarget, error) {
	srcDir := b.cfg.Extension.Sources
	if !filepath.IsAbs(srcDir) {
		srcDir = filepath.Join(b.basedir, srcDir)
	}
	srcs, err := sources.ResolveWithOptions(srcDir, b.cfg.SourceOptions())
	if err != nil {
		return nil, err
	}

	hint := b.cfg.Hint()
	if b.opts.Standard != "" {
		hint.Standard = b.opts.Standard
	}
	tc := toolchain.Merge(toolchain.Resolve(b.Platform(), hint), b.cfg.Extra())
	msg.Debug("platform %s, toolchain %+v", b.Platform(), tc)

	return target.Assemble(b.cfg.Extension.Module, srcs, tc)
}

func (b *Builder) newTool() (*gen.Tool, error) {
	compiler := b.opts.Compiler
	if compiler == "" {
		compiler = toolchain.FindCompiler()
	}
	vsPlatform := "x64"
	if b.Platform() == toolchain.PlatformWindowsLegacy {
		// the legacy SDK only ships 32-bit libraries
		vsPlatform = "Win32"
	}
	return gen.NewTool(gen.Options{
		Generator:  b.opts.Generator,
		Compiler:   compiler,
		BaseDir:    b.basedir,
		BuildDir:   b.buildDir(),
		VSPlatform: vsPlatform,
		TargetOS:   b.env.TargetOS,
	})
}

// Build runs the package build script, assembles the target and hands it to
// the build tool. It returns the path of the built module.
func (b *Builder) Build(ctx context.Context) (string, error) {
	if err := b.cfg.RunBuildScript(b.env); err != nil {
		return "", err
	}

	bt, err := b.Describe()
	if err != nil {
		return "", err
	}

	tool, err := b.newTool()
	if err != nil {
		return "", err
	}
	if err := target.Submit(ctx, tool, bt); err != nil {
		return "", err
	}
	return tool.Artifact(), nil
}

// Install builds the module and copies it into dest
func (b *Builder) Install(ctx context.Context, dest string) (string, error) {
	artifact, err := b.Build(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}
	installed := filepath.Join(dest, filepath.Base(artifact))
	if err := copyFile(artifact, installed); err != nil {
		return "", fmt.Errorf("failed to install %s: %w", filepath.Base(artifact), err)
	}
	return installed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	mode := os.FileMode(0o755)
	if runtime.GOOS == "windows" {
		mode = 0o644
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
