package gen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/tripped/ccscript-legacy/internal/msg"
	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
	"golang.org/x/sync/errgroup"
)

// compileJob represents a single compilation job
type compileJob struct {
	src  string
	obj  string
	args []string
}

// linkJob represents the final link of the extension module
type linkJob struct {
	out  string
	args []string
}

// runFunc executes one compiler invocation
type runFunc func(ctx context.Context, name string, args ...string) error

// NativeBuilder compiles and links the module by calling the compiler
// itself. Every invocation rebuilds from scratch.
type NativeBuilder struct {
	cxx  string
	goos string
	jobs int
	unit *unit
	run  runFunc
}

func NewNativeBuilder() *NativeBuilder {
	return &NativeBuilder{
		goos: runtime.GOOS,
		jobs: runtime.NumCPU(),
		run:  runCommand,
	}
}

func (g *NativeBuilder) SetCompiler(cxx string) { g.cxx = cxx }

func (g *NativeBuilder) BuildFile() string { return "" }

func (g *NativeBuilder) msvc() bool { return toolchain.IsMSVC(g.cxx) }

func (g *NativeBuilder) AddTarget(basedir string, t *target.BuildTarget) {
	u := &unit{
		name:     t.ModuleName,
		artifact: t.ArtifactName(g.goos),
		basedir:  basedir,
		tc:       t.Toolchain,
	}
	for _, path := range absSources(basedir, t) {
		u.sources = append(u.sources, sourceFile{
			src: path,
			obj: objectPath(basedir, t.ModuleName, path, objExt(g.msvc())),
		})
	}
	g.unit = u
}

func (g *NativeBuilder) Generate(buildDir string) (string, error) {
	return "", nil // no build file needed
}

func (g *NativeBuilder) Artifact(buildDir string) string {
	if g.unit == nil {
		return ""
	}
	return filepath.Join(buildDir, g.unit.artifact)
}

// Invoke compiles every source in parallel, then links them into the module
func (g *NativeBuilder) Invoke(ctx context.Context, buildDir string) error {
	if g.unit == nil {
		return fmt.Errorf("native builder: no target")
	}

	compileJobs, link := g.plan(buildDir)

	if err := runJobs(ctx, compileJobs, g.jobs, func(ctx context.Context, job compileJob) error {
		if err := os.MkdirAll(filepath.Dir(job.obj), 0o755); err != nil {
			return fmt.Errorf("failed to create object directory: %w", err)
		}
		msg.Step("CXX", job.src)
		return g.run(ctx, g.cxx, job.args...)
	}); err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	msg.Step("LINK", link.out)
	if err := g.run(ctx, g.cxx, link.args...); err != nil {
		return fmt.Errorf("linking failed: %w", err)
	}
	return nil
}

// plan builds the argument lists for every compile and for the link
func (g *NativeBuilder) plan(buildDir string) ([]compileJob, linkJob) {
	u := g.unit
	compileJobs := make([]compileJob, 0, len(u.sources))
	objects := make([]string, 0, len(u.sources))

	for _, src := range u.sources {
		obj := filepath.Join(buildDir, src.obj)
		objects = append(objects, obj)

		var args []string
		if g.msvc() {
			args = append(msvcCflags(u.tc), "/c", src.src, "/Fo"+obj)
		} else {
			args = append(cflags(u.tc, g.goos != "windows"), "-c", src.src, "-o", obj)
		}
		compileJobs = append(compileJobs, compileJob{src: src.src, obj: obj, args: args})
	}

	out := filepath.Join(buildDir, u.artifact)
	var args []string
	if g.msvc() {
		args = []string{"/nologo", "/LD"}
		args = append(args, objects...)
		args = append(args, "/Fe"+out)
		args = append(args, msvcLinkArgs(u.tc)...)
	} else {
		args = []string{"-o", out}
		args = append(args, objects...)
		args = append(args, ldflags(u.tc, sharedFlags(g.goos))...)
	}
	return compileJobs, linkJob{out: out, args: args}
}

// sharedFlags are the flags that make the linker emit a loadable module
func sharedFlags(goos string) []string {
	switch goos {
	case "darwin":
		// host runtime symbols resolve at load time
		return []string{"-bundle", "-undefined", "dynamic_lookup"}
	default:
		return []string{"-shared"}
	}
}

// runJobs runs jobs in parallel, stopping at the first failure
func runJobs[T any](ctx context.Context, jobs []T, limit int, jobfunc func(ctx context.Context, job T) error) error {
	if len(jobs) == 0 {
		return nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(limit, 1))

	for _, job := range jobs {
		eg.Go(func() error {
			return jobfunc(ctx, job)
		})
	}

	return eg.Wait()
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &msg.IndentWriter{Indent: "    ", W: os.Stdout}
	cmd.Stderr = &msg.IndentWriter{Indent: "    ", W: os.Stderr}
	return cmd.Run()
}
