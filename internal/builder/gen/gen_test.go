package gen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripped/ccscript-legacy/internal/msg"
	"github.com/tripped/ccscript-legacy/internal/sources"
	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

func quiet(t *testing.T) {
	t.Helper()
	prev := msg.Out
	msg.Out = &strings.Builder{}
	t.Cleanup(func() { msg.Out = prev })
}

func linuxTarget(t *testing.T, basedir string, srcs ...string) *target.BuildTarget {
	t.Helper()
	files := make([]sources.SourceFile, len(srcs))
	for i, src := range srcs {
		files[i] = sources.SourceFile(filepath.Join(basedir, "src", src))
	}
	bt, err := target.Assemble("ccscript", files, toolchain.Resolve(toolchain.PlatformLinux, toolchain.Hint{}))
	require.NoError(t, err)
	return bt
}

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	fail  string // fail when an argument contains this
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) error {
	f.calls = append(f.calls, call{name: name, args: args})
	for _, arg := range args {
		if f.fail != "" && strings.Contains(arg, f.fail) {
			return errors.New("exit status 1")
		}
	}
	return nil
}

func newFakeNative(goos string, r *fakeRunner) *NativeBuilder {
	g := NewNativeBuilder()
	g.goos = goos
	g.jobs = 1
	g.run = r.run
	return g
}

func TestToolNoSources(t *testing.T) {
	tool, err := NewTool(Options{Compiler: "g++", BuildDir: t.TempDir()})
	require.NoError(t, err)

	bt, err := target.Assemble("ccscript", nil, toolchain.Config{})
	require.NoError(t, err)

	err = tool.BuildExtension(context.Background(), bt)
	var noSrc *NoSourcesError
	require.ErrorAs(t, err, &noSrc)
	assert.Equal(t, "ccscript", noSrc.Module)
}

func TestToolMissingCompiler(t *testing.T) {
	tool, err := NewTool(Options{Generator: GeneratorNinja, BuildDir: t.TempDir()})
	require.NoError(t, err)

	err = tool.BuildExtension(context.Background(), linuxTarget(t, t.TempDir(), "ast.cpp"))
	var mismatch *ToolchainMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestToolMissingLegacySDK(t *testing.T) {
	tool, err := NewTool(Options{Compiler: "cl", BuildDir: t.TempDir()})
	require.NoError(t, err)

	sdk := toolchain.LegacySDK{Root: filepath.Join(t.TempDir(), "boost_1_55_0")}
	bt, err := target.Assemble("ccscript", []sources.SourceFile{"src/ast.cpp"},
		toolchain.Resolve(toolchain.PlatformWindowsLegacy, toolchain.Hint{SDK: sdk}))
	require.NoError(t, err)

	err = tool.BuildExtension(context.Background(), bt)
	var mismatch *ToolchainMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, sdk.Root, mismatch.Path)
	assert.Contains(t, err.Error(), "include directory")
}

func TestNewToolUnknownGenerator(t *testing.T) {
	_, err := NewTool(Options{Generator: "scons"})
	assert.ErrorIs(t, err, errUnknownGenerator)
}

func TestToolBuildsWithNativeBuilder(t *testing.T) {
	quiet(t)
	basedir := t.TempDir()
	buildDir := filepath.Join(basedir, "build")
	r := &fakeRunner{}

	tool, err := NewTool(Options{Compiler: "g++", BaseDir: basedir, BuildDir: buildDir})
	require.NoError(t, err)
	tool.gen = newFakeNative("linux", r)

	err = tool.BuildExtension(context.Background(), linuxTarget(t, basedir, "ast.cpp", "value.cpp"))
	require.NoError(t, err)

	require.Len(t, r.calls, 3)
	assert.Equal(t, filepath.Join(buildDir, "ccscript.so"), tool.Artifact())
	assert.DirExists(t, filepath.Join(buildDir, "objects", "ccscript.dir", "src"))
}

func TestNativeBuilderPlan(t *testing.T) {
	basedir := "/work/ccscript"
	r := &fakeRunner{}
	g := newFakeNative("linux", r)
	g.SetCompiler("g++")
	g.AddTarget(basedir, linuxTarget(t, basedir, "ast.cpp", "lexer.CPP"))

	compileJobs, link := g.plan("/work/ccscript/build")

	require.Len(t, compileJobs, 2)
	assert.Equal(t, []string{
		"-fPIC", "-std=c++14",
		"-c", "/work/ccscript/src/ast.cpp",
		"-o", "/work/ccscript/build/objects/ccscript.dir/src/ast.cpp.o",
	}, compileJobs[0].args)
	assert.Equal(t, "/work/ccscript/build/objects/ccscript.dir/src/lexer.CPP.o", compileJobs[1].obj)

	assert.Equal(t, "/work/ccscript/build/ccscript.so", link.out)
	assert.Equal(t, []string{
		"-o", "/work/ccscript/build/ccscript.so",
		"/work/ccscript/build/objects/ccscript.dir/src/ast.cpp.o",
		"/work/ccscript/build/objects/ccscript.dir/src/lexer.CPP.o",
		"-shared", "-lstdc++fs",
	}, link.args)
}

func TestNativeBuilderRelativeSources(t *testing.T) {
	basedir := t.TempDir()
	g := newFakeNative("darwin", &fakeRunner{})
	g.SetCompiler("clang++")

	bt, err := target.Assemble("ccscript", []sources.SourceFile{"src/ast.cpp"}, toolchain.Config{})
	require.NoError(t, err)
	g.AddTarget(basedir, bt)

	compileJobs, link := g.plan("build")
	assert.Equal(t, filepath.Join(basedir, "src", "ast.cpp"), compileJobs[0].src)
	assert.Equal(t, []string{"-bundle", "-undefined", "dynamic_lookup"}, link.args[len(link.args)-3:])
}

func TestNativeBuilderMSVC(t *testing.T) {
	g := newFakeNative("windows", &fakeRunner{})
	g.SetCompiler(`C:\VS\bin\cl.exe`)
	bt, err := target.Assemble("ccscript", []sources.SourceFile{`C:\ccscript\src\ast.cpp`},
		toolchain.Resolve(toolchain.PlatformWindowsLegacy, toolchain.Hint{}))
	require.NoError(t, err)
	g.AddTarget(`C:\ccscript`, bt)

	compileJobs, link := g.plan(`C:\ccscript\build`)
	assert.Contains(t, compileJobs[0].args, `/Ic:\local\boost_1_55_0`)
	assert.Contains(t, compileJobs[0].args, "/c")
	assert.Contains(t, link.args, "/LD")
	assert.Contains(t, link.args, `/LIBPATH:c:\local\boost_1_55_0\lib32-msvc-9.0`)
	assert.Contains(t, link.args, "boost_python-vc90-1_55.lib")
	assert.True(t, strings.HasSuffix(link.out, "ccscript.pyd"))
}

func TestNativeBuilderCompileFailureStopsBeforeLink(t *testing.T) {
	quiet(t)
	r := &fakeRunner{fail: "lexer.cpp"}
	g := newFakeNative("linux", r)
	g.SetCompiler("g++")
	g.AddTarget("/work", linuxTarget(t, "/work", "ast.cpp", "lexer.cpp"))

	err := g.Invoke(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation failed")
	for _, c := range r.calls {
		assert.NotContains(t, c.args, "-shared")
	}
}

func TestNativeBuilderLinkFailure(t *testing.T) {
	quiet(t)
	r := &fakeRunner{fail: "-shared"}
	g := newFakeNative("linux", r)
	g.SetCompiler("g++")
	g.AddTarget("/work", linuxTarget(t, "/work", "ast.cpp"))

	err := g.Invoke(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "linking failed")
}

func TestNinjaGenerate(t *testing.T) {
	g := &NinjaGen{goos: "linux"}
	g.SetCompiler("/usr/bin/g++")
	g.AddTarget("/work/cc script", linuxTarget(t, "/work/cc script", "ast.cpp", "value.cpp"))

	out, err := g.Generate("/work/cc script/build")
	require.NoError(t, err)

	assert.Contains(t, out, "cxx = /usr/bin/g++\n")
	assert.Contains(t, out, "cflags = -fPIC -std=c++14\n")
	assert.Contains(t, out, "ldflags = -shared -lstdc++fs\n")
	assert.Contains(t, out, "build objects/ccscript.dir/src/ast.cpp.o: cxx /work/cc$ script/src/ast.cpp\n")
	assert.Contains(t, out, "build ccscript.so: link objects/ccscript.dir/src/ast.cpp.o objects/ccscript.dir/src/value.cpp.o\n")
	assert.Contains(t, out, "default ccscript.so\n")
	assert.Equal(t, "build.ninja", g.BuildFile())
	assert.Equal(t, filepath.Join("out", "ccscript.so"), g.Artifact("out"))
}

func TestVS2022Generate(t *testing.T) {
	basedir := t.TempDir()
	buildDir := filepath.Join(basedir, "build")

	bt, err := target.Assemble("ccscript",
		[]sources.SourceFile{sources.SourceFile(filepath.Join(basedir, "src", "ast.cpp"))},
		toolchain.Resolve(toolchain.PlatformWindowsLegacy, toolchain.Hint{}))
	require.NoError(t, err)

	g := NewVS2022Gen("Win32")
	g.AddTarget(basedir, bt)

	sln, err := g.Generate(buildDir)
	require.NoError(t, err)
	assert.Equal(t, "ccscript.sln", g.BuildFile())
	assert.Contains(t, sln, `"ccscript", "ccscript\ccscript.vcxproj"`)
	assert.Contains(t, sln, "Release|Win32.Build.0 = Release|Win32")

	data, err := os.ReadFile(filepath.Join(buildDir, "ccscript", "ccscript.vcxproj"))
	require.NoError(t, err)
	project := string(data)
	assert.Contains(t, project, "<ConfigurationType>DynamicLibrary</ConfigurationType>")
	assert.Contains(t, project, "<TargetExt>.pyd</TargetExt>")
	assert.Contains(t, project, `<AdditionalIncludeDirectories>c:\local\boost_1_55_0;%(AdditionalIncludeDirectories)</AdditionalIncludeDirectories>`)
	assert.Contains(t, project, "boost_filesystem-vc90-1_55.lib;%(AdditionalDependencies)")
	assert.Equal(t, filepath.Join(buildDir, "Release", "ccscript.pyd"), g.Artifact(buildDir))
}

func TestVSLanguageStandard(t *testing.T) {
	assert.Equal(t, "stdcpp14", vsLanguageStandard("c++14"))
	assert.Equal(t, "stdcpp17", vsLanguageStandard("gnu++17"))
	assert.Empty(t, vsLanguageStandard(""))
}

func TestGeneratorNames(t *testing.T) {
	assert.Equal(t, []string{"native", "ninja", "vs2022"}, GeneratorNames())
}

func TestNinjaGenerateMSVC(t *testing.T) {
	g := &NinjaGen{goos: "windows"}
	g.SetCompiler(`C:\Program Files\Microsoft Visual Studio\VC\bin\cl.exe`)
	bt, err := target.Assemble("ccscript", []sources.SourceFile{"/work/src/ast.cpp"},
		toolchain.Resolve(toolchain.PlatformWindowsLegacy, toolchain.Hint{}))
	require.NoError(t, err)
	g.AddTarget("/work", bt)

	out, err := g.Generate("/work/build")
	require.NoError(t, err)

	assert.Contains(t, out, "cxx = \"C:\\Program Files\\Microsoft Visual Studio\\VC\\bin\\cl.exe\"\n")
	assert.Contains(t, out, `cflags = /nologo /EHsc /MD /Ic:\local\boost_1_55_0`+"\n")
	assert.Contains(t, out, `ldflags = /link /LIBPATH:c:\local\boost_1_55_0\lib32-msvc-9.0 boost_python-vc90-1_55.lib boost_filesystem-vc90-1_55.lib`+"\n")
	assert.Contains(t, out, "command = $cxx $cflags /c $in /Fo$out\n")
	assert.Contains(t, out, "command = $cxx /nologo /LD $in /Fe$out $ldflags\n")
	assert.Contains(t, out, "build objects/ccscript.dir/src/ast.cpp.obj: cxx /work/src/ast.cpp\n")
	assert.Contains(t, out, "build ccscript.pyd: link objects/ccscript.dir/src/ast.cpp.obj\n")
	assert.NotContains(t, out, "-shared")
	assert.NotContains(t, out, "-o $out")
}

func TestNewToolUsesTargetOS(t *testing.T) {
	for _, name := range []string{GeneratorNative, GeneratorNinja} {
		t.Run(name, func(t *testing.T) {
			tool, err := NewTool(Options{Generator: name, Compiler: "x86_64-w64-mingw32-g++", TargetOS: "windows"})
			require.NoError(t, err)

			tool.gen.SetCompiler("x86_64-w64-mingw32-g++")
			tool.gen.AddTarget("/work", linuxTarget(t, "/work", "ast.cpp"))
			assert.Equal(t, filepath.Join("build", "ccscript.pyd"), tool.gen.Artifact("build"))
		})
	}
}
