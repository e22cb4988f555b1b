package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripped/ccscript-legacy/internal/builder"
	"github.com/tripped/ccscript-legacy/internal/descriptor"
)

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("native", map[string]string{"native": "", "ninja": "", "vs2022": ""})
	assert.Equal(t, "[native, ninja, vs2022]", e.HelpString())

	require.NoError(t, e.Set("ninja"))
	assert.Equal(t, "ninja", e.Value())

	assert.ErrorContains(t, e.Set("make"), "must be one of")
	assert.Equal(t, "ninja", e.Value())

	require.NoError(t, e.Set(""))
	assert.Equal(t, "native", e.Value())

	assert.Panics(t, func() { NewEnumValue("make", map[string]string{"native": ""}) })
}

func TestBuildOptionsFromEnvironment(t *testing.T) {
	t.Setenv("EXTBUILD_PLATFORM", "win32")
	t.Setenv("EXTBUILD_BUILD_DIR", "out")
	t.Setenv("EXTBUILD_LEGACY", "true")

	opts := buildOptions(buildCmd)
	assert.Equal(t, builder.Options{
		Platform:  "win32",
		Legacy:    true,
		Generator: "native",
		BuildDir:  "out",
	}, opts)
}

func TestInitScaffoldsDescribableProject(t *testing.T) {
	dir := t.TempDir()
	initIn(dir, "ccscript")

	assert.FileExists(t, filepath.Join(dir, descriptor.Filename))
	assert.FileExists(t, filepath.Join(dir, ".gitignore"))
	stub, err := os.ReadFile(filepath.Join(dir, "src", "ccscript.cpp"))
	require.NoError(t, err)
	assert.Contains(t, string(stub), "PyInit_ccscript(void)")

	b, err := builder.NewBuilderInDirectory(dir, builder.Options{Platform: "linux"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, describe(&out, b))

	var d struct {
		Platform string `toml:"platform"`
		Artifact string `toml:"artifact"`
		Init     string `toml:"init_symbol"`
		Target   struct {
			ModuleName string   `toml:"module_name"`
			Sources    []string `toml:"sources"`
		} `toml:"target"`
	}
	require.NoError(t, toml.Unmarshal(out.Bytes(), &d), out.String())
	assert.Equal(t, "linux", d.Platform)
	assert.Equal(t, "ccscript.so", d.Artifact)
	assert.Equal(t, "PyInit_ccscript", d.Init)
	assert.Equal(t, "ccscript", d.Target.ModuleName)
	assert.Equal(t, []string{filepath.Join(dir, "src", "ccscript.cpp")}, d.Target.Sources)
}
