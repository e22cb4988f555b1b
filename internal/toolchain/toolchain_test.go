package toolchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in     string
		legacy bool
		want   Platform
	}{
		{"linux", false, PlatformLinux},
		{"linux2", false, PlatformLinux},
		{"Linux", true, PlatformLinux},
		{"windows", false, PlatformWindows},
		{"win32", false, PlatformWindows},
		{"win32", true, PlatformWindowsLegacy},
		{"darwin", false, PlatformOther},
		{"freebsd", true, PlatformOther},
		{"plan9", false, PlatformOther},
		{"", false, PlatformUnknown},
		{"  ", true, PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePlatform(tt.in, tt.legacy))
		})
	}
}

func TestResolveLinux(t *testing.T) {
	cfg := Resolve(PlatformLinux, Hint{})

	assert.Equal(t, "c++14", cfg.Standard)
	assert.Contains(t, cfg.CompileFlags, "-std=c++14")
	assert.Contains(t, cfg.LinkFlags, "-lstdc++fs")
	assert.Empty(t, cfg.IncludeDirs)
	assert.Empty(t, cfg.LibraryDirs)
	assert.Empty(t, cfg.Libraries)
}

func TestResolveLinuxStandardHint(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"", "c++14"},
		{"c++17", "c++17"},
		{"C++20", "c++20"},
		{"gnu++1z", "gnu++1z"},
		{"c++11", "c++14"},
		{"c++98", "c++14"},
		{"c++0x", "c++14"},
		{"fortran", "c++14"},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			cfg := Resolve(PlatformLinux, Hint{Standard: tt.hint})
			assert.Equal(t, tt.want, cfg.Standard)
			assert.Equal(t, []string{"-std=" + tt.want}, cfg.CompileFlags)
		})
	}
}

func TestResolveEmptyProfiles(t *testing.T) {
	for _, p := range []Platform{PlatformWindows, PlatformOther, PlatformUnknown, Platform(42)} {
		t.Run(p.String(), func(t *testing.T) {
			cfg := Resolve(p, Hint{Standard: "c++17"})
			assert.True(t, cfg.IsZero(), "expected empty config, got %+v", cfg)
		})
	}
}

func TestResolveWindowsLegacy(t *testing.T) {
	cfg := Resolve(PlatformWindowsLegacy, Hint{})

	assert.Empty(t, cfg.Standard)
	assert.Empty(t, cfg.CompileFlags)
	assert.Empty(t, cfg.LinkFlags)
	assert.Equal(t, []string{`c:\local\boost_1_55_0`}, cfg.IncludeDirs)
	assert.Equal(t, []string{`c:\local\boost_1_55_0\lib32-msvc-9.0`}, cfg.LibraryDirs)
	assert.Equal(t, []string{"boost_python-vc90-1_55", "boost_filesystem-vc90-1_55"}, cfg.Libraries)
}

func TestResolveWindowsLegacySDKOverride(t *testing.T) {
	cfg := Resolve(PlatformWindowsLegacy, Hint{SDK: LegacySDK{
		Root:            `d:\sdk\boost_1_60_0`,
		CompilerVersion: "14.0",
		Version:         "1_60",
	}})

	assert.Equal(t, []string{`d:\sdk\boost_1_60_0`}, cfg.IncludeDirs)
	assert.Equal(t, []string{`d:\sdk\boost_1_60_0\lib32-msvc-14.0`}, cfg.LibraryDirs)
	assert.Equal(t, []string{"boost_python-vc140-1_60", "boost_filesystem-vc140-1_60"}, cfg.Libraries)
	assert.Equal(t, []string{"boost_python", "boost_filesystem"}, DefaultLegacySDK.Libraries)
}

func TestResolveIsPure(t *testing.T) {
	for _, p := range []Platform{PlatformWindowsLegacy, PlatformWindows, PlatformLinux, PlatformOther, PlatformUnknown} {
		first := Resolve(p, Hint{})
		second := Resolve(p, Hint{})
		require.Equal(t, first, second, p.String())

		// results don't share backing arrays
		if len(first.Libraries) > 0 {
			first.Libraries[0] = "mutated"
			assert.NotEqual(t, "mutated", Resolve(p, Hint{}).Libraries[0])
		}
		if len(first.CompileFlags) > 0 {
			first.CompileFlags[0] = "mutated"
			assert.NotEqual(t, "mutated", Resolve(p, Hint{}).CompileFlags[0])
		}
	}
}

func TestMerge(t *testing.T) {
	base := Resolve(PlatformLinux, Hint{})
	extra := Config{
		CompileFlags: []string{"-O2"},
		IncludeDirs:  []string{"/usr/include/python3.12"},
		Libraries:    []string{"python3.12"},
	}

	merged := Merge(base, extra)
	assert.Equal(t, "c++14", merged.Standard)
	assert.Equal(t, []string{"-std=c++14", "-O2"}, merged.CompileFlags)
	assert.Equal(t, []string{"-lstdc++fs"}, merged.LinkFlags)
	assert.Equal(t, []string{"/usr/include/python3.12"}, merged.IncludeDirs)
	assert.Equal(t, []string{"python3.12"}, merged.Libraries)

	// base is untouched
	assert.Equal(t, []string{"-std=c++14"}, base.CompileFlags)
}

func TestMergeStandardRewritesFlag(t *testing.T) {
	base := Resolve(PlatformLinux, Hint{})
	merged := Merge(base, Config{Standard: "c++17", CompileFlags: []string{"-O2"}})
	assert.Equal(t, "c++17", merged.Standard)
	assert.Equal(t, []string{"-std=c++17", "-O2"}, merged.CompileFlags)
	assert.Equal(t, []string{"-std=c++14"}, base.CompileFlags)

	// no flag to rewrite where the platform doesn't spell one out
	merged = Merge(Resolve(PlatformWindows, Hint{}), Config{Standard: "c++17"})
	assert.Equal(t, "c++17", merged.Standard)
	assert.Empty(t, merged.CompileFlags)
}

func TestConfigEqual(t *testing.T) {
	assert.True(t, Config{}.Equal(Config{Libraries: []string{}}))
	assert.False(t, Config{Standard: "c++14"}.Equal(Config{}))
	cfg := Resolve(PlatformWindowsLegacy, Hint{})
	assert.True(t, cfg.Equal(cfg.Clone()))
}

func TestIsMSVC(t *testing.T) {
	assert.True(t, IsMSVC("cl"))
	assert.True(t, IsMSVC(`C:\VS\VC\Tools\MSVC\14.38\bin\Hostx64\x64\CL.EXE`))
	assert.False(t, IsMSVC("/usr/bin/clang++"))
	assert.False(t, IsMSVC("/opt/cl/g++"))
}

func TestFindCompilerPrefersEnvironment(t *testing.T) {
	t.Setenv("CXX", "/opt/toolchain/bin/g++-13")
	t.Setenv("CC", "/opt/toolchain/bin/gcc-13")
	assert.Equal(t, "/opt/toolchain/bin/g++-13", FindCompiler())

}

func TestFindCompilerIgnoresCC(t *testing.T) {
	t.Setenv("CXX", "")
	t.Setenv("CC", "/opt/toolchain/bin/gcc-13")
	assert.NotEqual(t, "/opt/toolchain/bin/gcc-13", FindCompiler())
}
