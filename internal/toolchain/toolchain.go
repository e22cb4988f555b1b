// Package toolchain resolves the compiler and linker configuration for an
// extension module on a given platform.
package toolchain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Config holds the platform specific additions to a compile. Every field is
// empty unless the platform needs it.
type Config struct {
	Standard     string   `toml:"compiler_standard,omitempty" json:"compiler_standard,omitempty"`
	CompileFlags []string `toml:"extra_compile_flags,omitempty" json:"extra_compile_flags,omitempty"`
	LinkFlags    []string `toml:"extra_link_flags,omitempty" json:"extra_link_flags,omitempty"`
	IncludeDirs  []string `toml:"include_dirs,omitempty" json:"include_dirs,omitempty"`
	LibraryDirs  []string `toml:"library_dirs,omitempty" json:"library_dirs,omitempty"`
	Libraries    []string `toml:"libraries,omitempty" json:"libraries,omitempty"`
}

// IsZero reports whether c adds nothing to the compiler defaults
func (c Config) IsZero() bool {
	return c.Standard == "" &&
		len(c.CompileFlags) == 0 &&
		len(c.LinkFlags) == 0 &&
		len(c.IncludeDirs) == 0 &&
		len(c.LibraryDirs) == 0 &&
		len(c.Libraries) == 0
}

// Clone returns a deep copy of c
func (c Config) Clone() Config {
	return Config{
		Standard:     c.Standard,
		CompileFlags: slices.Clone(c.CompileFlags),
		LinkFlags:    slices.Clone(c.LinkFlags),
		IncludeDirs:  slices.Clone(c.IncludeDirs),
		LibraryDirs:  slices.Clone(c.LibraryDirs),
		Libraries:    slices.Clone(c.Libraries),
	}
}

// Equal reports whether two configs hold the same values. nil and empty lists compare equal.
func (c Config) Equal(o Config) bool {
	return c.Standard == o.Standard &&
		slices.Equal(c.CompileFlags, o.CompileFlags) &&
		slices.Equal(c.LinkFlags, o.LinkFlags) &&
		slices.Equal(c.IncludeDirs, o.IncludeDirs) &&
		slices.Equal(c.LibraryDirs, o.LibraryDirs) &&
		slices.Equal(c.Libraries, o.Libraries)
}

// Merge returns a new config with extra's lists appended to base's. A
// standard set in extra replaces base's, along with any -std= flag spelling it.
func Merge(base, extra Config) Config {
	out := base.Clone()
	if extra.Standard != "" && extra.Standard != out.Standard {
		out.Standard = extra.Standard
		for i, flag := range out.CompileFlags {
			if strings.HasPrefix(flag, "-std=") {
				out.CompileFlags[i] = "-std=" + extra.Standard
			}
		}
	}
	out.CompileFlags = append(out.CompileFlags, extra.CompileFlags...)
	out.LinkFlags = append(out.LinkFlags, extra.LinkFlags...)
	out.IncludeDirs = append(out.IncludeDirs, extra.IncludeDirs...)
	out.LibraryDirs = append(out.LibraryDirs, extra.LibraryDirs...)
	out.Libraries = append(out.Libraries, extra.Libraries...)
	return out
}

const (
	// MinStandard is the oldest C++ standard the sources build with
	MinStandard = "c++14"

	// filesystem support library for libstdc++ before GCC 9
	linuxFilesystemLib = "-lstdc++fs"
)

// LegacySDK describes the prebuilt third-party SDK the legacy Windows
// profile links against. Its values are environment specific.
type LegacySDK struct {
	Root            string   `toml:"root"`
	CompilerVersion string   `toml:"compiler_version"`
	Version         string   `toml:"version"`
	Libraries       []string `toml:"libraries"`
}

// DefaultLegacySDK is the Boost 1.55 / Visual C++ 9.0 install the legacy profile was written for
var DefaultLegacySDK = LegacySDK{
	Root:            `c:\local\boost_1_55_0`,
	CompilerVersion: "9.0",
	Version:         "1_55",
	Libraries:       []string{"boost_python", "boost_filesystem"},
}

// Hint carries optional inputs to Resolve
type Hint struct {
	// Standard requests a C++ standard on platforms that need one spelled out
	Standard string
	// SDK overrides fields of DefaultLegacySDK
	SDK LegacySDK
}

func (h Hint) sdk() LegacySDK {
	sdk := DefaultLegacySDK
	if h.SDK.Root != "" {
		sdk.Root = h.SDK.Root
	}
	if h.SDK.CompilerVersion != "" {
		sdk.CompilerVersion = h.SDK.CompilerVersion
	}
	if h.SDK.Version != "" {
		sdk.Version = h.SDK.Version
	}
	if len(h.SDK.Libraries) > 0 {
		sdk.Libraries = h.SDK.Libraries
	}
	sdk.Libraries = slices.Clone(sdk.Libraries)
	return sdk
}

type profile func(Hint) Config

var profiles = map[Platform]profile{
	PlatformWindowsLegacy: windowsLegacyProfile,
	PlatformWindows:       emptyProfile,
	PlatformLinux:         linuxProfile,
}

// Resolve returns the toolchain configuration for platform. Platforms
// without a profile get the empty config: the compiler's own defaults.
func Resolve(platform Platform, hint Hint) Config {
	p, ok := profiles[platform]
	if !ok {
		return emptyProfile(hint)
	}
	return p(hint)
}

func emptyProfile(Hint) Config { return Config{} }

func linuxProfile(h Hint) Config {
	std := standardAtLeast(h.Standard, MinStandard)
	return Config{
		Standard:     std,
		CompileFlags: []string{"-std=" + std},
		LinkFlags:    []string{linuxFilesystemLib},
	}
}

func windowsLegacyProfile(h Hint) Config {
	sdk := h.sdk()
	vcTag := "vc" + strings.ReplaceAll(sdk.CompilerVersion, ".", "")

	libs := make([]string, 0, len(sdk.Libraries))
	for _, lib := range sdk.Libraries {
		libs = append(libs, fmt.Sprintf("%s-%s-%s", lib, vcTag, sdk.Version))
	}

	return Config{
		IncludeDirs: []string{sdk.Root},
		LibraryDirs: []string{fmt.Sprintf(`%s\lib32-msvc-%s`, sdk.Root, sdk.CompilerVersion)},
		Libraries:   libs,
	}
}

// standardAtLeast returns requested unless it is older than floor or can't be parsed
func standardAtLeast(requested, floor string) string {
	if requested == "" {
		return floor
	}
	req, ok := standardYear(requested)
	if !ok {
		return floor
	}
	floorYear, _ := standardYear(floor)
	if req < floorYear {
		return floor
	}
	return strings.ToLower(requested)
}

// standardYear maps "c++14", "gnu++1z", "C++2a" to a comparable ordinal
func standardYear(std string) (int, bool) {
	std = strings.ToLower(std)
	i := strings.Index(std, "++")
	if i < 0 || i+2 >= len(std) {
		return 0, false
	}
	switch prefix := std[:i]; prefix {
	case "c", "gnu":
	default:
		return 0, false
	}

	ver := std[i+2:]
	// draft names of a standard
	drafts := map[string]int{"0x": 11, "1y": 14, "1z": 17, "2a": 20, "2b": 23, "2c": 26}
	if year, ok := drafts[ver]; ok {
		return year, true
	}
	year, err := strconv.Atoi(ver)
	if err != nil {
		return 0, false
	}
	if year >= 98 {
		year -= 100 // c++98 predates c++03
	}
	return year, true
}
