package toolchain

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// TODO: zig c++
var commonCxxCompilers = []string{"clang++", "g++", "c++", "icpx", "icpc", "cl"}

var errNoMSBuild = errors.New("MSBuild not found (is Visual Studio installed?)")

// FindCompiler attempts to find a C++ compiler on the system: CXX, then
// PATH, then Visual Studio installations. CC is ignored, a C driver links
// without the C++ runtime. Returns "" if nothing was found.
func FindCompiler() string {
	if cxx := os.Getenv("CXX"); cxx != "" {
		return cxx
	}

	for _, compiler := range commonCxxCompilers {
		if path, err := exec.LookPath(compiler); err == nil {
			return path
		}
	}

	return findInstalledCompiler()
}

// FindMSBuild locates msbuild on PATH or inside a Visual Studio installation
func FindMSBuild() (string, error) {
	if path, err := exec.LookPath("msbuild"); err == nil {
		return path, nil
	}
	if path := findInstalledMSBuild(); path != "" {
		return path, nil
	}
	return "", errNoMSBuild
}

// IsMSVC reports whether compiler is the Microsoft cl.exe driver
func IsMSVC(compiler string) bool {
	base := strings.ToLower(compiler[strings.LastIndexAny(compiler, `/\`)+1:])
	return base == "cl" || base == "cl.exe"
}
