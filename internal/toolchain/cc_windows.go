//go:build windows

package toolchain

import (
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/heaths/go-vssetup"
)

// vsInstallPaths returns the installation directories of every Visual Studio instance
func vsInstallPaths() []string {
	instances, err := vssetup.Instances(false)
	if err != nil {
		return nil
	}

	var paths []string
	for _, instance := range instances {
		path, err := instance.InstallationPath()
		if err != nil || path == "" {
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// globLatest returns the lexically greatest match, which for versioned
// toolset directories is the newest one
func globLatest(pattern string) string {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil || len(matches) == 0 {
		return ""
	}
	slices.Sort(matches)
	return matches[len(matches)-1]
}

func findInstalledCompiler() string {
	for _, dir := range vsInstallPaths() {
		if cl := globLatest(filepath.ToSlash(filepath.Join(dir, "VC", "Tools", "MSVC")) + "/*/bin/Hostx64/x64/cl.exe"); cl != "" {
			return filepath.FromSlash(cl)
		}
	}
	return ""
}

func findInstalledMSBuild() string {
	for _, dir := range vsInstallPaths() {
		if msbuild := globLatest(filepath.ToSlash(dir) + "/MSBuild/*/Bin/MSBuild.exe"); msbuild != "" {
			return filepath.FromSlash(msbuild)
		}
	}
	return ""
}
