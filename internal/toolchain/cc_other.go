//go:build !windows

package toolchain

func findInstalledCompiler() string { return "" }

func findInstalledMSBuild() string { return "" }
