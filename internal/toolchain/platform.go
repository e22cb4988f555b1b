package toolchain

import (
	"strings"
)

// Platform identifies a toolchain profile. The set is closed: anything the
// resolver doesn't recognize collapses into PlatformOther or PlatformUnknown.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformWindowsLegacy
	PlatformWindows
	PlatformLinux
	PlatformOther
)

func (p Platform) String() string {
	switch p {
	case PlatformWindowsLegacy:
		return "windows-legacy"
	case PlatformWindows:
		return "windows"
	case PlatformLinux:
		return "linux"
	case PlatformOther:
		return "other"
	default:
		return "unknown"
	}
}

// osAliases maps Go and Python platform names onto GOOS values
var osAliases = map[string]string{
	"win32":   "windows",
	"win64":   "windows",
	"windows": "windows",
	"linux":   "linux",
	"linux2":  "linux",
	"darwin":  "darwin",
	"macos":   "darwin",
}

// NormalizeOS lowercases s and maps known aliases ("win32", "linux2") to their GOOS name
func NormalizeOS(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if goos, ok := osAliases[s]; ok {
		return goos
	}
	return s
}

// ParsePlatform identifies the platform tag for an operating system name.
// Windows resolves to the legacy profile only when legacy is set.
func ParsePlatform(s string, legacy bool) Platform {
	switch NormalizeOS(s) {
	case "":
		return PlatformUnknown
	case "windows":
		if legacy {
			return PlatformWindowsLegacy
		}
		return PlatformWindows
	case "linux":
		return PlatformLinux
	default:
		return PlatformOther
	}
}
