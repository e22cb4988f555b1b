// Package target assembles the build descriptor handed to the extension build tool.
package target

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tripped/ccscript-legacy/internal/sources"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

// LanguageCxx is the only language extension modules are built as
const LanguageCxx = "c++"

var ErrInvalidModuleName = errors.New("module name must be a non-empty C identifier")

// BuildTarget is the complete, platform resolved description of one
// extension module build
type BuildTarget struct {
	// ModuleName is embedded in the artifact's load name and init symbol.
	ModuleName string               `toml:"module_name" json:"module_name"`
	Language   string               `toml:"language" json:"language"`
	Sources    []sources.SourceFile `toml:"sources" json:"sources"`
	Toolchain  toolchain.Config     `toml:"toolchain" json:"toolchain"`
}

// Tool is the external build tool that turns a BuildTarget into a loadable module
type Tool interface {
	BuildExtension(ctx context.Context, t *BuildTarget) error
}

// Assemble validates name and builds a target from copies of srcs and tc.
// Duplicate sources are dropped, the first occurrence keeps its position.
func Assemble(name string, srcs []sources.SourceFile, tc toolchain.Config) (*BuildTarget, error) {
	if !isIdentifier(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModuleName, name)
	}

	seen := make(map[sources.SourceFile]struct{}, len(srcs))
	unique := make([]sources.SourceFile, 0, len(srcs))
	for _, src := range srcs {
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		unique = append(unique, src)
	}

	return &BuildTarget{
		ModuleName: name,
		Language:   LanguageCxx,
		Sources:    unique,
		Toolchain:  tc.Clone(),
	}, nil
}

// Submit hands t to tool. Errors come back exactly as the tool reported them.
func Submit(ctx context.Context, tool Tool, t *BuildTarget) error {
	return tool.BuildExtension(ctx, t)
}

// ArtifactName is the file name the host runtime loads the module from
func (t *BuildTarget) ArtifactName(goos string) string {
	if toolchain.NormalizeOS(goos) == "windows" {
		return t.ModuleName + ".pyd"
	}
	return t.ModuleName + ".so"
}

// InitSymbol is the entry point the host runtime resolves when loading the module
func (t *BuildTarget) InitSymbol() string {
	return "PyInit_" + t.ModuleName
}

// SourcePaths returns the sources as plain strings
func (t *BuildTarget) SourcePaths() []string {
	paths := make([]string, len(t.Sources))
	for i, src := range t.Sources {
		paths[i] = src.String()
	}
	return paths
}

// Clone returns a deep copy of t
func (t *BuildTarget) Clone() *BuildTarget {
	return &BuildTarget{
		ModuleName: t.ModuleName,
		Language:   t.Language,
		Sources:    slices.Clone(t.Sources),
		Toolchain:  t.Toolchain.Clone(),
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
