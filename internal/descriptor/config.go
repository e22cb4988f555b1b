// Package descriptor loads Extension.toml, the project file describing which
// extension module to build and how
package descriptor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"

	"github.com/tripped/ccscript-legacy/internal/sources"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

const (
	Filename = "Extension.toml"

	ProfileCurrent = "current"
	ProfileLegacy  = "legacy"
)

var (
	errNoModule   = errors.New("[extension] module must be set")
	errBadProfile = errors.New(`[toolchain] profile must be "current" or "legacy"`)
)

type Config struct {
	Package   PackageSection   `toml:"package"`
	Extension ExtensionSection `toml:"extension"`
	Toolchain ToolchainSection `toml:"toolchain"`
	Host      HostSection      `toml:"host"`
}

// PackageSection defines the [package] section. Only packaging tools read it.
type PackageSection struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
	URL         string `toml:"url"`
	Build       string `toml:"build,omitempty"`
}

// ExtensionSection defines the [extension] section
type ExtensionSection struct {
	Module    string `toml:"module"`
	Sources   string `toml:"sources"`
	Suffix    string `toml:"suffix"`
	Recursive bool   `toml:"recursive"`
}

// ToolchainSection defines the [toolchain(.*)] section
type ToolchainSection struct {
	Profile      string              `toml:"profile"`
	Standard     string              `toml:"standard"`
	SDK          toolchain.LegacySDK `toml:"sdk"`
	CompileFlags []string            `toml:"extra_compile_flags"`
	LinkFlags    []string            `toml:"extra_link_flags"`
	IncludeDirs  []string            `toml:"include_dirs"`
	LibraryDirs  []string            `toml:"library_dirs"`
	Libraries    []string            `toml:"libraries"`
}

// HostSection defines the [host(.*)] section: where the host runtime's headers and import libraries live
type HostSection struct {
	IncludeDirs []string `toml:"include_dirs"`
	LibraryDirs []string `toml:"library_dirs"`
	Libraries   []string `toml:"libraries"`
}

// Default is the configuration used when a project has no Extension.toml
func Default() *Config {
	return &Config{
		Package: PackageSection{
			Name:        "ccscript",
			Version:     "1.339",
			Description: "ccscript",
			URL:         "http://starmen.net/pkhack/ccscript",
		},
		Extension: ExtensionSection{
			Module:  "ccscript",
			Sources: "src",
			Suffix:  sources.DefaultSuffix,
		},
		Toolchain: ToolchainSection{
			Profile: ProfileCurrent,
		},
	}
}

// Legacy reports whether the legacy Windows SDK profile was requested
func (c *Config) Legacy() bool { return c.Toolchain.Profile == ProfileLegacy }

// Hint returns the toolchain resolver inputs
func (c *Config) Hint() toolchain.Hint {
	return toolchain.Hint{Standard: c.Toolchain.Standard, SDK: c.Toolchain.SDK}
}

// Extra returns the project's additions to the resolved toolchain: its own
// flags followed by the host runtime's directories and libraries
func (c *Config) Extra() toolchain.Config {
	t, h := c.Toolchain, c.Host
	return toolchain.Config{
		CompileFlags: t.CompileFlags,
		LinkFlags:    t.LinkFlags,
		IncludeDirs:  append(append([]string{}, t.IncludeDirs...), h.IncludeDirs...),
		LibraryDirs:  append(append([]string{}, t.LibraryDirs...), h.LibraryDirs...),
		Libraries:    append(append([]string{}, t.Libraries...), h.Libraries...),
	}
}

// SourceOptions returns how the source directory should be scanned
func (c *Config) SourceOptions() sources.Options {
	return sources.Options{Suffix: c.Extension.Suffix, Recursive: c.Extension.Recursive}
}

// Validate checks the fields the build depends on and returns warnings for the rest
func (c *Config) Validate() (warnings []string, err error) {
	if c.Extension.Module == "" {
		return nil, errNoModule
	}
	switch c.Toolchain.Profile {
	case "", ProfileCurrent, ProfileLegacy:
	default:
		return nil, fmt.Errorf("%w, got %q", errBadProfile, c.Toolchain.Profile)
	}
	if c.Extension.Sources == "" {
		c.Extension.Sources = "src"
	}

	if v := c.Package.Version; v != "" && !semver.IsValid("v"+v) {
		warnings = append(warnings, fmt.Sprintf("package version %q is not a semantic version", v))
	}
	if c.Package.Name != "" && c.Package.Name != c.Extension.Module {
		warnings = append(warnings, fmt.Sprintf("package %q builds module %q", c.Package.Name, c.Extension.Module))
	}
	return warnings, nil
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		case reflect.Struct:
			if err := mergeStructs(dstField.Addr().Interface(), srcField.Interface()); err != nil {
				return fmt.Errorf("field %s: %w", srcVal.Type().Field(i).Name, err)
			}
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalSection is a helper to parse sections without conditional logic
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	if data, ok := rawCfg[name]; ok {
		if err := toml.Unmarshal([]byte(mustMarshal(data)), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}
	return nil
}

// unmarshalConditionalSection parses a section, then merges every sub-table
// whose key is an expression that evaluates to true, e.g.
// [toolchain.'target_os == "linux"']
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env Env) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env))
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	for expression, condMap := range conditionalFields {
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		// merge sections if the result is true
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(condMap)), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env Env) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		fullMatchStart := matchIndexes[0]
		fullMatchEnd := matchIndexes[1]
		expressionStart := matchIndexes[2]
		expressionEnd := matchIndexes[3]

		builder.WriteString(s[lastIndex:fullMatchStart])

		expression := strings.TrimSpace(s[expressionStart:expressionEnd])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = fullMatchEnd
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings.
// [package] build is left alone: it is a script, run later by RunBuildScript.
func processExpressions(data any, env Env) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func ParseConfig(rdr io.Reader, env Env) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	var buildScript any
	if pkg, ok := rawConfig["package"].(map[string]any); ok {
		buildScript = pkg["build"]
		delete(pkg, "build")
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	cfg := Default()

	if err := unmarshalSection(rawConfig, "package", &cfg.Package); err != nil {
		return nil, err
	}
	if script, ok := buildScript.(string); ok {
		cfg.Package.Build = script
	}
	if err := unmarshalConditionalSection(rawConfig, "extension", &cfg.Extension, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "toolchain", &cfg.Toolchain, env); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "host", &cfg.Host, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseConfigFromFile parses a config file from a filepath
func ParseConfigFromFile(path string, env Env) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseConfig(bufio.NewReader(f), env)
}

// Load reads Extension.toml from dir. A project without one gets Default().
func Load(dir string, env Env) (*Config, error) {
	cfg, err := ParseConfigFromFile(filepath.Join(dir, Filename), env)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Filename, err)
	}
	return cfg, nil
}

// RunBuildScript evaluates [package] build. The script must return true for the build to continue.
func (cfg *Config) RunBuildScript(env Env) error {
	if cfg.Package.Build == "" {
		return nil
	}

	program, err := expr.Compile(cfg.Package.Build, expr.Env(env))
	if err != nil {
		return fmt.Errorf("failed to compile build script for package %q: %w", cfg.Package.Name, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("failed to run build script for package %q: %w", cfg.Package.Name, err)
	}

	if result, ok := result.(bool); !ok || !result {
		return fmt.Errorf("build script for package %q returned false\n%s", cfg.Package.Name, cfg.Package.Build)
	}

	return nil
}
