package gen

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

//
// structures for .vcxproj
//

type VSProject struct {
	XMLName              xml.Name                `xml:"Project"`
	DefaultTargets       string                  `xml:"DefaultTargets,attr"`
	ToolsVersion         string                  `xml:"ToolsVersion,attr"`
	XMLNS                string                  `xml:"xmlns,attr"`
	ItemGroups           []VSItemGroup           `xml:"ItemGroup"`
	PropertyGroups       []VSPropertyGroup       `xml:"PropertyGroup"`
	ItemDefinitionGroups []VSItemDefinitionGroup `xml:"ItemDefinitionGroup"`
	Imports              []VSImport              `xml:"Import"`
}

type VSItemGroup struct {
	Label                 string                   `xml:"Label,attr,omitempty"`
	ProjectConfigurations []VSProjectConfiguration `xml:"ProjectConfiguration,omitempty"`
	ClCompiles            []VSClCompile            `xml:"ClCompile,omitempty"`
}

type VSProjectConfiguration struct {
	Include       string `xml:"Include,attr"`
	Configuration string `xml:"Configuration"`
	Platform      string `xml:"Platform"`
}

type VSClCompile struct {
	Include string `xml:"Include,attr"`
}

type VSPropertyGroup struct {
	Label                        string `xml:"Label,attr,omitempty"`
	Condition                    string `xml:"Condition,attr,omitempty"`
	ProjectGuid                  string `xml:"ProjectGuid,omitempty"`
	Keyword                      string `xml:"Keyword,omitempty"`
	WindowsTargetPlatformVersion string `xml:"WindowsTargetPlatformVersion,omitempty"`
	ProjectName                  string `xml:"ProjectName,omitempty"`
	ConfigurationType            string `xml:"ConfigurationType,omitempty"`
	PlatformToolset              string `xml:"PlatformToolset,omitempty"`
	CharacterSet                 string `xml:"CharacterSet,omitempty"`
	OutDir                       string `xml:"OutDir,omitempty"`
	IntDir                       string `xml:"IntDir,omitempty"`
	TargetName                   string `xml:"TargetName,omitempty"`
	TargetExt                    string `xml:"TargetExt,omitempty"`
	UseDebugLibraries            *bool  `xml:"UseDebugLibraries,omitempty"`
	WholeProgramOptimization     *bool  `xml:"WholeProgramOptimization,omitempty"`
}

type VSImport struct {
	Project string `xml:"Project,attr"`
}

type VSItemDefinitionGroup struct {
	Condition string          `xml:"Condition,attr"`
	ClCompile VSCppCompileDef `xml:"ClCompile"`
	Link      VSLinkDef       `xml:"Link"`
}

type VSCppCompileDef struct {
	WarningLevel                 string `xml:"WarningLevel"`
	AdditionalIncludeDirectories string `xml:"AdditionalIncludeDirectories"`
	AdditionalOptions            string `xml:"AdditionalOptions,omitempty"`
	LanguageStandard             string `xml:"LanguageStandard,omitempty"`
	Optimization                 string `xml:"Optimization"`
	RuntimeLibrary               string `xml:"RuntimeLibrary"`
}

type VSLinkDef struct {
	SubSystem                    string `xml:"SubSystem"`
	AdditionalLibraryDirectories string `xml:"AdditionalLibraryDirectories"`
	AdditionalDependencies       string `xml:"AdditionalDependencies"`
	AdditionalOptions            string `xml:"AdditionalOptions,omitempty"`
}

//
// generator
//

const vsConfiguration = "Release"

type VS2022Gen struct {
	platform string
	unit     *unit
	guid     string
}

// NewVS2022Gen creates a generator for the given MSBuild platform, x64 if empty
func NewVS2022Gen(platform string) *VS2022Gen {
	if platform == "" {
		platform = "x64"
	}
	return &VS2022Gen{platform: platform}
}

func (g *VS2022Gen) SetCompiler(cxx string) {}

func (g *VS2022Gen) BuildFile() string {
	return g.unit.name + ".sln"
}

func (g *VS2022Gen) AddTarget(basedir string, t *target.BuildTarget) {
	u := &unit{
		name:     t.ModuleName,
		artifact: t.ArtifactName("windows"),
		basedir:  basedir,
		tc:       t.Toolchain,
	}
	for _, path := range absSources(basedir, t) {
		u.sources = append(u.sources, sourceFile{src: path})
	}
	g.unit = u
	g.guid = strings.ToUpper(uuid.New().String())
}

// Generate writes the .vcxproj next to the solution and returns the solution itself
func (g *VS2022Gen) Generate(buildDir string) (string, error) {
	projectDir := filepath.Join(buildDir, g.unit.name)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return "", err
	}
	if err := g.generateProjectFile(buildDir, projectDir); err != nil {
		return "", fmt.Errorf("failed to write project file: %w", err)
	}
	return g.generateSolutionFile(), nil
}

func (g *VS2022Gen) cfgPlatform() string {
	return vsConfiguration + "|" + g.platform
}

func (g *VS2022Gen) generateSolutionFile() string {
	solutionGuid := strings.ToUpper(uuid.New().String())
	name := g.unit.name
	var sb strings.Builder

	writeln(&sb, "Microsoft Visual Studio Solution File, Format Version 12.00")
	writeln(&sb, "# Visual Studio Version 17")
	// Windows (Visual C++) https://github.com/VISTALL/visual-studio-project-type-guids
	writeln(&sb,
		`Project("{8BC9CEB8-8B4A-11D0-8D11-00A0C91BC942}") = "`, name, `", "`, name, `\`, name, `.vcxproj", "{`, g.guid, `}"`,
	)
	writeln(&sb, "EndProject")
	writeln(&sb, "Global")
	writeln(&sb, "\tGlobalSection(SolutionConfigurationPlatforms) = preSolution")
	writeln(&sb, "\t\t", g.cfgPlatform(), " = ", g.cfgPlatform())
	writeln(&sb, "\tEndGlobalSection")
	writeln(&sb, "\tGlobalSection(ProjectConfigurationPlatforms) = postSolution")
	writeln(&sb, "\t\t{", g.guid, "}.", g.cfgPlatform(), ".ActiveCfg = ", g.cfgPlatform())
	writeln(&sb, "\t\t{", g.guid, "}.", g.cfgPlatform(), ".Build.0 = ", g.cfgPlatform())
	writeln(&sb, "\tEndGlobalSection")
	writeln(&sb, "\tGlobalSection(ExtensibilityGlobals) = postSolution")
	writeln(&sb, "\t\tSolutionGuid = {", solutionGuid, "}")
	writeln(&sb, "\tEndGlobalSection")
	writeln(&sb, "EndGlobal")

	return sb.String()
}

func (g *VS2022Gen) generateProjectFile(buildDir, projectDir string) error {
	u := g.unit
	clCompiles := make([]VSClCompile, 0, len(u.sources))
	for _, source := range u.sources {
		relPath, err := filepath.Rel(projectDir, source.src)
		if err != nil {
			relPath = source.src
		}
		clCompiles = append(clCompiles, VSClCompile{Include: relPath})
	}

	condition := "'$(Configuration)|$(Platform)'=='" + g.cfgPlatform() + "'"
	trueVal, falseVal := true, false

	project := VSProject{
		DefaultTargets: "Build",
		ToolsVersion:   "17.0",
		XMLNS:          "http://schemas.microsoft.com/developer/msbuild/2003",
		ItemGroups: []VSItemGroup{
			{
				Label: "ProjectConfigurations",
				ProjectConfigurations: []VSProjectConfiguration{
					{Include: g.cfgPlatform(), Configuration: vsConfiguration, Platform: g.platform},
				},
			},
			{ClCompiles: clCompiles},
		},
		PropertyGroups: []VSPropertyGroup{
			{
				Label:                        "Globals",
				ProjectGuid:                  "{" + g.guid + "}",
				Keyword:                      "Win32Proj",
				WindowsTargetPlatformVersion: "10.0",
				ProjectName:                  u.name,
			},
			{
				Condition:                condition,
				Label:                    "Configuration",
				ConfigurationType:        "DynamicLibrary",
				PlatformToolset:          "v143",
				CharacterSet:             "Unicode",
				UseDebugLibraries:        &falseVal,
				WholeProgramOptimization: &trueVal,
			},
			{
				Condition:  condition,
				OutDir:     filepath.Join(buildDir, vsConfiguration) + `\`,
				IntDir:     filepath.Join(projectDir, "int", vsConfiguration) + `\`,
				TargetName: u.name,
				TargetExt:  filepath.Ext(u.artifact),
			},
		},
		ItemDefinitionGroups: []VSItemDefinitionGroup{
			{
				Condition: condition,
				ClCompile: VSCppCompileDef{
					WarningLevel:                 "Level3",
					AdditionalIncludeDirectories: msbuildList(u.tc.IncludeDirs, "AdditionalIncludeDirectories"),
					AdditionalOptions:            strings.Join(u.tc.CompileFlags, " "),
					LanguageStandard:             vsLanguageStandard(u.tc.Standard),
					Optimization:                 "MaxSpeed",
					RuntimeLibrary:               "MultiThreadedDLL",
				},
				Link: VSLinkDef{
					SubSystem:                    "Windows",
					AdditionalLibraryDirectories: msbuildList(u.tc.LibraryDirs, "AdditionalLibraryDirectories"),
					AdditionalDependencies:       msbuildList(vsLibraries(u.tc.Libraries), "AdditionalDependencies"),
					AdditionalOptions:            strings.Join(u.tc.LinkFlags, " "),
				},
			},
		},
		Imports: []VSImport{
			{Project: `$(VCTargetsPath)\Microsoft.Cpp.Default.props`},
			{Project: `$(VCTargetsPath)\Microsoft.Cpp.props`},
			{Project: `$(VCTargetsPath)\Microsoft.Cpp.targets`},
		},
	}

	output, err := xml.MarshalIndent(project, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectDir, u.name+".vcxproj"), []byte(xml.Header+string(output)), 0o644)
}

func (g *VS2022Gen) Artifact(buildDir string) string {
	return filepath.Join(buildDir, vsConfiguration, g.unit.artifact)
}

func (g *VS2022Gen) Invoke(ctx context.Context, buildDir string) error {
	msbuild, err := toolchain.FindMSBuild()
	if err != nil {
		return &ToolchainMismatchError{What: "MSBuild"}
	}

	cmd := exec.CommandContext(ctx, msbuild, g.BuildFile(),
		"/p:Configuration="+vsConfiguration,
		"/p:Platform="+g.platform,
	)
	cmd.Dir = buildDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}

// msbuildList joins items and inherits the parent item metadata
func msbuildList(items []string, inherit string) string {
	return strings.Join(append(items[:len(items):len(items)], "%("+inherit+")"), ";")
}

func vsLibraries(libs []string) []string {
	out := make([]string, len(libs))
	for i, lib := range libs {
		out[i] = libName(lib)
	}
	return out
}

// vsLanguageStandard maps "c++17" to "stdcpp17"
func vsLanguageStandard(std string) string {
	if std == "" {
		return ""
	}
	_, ver, ok := strings.Cut(std, "++")
	if !ok {
		return ""
	}
	return "stdcpp" + ver
}
