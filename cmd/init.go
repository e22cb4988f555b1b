// extbuild init [module], extbuild new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tripped/ccscript-legacy/internal/descriptor"
	"github.com/tripped/ccscript-legacy/internal/msg"
	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/toolchain"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "extbuild"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

func descriptorTemplate(module string) string {
	return `[package]
name = "` + module + `"
version = "0.1.0"
description = "` + module + ` extension module"

[extension]
module = "` + module + `"
sources = "src"

[toolchain]
# standard = "c++17"

[toolchain.'target_os == "windows"']
# profile = "legacy"

[host]
# include_dirs = ["{{ environ.PYTHON_INCLUDE }}"]
`
}

func moduleTemplate(module string) string {
	bt := target.BuildTarget{ModuleName: module}
	return `#include <Python.h>

static PyModuleDef ` + module + `_module = {
    PyModuleDef_HEAD_INIT, "` + module + `", nullptr, -1, nullptr,
};

PyMODINIT_FUNC ` + bt.InitSymbol() + `(void) {
    return PyModule_Create(&` + module + `_module);
}
`
}

// initIn initializes an extension project in an existing directory
func initIn(dir, module string) {
	if _, err := target.Assemble(module, nil, toolchain.Config{}); err != nil {
		msg.Fatal("%q: %v", module, err)
	}

	writefile(descriptorTemplate(module), dir, descriptor.Filename)
	mkdir(dir, "src")
	writefile(moduleTemplate(module), dir, "src", module+".cpp")

	// .gitignore
	writefile(`build/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to build, or %s to see what would be built.\n",
		color.HiCyanString(programName+" "+dir), color.HiCyanString(programName+" describe "+dir))
}

var initCmd = &cobra.Command{
	Use:   "init [module]",
	Short: "Create a new extension project in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0])
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new extension project in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]))
	},
}

func init() {
	// extbuild init subcommand
	rootCmd.AddCommand(initCmd)

	// extbuild new subcommand
	rootCmd.AddCommand(newCmd)
}
