// extbuild [path], extbuild build [path]
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tripped/ccscript-legacy/internal/builder"
	"github.com/tripped/ccscript-legacy/internal/builder/gen"
	"github.com/tripped/ccscript-legacy/internal/msg"
)

var flagGenerator EnumValue = NewEnumValue(gen.GeneratorNative, gen.Generators)

func targetDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// buildOptions reads the build flags, which EXTBUILD_* environment variables can also set
func buildOptions(cmd *cobra.Command) builder.Options {
	v := viper.New()
	v.SetEnvPrefix("extbuild")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindPFlags(cmd.Flags())

	msg.Verbose = v.GetBool("verbose")
	return builder.Options{
		Platform:  v.GetString("platform"),
		Standard:  v.GetString("std"),
		Legacy:    v.GetBool("legacy"),
		Generator: v.GetString("gen"),
		Compiler:  v.GetString("cxx"),
		BuildDir:  v.GetString("build-dir"),
	}
}

func newBuilder(cmd *cobra.Command, args []string) *builder.Builder {
	opts := buildOptions(cmd)
	if err := flagGenerator.Set(opts.Generator); err != nil {
		msg.Fatal("invalid generator %q: %v", opts.Generator, err)
	}
	b, err := builder.NewBuilderInDirectory(targetDir(args), opts)
	if err != nil {
		msg.Fatal("%v", err)
	}
	return b
}

func doBuild(cmd *cobra.Command, args []string) {
	b := newBuilder(cmd, args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	artifact, err := b.Build(ctx)
	if err != nil {
		msg.Fatal("%v", err)
	}
	msg.Info("built %s", artifact)
}

var rootCmd = &cobra.Command{
	Use:   "extbuild [target path]",
	Short: "Build the ccscript extension module",
	Long: `Build a native extension module from the C++ sources of a project.
Reads Extension.toml from the target path if present.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doBuild,
}

var buildCmd = &cobra.Command{
	Use:   "build [target path]",
	Short: "Build the extension module",
	Long:  `Build the extension module. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	addBuildFlags(rootCmd)

	// extbuild build subcommand
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().String("platform", "", `Target platform identifier such as "linux" or "win32" (default: host)`)
	cmd.Flags().String("std", "", "Minimum C++ standard, e.g. c++17")
	cmd.Flags().Bool("legacy", false, "Use the legacy Windows SDK profile (boost 1.55, VC 9.0)")
	cmd.Flags().String("cxx", "", "C++ compiler (default: $CXX, then search PATH)")
	cmd.Flags().String("build-dir", "build", "Build directory, relative to the target path")
	cmd.Flags().BoolP("verbose", "v", false, "Print debug output")
	cmd.Flags().VarP(&flagGenerator, "gen", "g", "Generator to build with, one of "+flagGenerator.HelpString())
	cmd.RegisterFlagCompletionFunc("gen", flagGenerator.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
