// extbuild describe [path]
package cmd

import (
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/tripped/ccscript-legacy/internal/builder"
	"github.com/tripped/ccscript-legacy/internal/descriptor"
	"github.com/tripped/ccscript-legacy/internal/msg"
	"github.com/tripped/ccscript-legacy/internal/target"
	"github.com/tripped/ccscript-legacy/internal/vcs"
)

// description is what describe prints: the build target as it would be
// handed to the build tool, plus the metadata packaging tools read
type description struct {
	Package  descriptor.PackageSection `toml:"package"`
	Platform string                    `toml:"platform"`
	Artifact string                    `toml:"artifact"`
	Init     string                    `toml:"init_symbol"`
	Revision *vcs.Revision             `toml:"revision,omitempty"`
	Target   *target.BuildTarget       `toml:"target"`
}

func describe(w io.Writer, b *builder.Builder) error {
	bt, err := b.Describe()
	if err != nil {
		return err
	}

	pkg := b.Config().Package
	pkg.Build = ""
	d := description{
		Package:  pkg,
		Platform: b.Platform().String(),
		Artifact: bt.ArtifactName(b.TargetOS()),
		Init:     bt.InitSymbol(),
		Target:   bt,
	}

	rev, ok, err := vcs.Describe(b.BaseDir())
	if err != nil {
		msg.Warn("could not read source revision: %v", err)
	} else if ok {
		d.Revision = &rev
	}

	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(d)
}

var describeCmd = &cobra.Command{
	Use:   "describe [target path]",
	Short: "Print the resolved build target without building it",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := describe(os.Stdout, newBuilder(cmd, args)); err != nil {
			msg.Fatal("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	addBuildFlags(describeCmd)
}
