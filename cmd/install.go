// extbuild install [path] --dest dir
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tripped/ccscript-legacy/internal/msg"
)

var installDest string

var installCmd = &cobra.Command{
	Use:   "install [target path]",
	Short: "Build the extension module and copy it into a directory",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		b := newBuilder(cmd, args)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		installed, err := b.Install(ctx, installDest)
		if err != nil {
			msg.Fatal("%v", err)
		}
		msg.Info("installed %s", installed)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	addBuildFlags(installCmd)
	installCmd.Flags().StringVarP(&installDest, "dest", "d", ".", "Directory to install the module into")
}
