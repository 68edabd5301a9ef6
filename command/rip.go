package command

import (
	"github.com/frantjc/rip"
	"github.com/spf13/cobra"
)

// NewRip returns the root command for
// rip which acts as its CLI entrypoint.
func NewRip() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rip",
		Short: "Keep a rebuilt APK's ZIP metadata in step with the APK it came from",
	}

	cmd.PersistentFlags().String("url", "", "base URL of a rip server to run against")

	cmd.AddCommand(
		newSync(),
		newDecode(),
		newBuild(),
		newServe(),
	)

	return SetCommon(cmd, rip.SemVer())
}
