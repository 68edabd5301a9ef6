package command

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frantjc/rip"
	"github.com/spf13/cobra"
)

func newBuild() *cobra.Command {
	var (
		reference    string
		output       string
		reportFormat string
		tools        = &toolFlags{}
		cmd          = &cobra.Command{
			Use:   "build DIR",
			Short: "Build DIR into an APK and synchronize it against the APK it was decoded from",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					ctx = cmd.Context()
					log = logFrom(cmd)
				)

				if reference == "" {
					return fmt.Errorf("--reference is required")
				}

				builder, err := tools.toolchain()
				if err != nil {
					return err
				}

				ref, cleanup, err := mergeIfSplit(ctx, tools, reference)
				if err != nil {
					return err
				}
				defer cleanup()

				tmp, err := os.MkdirTemp("", "rip-build-*")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmp)

				derived := filepath.Join(tmp, filepath.Base(filepath.Clean(args[0]))+rip.ExtAPK)

				log.Info("building " + args[0])
				if err := builder.BuildAPK(ctx, args[0], derived); err != nil {
					return err
				}

				run := rip.NewRun(ref, derived)
				if output != "" {
					run.Output = output
				} else {
					run.Output = rip.OutputName(reference)
				}

				err = rip.SynchronizeRun(ctx, &rip.FSStore{}, run)
				if encErr := encode(cmd.OutOrStdout(), reportFormat, run); encErr != nil {
					return errors.Join(err, encErr)
				}

				return err
			},
		}
	)

	cmd.Flags().StringVar(&reference, "reference", "", "APK that DIR was decoded from")
	cmd.Flags().StringVarP(&output, "output", "o", "", "path to write the synchronized APK to (default REFERENCE_rip.apk)")
	cmd.Flags().StringVar(&reportFormat, "report-format", formatYAML, "format of the printed run, yaml or json")
	tools.addFlags(cmd)

	return cmd
}
