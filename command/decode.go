package command

import (
	"path/filepath"
	"strings"

	"github.com/frantjc/rip/android"
	"github.com/frantjc/rip/keytool"
	"github.com/spf13/cobra"
)

func newDecode() *cobra.Command {
	var (
		output    string
		format    string
		assetLink bool
		tools     = &toolFlags{}
		cmd       = &cobra.Command{
			Use:   "decode APK",
			Short: "Decode APK, merging it first if it is split, and print what it is",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					ctx = cmd.Context()
					log = logFrom(cmd)
				)

				decoder, err := tools.toolchain()
				if err != nil {
					return err
				}

				if output == "" {
					output = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
				}

				apk, cleanup, err := mergeIfSplit(ctx, tools, args[0])
				if err != nil {
					return err
				}
				defer cleanup()

				ad := android.NewAPKDecoder(apk,
					android.WithDecoder(decoder),
					android.WithKeytool(keytool.Command(tools.keytool)),
					android.WithDir(output),
				)
				defer ad.Close()

				info, err := ad.Info(ctx)
				if err != nil {
					return err
				}
				info.Dir = output

				fingerprints, err := ad.SHA256CertFingerprints(ctx)
				if assetLink {
					if err != nil {
						return err
					}

					return encode(cmd.OutOrStdout(), formatJSON, []android.AssetLink{
						android.NewAssetLink(info.Package, fingerprints...),
					})
				} else if err != nil {
					log.V(1).Info("reading signer failed", "err", err.Error())
				}
				info.SHA256CertFingerprints = fingerprints

				return encode(cmd.OutOrStdout(), format, info)
			},
		}
	)

	cmd.Flags().StringVarP(&output, "output", "o", "", "directory to decode into (default APK without its extension)")
	cmd.Flags().StringVar(&format, "format", formatYAML, "format of the printed info, yaml or json")
	cmd.Flags().BoolVar(&assetLink, "asset-link", false, "print an assetlinks.json for APK's package and signer instead")
	tools.addFlags(cmd)

	return cmd
}
