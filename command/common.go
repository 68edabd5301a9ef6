package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/frantjc/rip"
	"github.com/frantjc/rip/apkeditor"
	"github.com/frantjc/rip/apktool"
	xslice "github.com/frantjc/x/slice"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SetCommon adds the flags and behavior that every rip
// command shares to cmd.
func SetCommon(cmd *cobra.Command, version string) *cobra.Command {
	var verbosity int
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "V", fmt.Sprintf("Verbosity for %s.", cmd.Name()))
	cmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if verbose := os.Getenv("RIP_VERBOSE"); verbose != "" && xslice.Some([]string{"1", "y", "yes", "true", "t"}, func(s string, _ int) bool {
			return strings.EqualFold(s, verbose)
		}) {
			verbosity = max(verbosity, 2)
		}

		cmd.SetContext(
			rip.WithLogger(cmd.Context(), rip.NewLogger(cmd.ErrOrStderr(), verbosity)),
		)
	}

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.Version = version
	cmd.SetVersionTemplate("{{ .Name }}{{ .Version }} " + runtime.Version() + "\n")

	return cmd
}

const (
	toolAPKTool   = "apktool"
	toolAPKEditor = "apkeditor"
)

// toolFlags configure the executables that decode, build
// and merge APKs.
type toolFlags struct {
	tool      string
	apktool   string
	apkeditor string
	java      string
	keytool   string
}

func (f *toolFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tool, "tool", toolAPKTool, "tool to decode and build with, apktool or apkeditor")
	cmd.Flags().StringVar(&f.apktool, "apktool", "apktool", "path to apktool")
	cmd.Flags().StringVar(&f.apkeditor, "apkeditor", os.Getenv("RIP_APKEDITOR_JAR"), "path to APKEditor.jar")
	cmd.Flags().StringVar(&f.java, "java", "java", "path to java")
	cmd.Flags().StringVar(&f.keytool, "keytool", "keytool", "path to keytool")
}

func (f *toolFlags) toolchain() (rip.Toolchain, error) {
	switch f.tool {
	case toolAPKTool:
		return apktool.Command(f.apktool), nil
	case toolAPKEditor:
		if f.apkeditor == "" {
			return nil, fmt.Errorf("--apkeditor is required with --tool %s", toolAPKEditor)
		}

		return &apkeditor.Command{Java: f.java, Jar: f.apkeditor}, nil
	}

	return nil, fmt.Errorf("unknown tool %s", f.tool)
}

func (f *toolFlags) merger() (rip.Merger, error) {
	if f.apkeditor == "" {
		return nil, fmt.Errorf("--apkeditor is required to merge split APKs")
	}

	return &apkeditor.Command{Java: f.java, Jar: f.apkeditor}, nil
}

// mergeIfSplit merges name into a single APK in a temporary directory
// if it is a split APK bundle. The returned func cleans up after it.
func mergeIfSplit(ctx context.Context, f *toolFlags, name string) (string, func(), error) {
	if !rip.IsSplit(name) {
		return name, func() {}, nil
	}

	merger, err := f.merger()
	if err != nil {
		return "", nil, err
	}

	dir, err := os.MkdirTemp("", "rip-merge-*")
	if err != nil {
		return "", nil, err
	}

	var (
		cleanup = func() { _ = os.RemoveAll(dir) }
		apk     = filepath.Join(dir, strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))+rip.ExtAPK)
	)

	rip.LoggerFrom(ctx).Info("merging " + name)

	if err := merger.MergeAPK(ctx, name, apk); err != nil {
		cleanup()
		return "", nil, err
	}

	return apk, cleanup, nil
}

func newClient(urlstr string) (*rip.Client, error) {
	cli := new(rip.Client)

	if urlstr != "" {
		var err error
		if cli.Base, err = url.Parse(urlstr); err != nil {
			return nil, err
		}
	}

	return cli, nil
}

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	return fmt.Errorf("unknown format %s", format)
}

func logFrom(cmd *cobra.Command) logr.Logger {
	return rip.LoggerFrom(cmd.Context())
}
