package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/frantjc/rip"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Batch is the file read by `rip sync --batch`.
// Relative paths are relative to the file.
type Batch struct {
	Parallelism int         `yaml:"parallelism,omitempty"`
	Pairs       []BatchPair `yaml:"pairs"`
}

type BatchPair struct {
	Reference string `yaml:"reference"`
	Derived   string `yaml:"derived"`
	Output    string `yaml:"output,omitempty"`
}

func newSync() *cobra.Command {
	var (
		output       string
		reportFormat string
		batch        string
		tools        = &toolFlags{}
		cmd          = &cobra.Command{
			Use:   "sync REFERENCE DERIVED",
			Short: "Copy CRCs, sizes and methods from REFERENCE into a copy of DERIVED",
			Args: func(cmd *cobra.Command, args []string) error {
				if batch != "" {
					return cobra.NoArgs(cmd, args)
				}

				return cobra.ExactArgs(2)(cmd, args)
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				if batch != "" {
					return syncBatch(ctx, cmd.OutOrStdout(), reportFormat, batch)
				}

				reference, cleanup, err := mergeIfSplit(ctx, tools, args[0])
				if err != nil {
					return err
				}
				defer cleanup()

				run := rip.NewRun(reference, args[1])
				if output != "" {
					run.Output = output
				}

				if urlstr := cmd.Flag("url").Value.String(); urlstr != "" {
					if err := syncRemote(ctx, urlstr, run); err != nil {
						return err
					}

					return encode(cmd.OutOrStdout(), reportFormat, run)
				}

				err = rip.SynchronizeRun(ctx, &rip.FSStore{}, run)
				if encErr := encode(cmd.OutOrStdout(), reportFormat, run); encErr != nil {
					return errors.Join(err, encErr)
				}

				return err
			},
		}
	)

	cmd.Flags().StringVarP(&output, "output", "o", "", "path to write the synchronized archive to (default DERIVED_rip.apk)")
	cmd.Flags().StringVar(&reportFormat, "report-format", formatYAML, "format of the printed run, yaml or json")
	cmd.Flags().StringVar(&batch, "batch", "", "YAML file listing pairs to synchronize")
	tools.addFlags(cmd)

	return cmd
}

// syncRemote uploads run's archives to the rip server at urlstr,
// synchronizes them there and downloads the result to run.Output.
func syncRemote(ctx context.Context, urlstr string, run *rip.Run) error {
	cli, err := newClient(urlstr)
	if err != nil {
		return err
	}

	reference, err := os.Open(run.Reference)
	if err != nil {
		return err
	}
	defer reference.Close()

	derived, err := os.Open(run.Derived)
	if err != nil {
		return err
	}
	defer derived.Close()

	remote, err := cli.Synchronize(ctx, reference, derived)
	if err != nil {
		return err
	}

	rc, err := cli.GetOutput(ctx, remote.ID)
	if err != nil {
		return err
	}
	defer rc.Close()

	output, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	if err = (&rip.FSStore{}).WriteAll(ctx, run.Output, output); err != nil {
		return err
	}

	rip.LoggerFrom(ctx).Info("wrote "+run.Output, "run", remote.ID)

	// Keep the local names, everything else is the server's.
	remote.Reference, remote.Derived, remote.Output = run.Reference, run.Derived, run.Output
	*run = *remote

	return nil
}

func syncBatch(ctx context.Context, w io.Writer, format, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	b := &Batch{}
	if err := yaml.NewDecoder(f).Decode(b); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	var (
		store = &rip.FSStore{Dir: filepath.Dir(name)}
		runs  = make([]*rip.Run, len(b.Pairs))
		errs  = make([]error, len(b.Pairs))
		eg    = new(errgroup.Group)
	)

	eg.SetLimit(max(b.Parallelism, 1))

	for i, pair := range b.Pairs {
		runs[i] = rip.NewRun(pair.Reference, pair.Derived)
		if pair.Output != "" {
			runs[i].Output = pair.Output
		}

		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}

			if err := rip.SynchronizeRun(ctx, store, runs[i]); err != nil {
				errs[i] = fmt.Errorf("%s: %w", pair.Derived, err)
			}

			return nil
		})
	}

	_ = eg.Wait()

	return errors.Join(append(errs, encode(w, format, runs))...)
}
