package command

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/frantjc/rip/internal/riphttp"
	"github.com/frantjc/rip/internal/rippubsub"
	xslice "github.com/frantjc/x/slice"
	"github.com/spf13/cobra"
	"gocloud.dev/blob"
	"gocloud.dev/pubsub"
)

func newServe() *cobra.Command {
	var (
		address      string
		path         string
		pubsuburlstr string
		bloburlstr   string
		parallelism  int
		cmd          = &cobra.Command{
			Use:   "serve",
			Short: "Serve the rip API and synchronize queued runs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var (
					ctx = cmd.Context()
					log = logFrom(cmd)
				)

				log.Info("opening bucket " + bloburlstr)
				bucket, err := blob.OpenBucket(ctx, bloburlstr)
				if err != nil {
					return err
				}
				defer bucket.Close()

				log.Info("opening topic " + pubsuburlstr)
				topic, err := pubsub.OpenTopic(ctx, pubsuburlstr)
				if err != nil {
					return err
				}
				defer topic.Shutdown(context.WithoutCancel(ctx))

				log.Info("opening subscription " + pubsuburlstr)
				subscription, err := pubsub.OpenSubscription(ctx, pubsuburlstr)
				if err != nil {
					return err
				}
				defer subscription.Shutdown(context.WithoutCancel(ctx))

				var (
					srv = &http.Server{
						ReadHeaderTimeout: time.Second * 5,
						BaseContext: func(_ net.Listener) context.Context {
							return ctx
						},
						Handler: riphttp.NewHandler(bucket, topic, &riphttp.Opts{Path: path}),
					}
					errC = make(chan error, 2)
				)
				defer srv.Close()

				lis, err := net.Listen("tcp", address)
				if err != nil {
					return err
				}
				defer lis.Close()

				go func() {
					log.Info("listening on " + address)
					errC <- srv.Serve(lis)
				}()

				go func() {
					log.Info("receiving messages on " + pubsuburlstr)
					errC <- rippubsub.Receive(ctx, bucket, subscription, &rippubsub.ReceiveOpts{Parallelism: parallelism})
				}()

				select {
				case <-ctx.Done():
					return ctx.Err()
				case err := <-errC:
					return err
				}
			},
		}
	)

	cmd.Flags().StringVar(&address, "addr", ":8080", "listen address for rip")
	cmd.Flags().StringVar(&path, "path", "/", "path to serve the API under")
	cmd.Flags().StringVar(&pubsuburlstr, "pubsub", "mem://rip", "pubsub URL for rip")
	cmd.Flags().StringVar(&bloburlstr, "blob", xslice.Coalesce(os.Getenv("RIP_BLOB_URL"), "mem://"), "blob URL for rip")
	cmd.Flags().IntVar(&parallelism, "parallelism", 1, "number of queued runs to synchronize at once")

	return cmd
}
