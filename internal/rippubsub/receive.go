package rippubsub

import (
	"context"
	"fmt"

	"github.com/frantjc/rip"
	"github.com/frantjc/rip/internal/ripblob"
	"github.com/frantjc/rip/internal/ripregexp"
	"gocloud.dev/blob"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"
)

// Send enqueues the Run with the given ID. The Run must already be
// recorded in the bucket that the receiving end reads from.
func Send(ctx context.Context, topic *pubsub.Topic, id string) error {
	return topic.Send(ctx, &pubsub.Message{Body: []byte(id)})
}

// Handle synchronizes the pending Run named by msg and records the outcome.
// A Run that fails is still recorded; only failing to read or record it is
// returned as an error.
func Handle(ctx context.Context, bucket *blob.Bucket, msg *pubsub.Message) error {
	id := string(msg.Body)
	if !ripregexp.IsUUID(id) {
		return fmt.Errorf("invalid run ID %q", id)
	}

	run, err := ripblob.ReadRun(ctx, bucket, id)
	if err != nil {
		return err
	}

	log := rip.LoggerFrom(ctx).WithValues("run", id)

	if run.Status != rip.RunPending {
		log.V(1).Info("skipping " + string(run.Status) + " run")
		return nil
	}

	if err := rip.SynchronizeRun(rip.WithLogger(ctx, log), ripblob.NewStore(bucket), run); err != nil {
		log.Error(err, "run failed")
	}

	return ripblob.WriteRun(ctx, bucket, run)
}

type ReceiveOpts struct {
	Parallelism int
}

type ReceiveOpt interface {
	Apply(*ReceiveOpts)
}

func (o *ReceiveOpts) Apply(opts *ReceiveOpts) {
	if o != nil && opts != nil {
		if o.Parallelism > 0 {
			opts.Parallelism = o.Parallelism
		}
	}
}

// Receive handles messages from subscription until ctx is done
// or the subscription fails. Messages whose Run cannot be read or
// recorded are nacked so that they are redelivered.
func Receive(ctx context.Context, bucket *blob.Bucket, subscription *pubsub.Subscription, opts ...ReceiveOpt) error {
	var (
		o   = &ReceiveOpts{Parallelism: 1}
		log = rip.LoggerFrom(ctx)
		eg  = new(errgroup.Group)
	)

	for _, opt := range opts {
		opt.Apply(o)
	}

	eg.SetLimit(o.Parallelism)

	for {
		msg, err := subscription.Receive(ctx)
		if err != nil {
			_ = eg.Wait()
			return err
		}

		eg.Go(func() error {
			if err := Handle(ctx, bucket, msg); err != nil {
				log.Error(err, "handling message")

				if msg.Nackable() {
					msg.Nack()
					return nil
				}
			}

			msg.Ack()
			return nil
		})
	}
}
