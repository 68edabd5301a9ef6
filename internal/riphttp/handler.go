package riphttp

import (
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"gocloud.dev/blob"
	"gocloud.dev/pubsub"
)

const (
	paramID = `{id}`
)

type Opts struct {
	Path string
}

type Opt interface {
	Apply(*Opts)
}

func (o *Opts) Apply(opts *Opts) {
	if o != nil {
		if opts != nil {
			if o.Path != "" {
				opts.Path = path.Join("/", o.Path)
			}
		}
	}
}

func newOpts(opts ...Opt) *Opts {
	o := &Opts{
		Path: "/",
	}

	for _, opt := range opts {
		opt.Apply(o)
	}

	return o
}

type handler struct {
	Bucket *blob.Bucket
	Topic  *pubsub.Topic
}

// NewHandler returns the rip API. Archives and Runs are kept in bucket.
// Runs created with POST /api/v1/runs are sent to topic to be picked
// up by rippubsub.Receive.
func NewHandler(bucket *blob.Bucket, topic *pubsub.Topic, opts ...Opt) http.Handler {
	var (
		o = newOpts(opts...)
		h = &handler{Bucket: bucket, Topic: topic}
		r = chi.NewRouter()
	)

	r.Use(middleware.RealIP)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	})

	r.Route(path.Join(o.Path, "/api/v1"), func(r chi.Router) {
		r.Post("/synchronize", handleErr(h.handleSynchronize))

		r.Post("/runs", handleErr(h.handleEnqueue))

		r.Get(
			fmt.Sprintf("/runs/%s", paramID),
			handleErr(h.handleGetRun),
		)

		r.Get(
			fmt.Sprintf("/runs/%s/app.apk", paramID),
			handleErr(h.handleGetOutput),
		)
	})

	r.NotFound(http.NotFound)

	return r
}
