package riphttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/frantjc/rip"
	"github.com/frantjc/rip/internal/ripblob"
	"github.com/frantjc/rip/internal/riperr"
	"github.com/frantjc/rip/internal/rippubsub"
	"github.com/frantjc/rip/internal/ripregexp"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
)

// runRequest names archives that are already in the bucket. The output
// is always written to the Run's own key, so Output may not be set.
type runRequest struct {
	Reference string `json:"reference"`
	Derived   string `json:"derived"`
	Output    string `json:"output,omitempty"`
}

func (req *runRequest) validate() error {
	errs := []error{}

	if req.Output != "" {
		errs = append(errs, fmt.Errorf("output cannot be set, it is always written to the run's %s", path.Base(ripblob.OutputKey(""))))
	}

	for _, key := range []string{req.Reference, req.Derived} {
		if ripblob.IsRunKey(key) {
			errs = append(errs, fmt.Errorf("%s is a run record, not an archive", key))
		}
	}

	return riperr.HTTPStatusCodeError(errors.Join(errs...), http.StatusBadRequest)
}

// newRun creates a pending Run from the request. A multipart/form-data
// request carries the archives themselves in its "reference" and "derived"
// parts; they are copied into the bucket under the Run's ID. A JSON request
// names keys that are already in the bucket.
func (h *handler) newRun(r *http.Request) (*rip.Run, error) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, riperr.HTTPStatusCodeError(err, http.StatusUnsupportedMediaType)
	}

	rc, err := decodeContent(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		ctx = r.Context()
		id  = uuid.NewString()
		run = &rip.Run{
			ID:     id,
			Status: rip.RunPending,
			Output: ripblob.OutputKey(id),
		}
	)

	switch mediaType {
	case rip.ContentTypeMultiPart:
		boundary := params["boundary"]
		if boundary == "" {
			return nil, riperr.HTTPStatusCodeError(
				fmt.Errorf("missing boundary"),
				http.StatusBadRequest,
			)
		}

		mr := multipart.NewReader(rc, boundary)
		for {
			p, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				return nil, riperr.HTTPStatusCodeError(err, http.StatusBadRequest)
			}

			var key string
			switch p.FormName() {
			case "reference":
				key = ripblob.ReferenceKey(id)
				run.Reference = key
			case "derived":
				key = ripblob.DerivedKey(id)
				run.Derived = key
			default:
				_ = p.Close()
				continue
			}

			if err = ripblob.Copy(ctx, h.Bucket, key, rip.ContentTypeAPK, p); err != nil {
				_ = p.Close()
				return nil, err
			}

			_ = p.Close()
		}
	case rip.ContentTypeJSON:
		req := &runRequest{}
		if err = json.NewDecoder(rc).Decode(req); err != nil {
			return nil, riperr.HTTPStatusCodeError(err, http.StatusBadRequest)
		}

		if err = req.validate(); err != nil {
			return nil, err
		}

		run.Reference = req.Reference
		run.Derived = req.Derived
	default:
		return nil, riperr.HTTPStatusCodeError(
			fmt.Errorf("unsupported Content-Type %s", mediaType),
			http.StatusUnsupportedMediaType,
		)
	}

	if err = rip.ValidateRun(run); err != nil {
		return nil, err
	}

	return run, nil
}

func (h *handler) handleSynchronize(w http.ResponseWriter, r *http.Request) error {
	run, err := h.newRun(r)
	if err != nil {
		return err
	}

	ctx := r.Context()

	runErr := rip.SynchronizeRun(ctx, ripblob.NewStore(h.Bucket), run)
	if err = ripblob.WriteRun(ctx, h.Bucket, run); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	w.Header().Set("Location", path.Join(r.URL.Path, "..", "runs", run.ID))

	return respond(w, r, http.StatusOK, run)
}

func (h *handler) handleEnqueue(w http.ResponseWriter, r *http.Request) error {
	run, err := h.newRun(r)
	if err != nil {
		return err
	}

	ctx := r.Context()

	if err = ripblob.WriteRun(ctx, h.Bucket, run); err != nil {
		return err
	}

	if err = rippubsub.Send(ctx, h.Topic, run.ID); err != nil {
		return err
	}

	w.Header().Set("Location", path.Join(r.URL.Path, run.ID))

	return respond(w, r, http.StatusAccepted, run)
}

func (h *handler) getRun(r *http.Request) (*rip.Run, error) {
	id := chi.URLParam(r, "id")
	if !ripregexp.IsUUID(id) {
		return nil, riperr.HTTPStatusCodeError(fmt.Errorf("invalid run ID %s", id), http.StatusBadRequest)
	}

	return ripblob.ReadRun(r.Context(), h.Bucket, id)
}

func (h *handler) handleGetRun(w http.ResponseWriter, r *http.Request) error {
	run, err := h.getRun(r)
	if err != nil {
		return err
	}

	return respond(w, r, http.StatusOK, run)
}

func (h *handler) handleGetOutput(w http.ResponseWriter, r *http.Request) error {
	run, err := h.getRun(r)
	if err != nil {
		return err
	}

	switch run.Status {
	case rip.RunSucceeded:
	case rip.RunFailed:
		return riperr.HTTPStatusCodeError(fmt.Errorf("run %s failed: %s", run.ID, run.Error), http.StatusConflict)
	default:
		return riperr.HTTPStatusCodeError(fmt.Errorf("run %s is %s", run.ID, run.Status), http.StatusConflict)
	}

	ctx := r.Context()

	rc, err := h.Bucket.NewReader(ctx, run.Output, nil)
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err = negotiate(w, r, rip.ContentTypeAPK); err != nil {
		return err
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(rip.OutputName(run.Derived))))
	if run.OutputDigest != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", run.OutputDigest))
	}

	_, err = io.Copy(w, rc)
	return err
}
