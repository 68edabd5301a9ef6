package riphttp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/frantjc/rip"
	"github.com/frantjc/rip/internal/riperr"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/timewasted/go-accept-headers"
	"gopkg.in/yaml.v3"
)

func handleErr(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler(w, r); err != nil {
			code := riperr.HTTPStatusCode(err)

			if _, nErr := negotiate(w, r, rip.ContentTypeJSON); nErr != nil {
				http.Error(w, err.Error(), code)
				return
			}

			w.WriteHeader(code)
			_ = encodeJSON(w, map[string]string{"error": err.Error()}, wantsPretty(r))
		}
	}
}

func negotiate(w http.ResponseWriter, r *http.Request, contentTypes ...string) (string, error) {
	contentType, err := accept.Negotiate(r.Header.Get("Accept"), contentTypes...)
	if err != nil {
		w.Header().Set("Accept", strings.Join(contentTypes, ", "))
		return "", riperr.HTTPStatusCodeError(err, http.StatusNotAcceptable)
	}

	// Responses are never encoded, so only a request that refuses identity cannot be satisfied.
	if acceptEncoding := r.Header.Get("Accept-Encoding"); strings.Contains(strings.ReplaceAll(acceptEncoding, " ", ""), "identity;q=0") {
		w.Header().Set("Accept-Encoding", "identity")
		return "", riperr.HTTPStatusCodeError(fmt.Errorf("cannot satisfy Accept-Encoding: %s", acceptEncoding), http.StatusNotAcceptable)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Vary", "Accept")
	w.Header().Add("Vary", "Accept-Encoding")

	return contentType, nil
}

// respond writes a as JSON or YAML, whichever the request accepts.
func respond(w http.ResponseWriter, r *http.Request, statusCode int, a any) error {
	contentType, err := negotiate(w, r, rip.ContentTypeJSON, rip.ContentTypeYAML)
	if err != nil {
		return err
	}

	w.WriteHeader(statusCode)

	if contentType == rip.ContentTypeYAML {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(a)
	}

	return encodeJSON(w, a, wantsPretty(r))
}

func encodeJSON(w io.Writer, a any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(a)
}

func wantsPretty(r *http.Request) bool {
	pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty"))
	return pretty
}

func decodeContent(req *http.Request) (io.ReadCloser, error) {
	var (
		rc               io.ReadCloser = req.Body
		contentEncodings               = strings.Split(strings.ToLower(req.Header.Get("Content-Encoding")), ",")
	)

	for i := len(contentEncodings) - 1; i >= 0; i-- {
		contentEncoding := strings.TrimSpace(contentEncodings[i])
		switch contentEncoding {
		case "gzip":
			zr, err := gzip.NewReader(rc)
			if err != nil {
				return nil, riperr.HTTPStatusCodeError(err, http.StatusBadRequest)
			}
			rc = zr
		case "deflate":
			rc = flate.NewReader(rc)
		case "", "identity":
		default:
			return nil, riperr.HTTPStatusCodeError(fmt.Errorf("unsupported Content-Encoding: %s", contentEncoding), http.StatusUnsupportedMediaType)
		}
	}

	return rc, nil
}
