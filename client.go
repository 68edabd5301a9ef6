package rip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/frantjc/rip/internal/riperr"
)

// Client talks to a `rip serve` API.
type Client struct {
	HTTPClient *http.Client
	Base       *url.URL
}

func (c *Client) init() error {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Base == nil {
		var err error
		c.Base, err = url.Parse("http://localhost:8080/")
		return err
	}
	return nil
}

// Synchronize uploads reference and derived and synchronizes them
// on the server, waiting for the finished Run.
func (c *Client) Synchronize(ctx context.Context, reference, derived io.Reader) (*Run, error) {
	return c.postRun(ctx, "/api/v1/synchronize", http.StatusOK, reference, derived)
}

// Enqueue uploads reference and derived to be synchronized asynchronously.
// The returned Run is pending; poll it with GetRun.
func (c *Client) Enqueue(ctx context.Context, reference, derived io.Reader) (*Run, error) {
	return c.postRun(ctx, "/api/v1/runs", http.StatusAccepted, reference, derived)
}

func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	if err := ValidateRun(&Run{ID: id, Reference: "-", Derived: "-"}); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base.JoinPath("/api/v1/runs", id).String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	run := &Run{}
	if err = c.do(req, http.StatusOK, run); err != nil {
		return nil, err
	}

	return run, nil
}

// GetOutput returns the synchronized archive written by the Run with the given ID.
// The caller must close it.
func (c *Client) GetOutput(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base.JoinPath("/api/v1/runs", id, "app.apk").String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", ContentTypeAPK)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()
		return nil, errorFromResponse(res)
	}

	return res.Body, nil
}

func (c *Client) Readyz(ctx context.Context) error {
	return c.probe(ctx, "/readyz")
}

func (c *Client) Healthz(ctx context.Context) error {
	return c.probe(ctx, "/healthz")
}

func (c *Client) probe(ctx context.Context, path string) error {
	if err := c.init(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base.JoinPath(path).String(), nil)
	if err != nil {
		return err
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("http status code %d", res.StatusCode)
	}

	return nil
}

func (c *Client) postRun(ctx context.Context, path string, wantStatusCode int, reference, derived io.Reader) (*Run, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	var (
		pr, pw = io.Pipe()
		mw     = multipart.NewWriter(pw)
	)

	go func() {
		if err := func() error {
			for _, part := range []struct {
				name string
				r    io.Reader
			}{
				{"reference", reference},
				{"derived", derived},
			} {
				w, err := mw.CreateFormFile(part.name, part.name+".apk")
				if err != nil {
					return err
				}

				if _, err = io.Copy(w, part.r); err != nil {
					return err
				}
			}

			return mw.Close()
		}(); err != nil {
			_ = pw.CloseWithError(err)
			return
		}

		_ = pw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base.JoinPath(path).String(), pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}

	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	run := &Run{}
	if err = c.do(req, wantStatusCode, run); err != nil {
		return nil, err
	}

	return run, nil
}

func (c *Client) do(req *http.Request, wantStatusCode int, v any) error {
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != wantStatusCode {
		return errorFromResponse(res)
	}

	return json.NewDecoder(res.Body).Decode(v)
}

func errorFromResponse(res *http.Response) error {
	body := map[string]string{}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil {
		if body["error"] != "" {
			return riperr.HTTPStatusCodeError(fmt.Errorf("http status code %d: %s", res.StatusCode, body["error"]), res.StatusCode)
		}
	}

	return riperr.HTTPStatusCodeError(fmt.Errorf("http status code %d", res.StatusCode), res.StatusCode)
}
