package riperr

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/frantjc/rip/zipsync"
	"gocloud.dev/gcerrors"
)

// HTTPStatusCodeError wraps err so that HTTPStatusCode reports
// httpStatusCode for it. Invalid codes become 500.
func HTTPStatusCodeError(err error, httpStatusCode int) error {
	if err == nil {
		return nil
	}

	if 600 <= httpStatusCode || httpStatusCode < 100 {
		httpStatusCode = http.StatusInternalServerError
	}

	return &httpStatusCodeError{
		err:            err,
		httpStatusCode: httpStatusCode,
	}
}

type httpStatusCodeError struct {
	err            error
	httpStatusCode int
}

func (e *httpStatusCodeError) Error() string {
	if e.err == nil {
		return ""
	}

	return e.err.Error()
}

func (e *httpStatusCodeError) Unwrap() error {
	return e.err
}

// HTTPStatusCode returns the HTTP status code that best describes err.
func HTTPStatusCode(err error) int {
	hscerr := &httpStatusCodeError{}
	switch {
	case errors.As(err, &hscerr):
		return hscerr.httpStatusCode
	case errors.Is(err, zipsync.ErrMalformedContainer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fs.ErrNotExist), gcerrors.Code(err) == gcerrors.NotFound:
		return http.StatusNotFound
	case gcerrors.Code(err) == gcerrors.InvalidArgument:
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
