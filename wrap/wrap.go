// Package wrap adapts handlers that return values into http.HandlerFuncs.
package wrap

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// HttpFunc is a handler used by Http which allows generating simple result types.
// Return nil to skip the built-in behavior.
type HttpFunc func(http.ResponseWriter, *http.Request) any

// StatusError is an error returned to the client with its status code and message.
type StatusError struct {
	Code    int
	Message string
}

func (e StatusError) Error() string {
	return e.Message
}

// Http returns a http.HandlerFunc that wraps a HttpFunc capable of convenient return types.
// Errors are logged and reported as a 500, unless they are a StatusError.
func Http(log *zap.Logger, fn HttpFunc) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		out := fn(w, r)
		switch x := out.(type) {
		case nil:
			return
		case error:
			err = x
		case []byte:
			w.Write(x)
		case io.Reader:
			if rc, ok := x.(io.ReadCloser); ok {
				defer rc.Close()
			}
			_, err = io.Copy(w, x)
		case string:
			io.WriteString(w, x)
		case int:
			w.WriteHeader(x)
		default:
			w.Header().Set("Content-Type", "application/json")
			err = json.NewEncoder(w).Encode(x)
		}

		if err == nil {
			return
		}

		var se StatusError
		if errors.As(err, &se) {
			http.Error(w, se.Message, se.Code)
			return
		}
		log.Warn("handler failed", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// DecodeJSON decodes a JSON request body of at most limit bytes into v.
// Failures are returned as a StatusError with http.StatusBadRequest.
func DecodeJSON(r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	if err := dec.Decode(v); err != nil {
		return StatusError{Code: http.StatusBadRequest, Message: "bad json: " + err.Error()}
	}
	return nil
}
