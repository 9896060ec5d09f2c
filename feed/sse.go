package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var errBadEventFormat = errors.New("can't have newline")

func setSSEHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// writeEvent writes a single SSE message with JSON data, and flushes w if possible.
func writeEvent(w io.Writer, event, id string, data any) error {
	if strings.ContainsRune(event, '\n') || strings.ContainsRune(id, '\n') {
		return errBadEventFormat
	}

	if _, err := fmt.Fprintf(w, "event: %s\nid: %s\ndata: ", event, id); err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(data); err != nil { // includes newline
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
