package server

import (
	"net/http"
	"strconv"
)

// statusRecorder wraps an http.ResponseWriter to capture the status code
// written, for metrics labeling, without otherwise altering behavior.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// statusClass collapses a status code to its class ("2xx", "4xx", ...) for
// lower-cardinality metric labels.
func statusClass(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// contentLength renders a byte count as a decimal string suitable for the
// Content-Length header.
func contentLength(body []byte) string {
	return strconv.Itoa(len(body))
}
