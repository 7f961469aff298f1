package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// statusRecorder captures the response status code. Flush passes
// through so instrumented streaming routes keep flushing per chunk.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
		sr.ResponseWriter.WriteHeader(code)
	}
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Flush() {
	if flusher, ok := sr.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Instrument wraps a handler with request count and duration recording
// under the given route label.
func (c *Collector) Instrument(route string, next http.Handler) http.Handler {
	if !c.config.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		c.RecordRequest(route, strconv.Itoa(sr.statusCode), time.Since(startTime))
	})
}
