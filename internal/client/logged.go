package client

import (
	"net/http"
	"time"

	"github.com/FeS1111/TSP/internal/logger"
	"github.com/google/uuid"
)

// RequestLog describes one completed round trip.
type RequestLog struct {
	ID       string
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// Observer receives a RequestLog after every round trip. It is called from
// the goroutine that issued the request.
type Observer func(RequestLog)

// loggedTransport tags each request with an X-Request-ID and records it.
type loggedTransport struct {
	base     http.RoundTripper
	log      logger.AppLogger
	observer Observer
}

func (t *loggedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	id := uuid.NewString()

	// RoundTrip must not modify the caller's request.
	req = req.Clone(req.Context())
	req.Header.Set("X-Request-ID", id)

	resp, err := t.base.RoundTrip(req)

	entry := RequestLog{
		ID:       id,
		Method:   req.Method,
		Path:     req.URL.Path,
		Duration: time.Since(start),
		Err:      err,
	}
	if resp != nil {
		entry.Status = resp.StatusCode
	}

	if err != nil {
		t.log.Error(err, "client.http", "request_id", id, "method", entry.Method, "path", entry.Path)
	} else {
		t.log.Info("http request", "client.http",
			"request_id", id,
			"method", entry.Method,
			"path", entry.Path,
			"status", entry.Status,
			"duration_ms", entry.Duration.Milliseconds(),
		)
	}
	if t.observer != nil {
		t.observer(entry)
	}
	return resp, err
}
