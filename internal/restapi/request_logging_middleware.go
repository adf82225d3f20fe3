package restapi

import (
	"log/slog"
	"net/http"
	"time"

	"transitdecode.org/hafas/internal/logging"
)

// statusRecorder remembers the first status written and counts body bytes.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// NewRequestLoggingMiddleware logs one record per request and makes logger
// available to handlers through the request context.
func NewRequestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), logger)))

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			logging.LogHTTPRequest(logger, r.Method, r.URL.Path, rec.status,
				float64(time.Since(start).Microseconds())/1000,
				slog.Int64("request_bytes", r.ContentLength),
				slog.Int("response_bytes", rec.bytes),
				slog.String("user_agent", r.UserAgent()),
				slog.String("component", "http_server"))
		})
	}
}
