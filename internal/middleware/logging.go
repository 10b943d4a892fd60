// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder captures the response status for the request log line.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LogMiddleware is an HTTP middleware that logs requests using Logrus:
// method, path, status, and duration.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs a message when a room viewer connects.
func LogWebSocketConnect(logger *logrus.Logger, remoteAddr, room string) {
	logger.WithFields(logrus.Fields{
		"remote": remoteAddr,
		"room":   room,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs a message when a room viewer disconnects.
func LogWebSocketDisconnect(logger *logrus.Logger, remoteAddr, room string, err error) {
	fields := logrus.Fields{
		"remote": remoteAddr,
		"room":   room,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
