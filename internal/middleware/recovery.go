// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"autoblogger/internal/metrics"
)

// Recoverer turns a handler panic into a logged JSON 500. When the handler
// already started its response only the log record is written.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := wrap(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				metrics.HTTPPanicsRecovered.Inc()
				logger.Error("panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"response_started", wrapped.written,
					"stack", string(debug.Stack()),
				)
				if !wrapped.written {
					writeMessage(wrapped, http.StatusInternalServerError, "Internal Server Error")
				}
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}
