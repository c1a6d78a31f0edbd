package server

import (
	"context"
	"net/http"
	"strconv"
)

// RateLimitInfo carries the caller's current quota state so the
// response writer can emit x-ratelimit headers.
type RateLimitInfo struct {
	MinuteLimit     int
	MinuteRemaining int
	DayLimit        int
	DayRemaining    int
}

// rateLimitKey identifies the request-scoped rate limit holder.
type rateLimitKey struct{}

// SetRateLimits records the caller's quota state for the current
// request. The values are emitted as response headers by
// RateLimitHeaderMiddleware. No-op if the middleware isn't installed.
func SetRateLimits(ctx context.Context, info *RateLimitInfo) {
	if info == nil {
		return
	}
	if holder, ok := ctx.Value(rateLimitKey{}).(*RateLimitInfo); ok {
		*holder = *info
	}
}

// RateLimitHeaderMiddleware installs a mutable rate limit holder into
// the request context and emits x-ratelimit headers once the handler
// has populated it via SetRateLimits. Headers are written lazily on
// the first write so handler-set values are visible.
func RateLimitHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder := &RateLimitInfo{}
		ctx := context.WithValue(r.Context(), rateLimitKey{}, holder)

		wrapped := &rateLimitResponseWriter{ResponseWriter: w, info: holder}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
		wrapped.flushHeaders()
	})
}

// rateLimitResponseWriter injects rate limit headers before the first
// write, after the handler has had a chance to populate the holder.
type rateLimitResponseWriter struct {
	http.ResponseWriter
	info        *RateLimitInfo
	wroteHeader bool
}

func (rw *rateLimitResponseWriter) flushHeaders() {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true

	if rw.info.MinuteLimit == 0 && rw.info.DayLimit == 0 {
		return
	}
	h := rw.Header()
	h.Set("X-RateLimit-Limit-Minute", strconv.Itoa(rw.info.MinuteLimit))
	h.Set("X-RateLimit-Remaining-Minute", strconv.Itoa(rw.info.MinuteRemaining))
	h.Set("X-RateLimit-Limit-Day", strconv.Itoa(rw.info.DayLimit))
	h.Set("X-RateLimit-Remaining-Day", strconv.Itoa(rw.info.DayRemaining))
}

func (rw *rateLimitResponseWriter) WriteHeader(code int) {
	rw.flushHeaders()
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *rateLimitResponseWriter) Write(b []byte) (int, error) {
	rw.flushHeaders()
	return rw.ResponseWriter.Write(b)
}
