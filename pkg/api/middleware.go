package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gensyn-ai/rl-swarm/pkg/utils"
)

// Middleware context keys
type contextKey string

const (
	ctxKeyRequestID contextKey = "request_id"
	ctxKeyStartTime contextKey = "start_time"
)

// middlewareRequestID adds a unique request ID to each request
func (s *Server) middlewareRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || !isValidRequestID(requestID) {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		ctx = context.WithValue(ctx, utils.ContextKeyRequestID, requestID)

		w.Header().Set(HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// middlewareLogging logs all requests
func (s *Server) middlewareLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := context.WithValue(r.Context(), ctxKeyStartTime, start)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		duration := time.Since(start)
		fields := []zap.Field{
			utils.ZapString("request_id", getRequestID(r.Context())),
			utils.ZapString("method", r.Method),
			utils.ZapString("path", r.URL.Path),
			utils.ZapString("client_ip", getClientIP(r)),
			utils.ZapInt("status", wrapped.statusCode),
			utils.ZapInt64("duration_ms", duration.Milliseconds()),
		}

		switch {
		case wrapped.statusCode >= 500:
			s.logger.ErrorContext(r.Context(), "request error", fields...)
		case wrapped.statusCode >= 400:
			s.logger.WarnContext(r.Context(), "request client error", fields...)
		default:
			s.logger.InfoContext(r.Context(), "request completed", fields...)
		}
	})
}

// middlewarePanicRecovery recovers from panics and returns 500
func (s *Server) middlewarePanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					utils.ZapString("request_id", getRequestID(r.Context())),
					utils.ZapString("path", r.URL.Path),
					utils.ZapAny("panic", err),
					utils.ZapString("stack", string(debug.Stack())))

				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// middlewareRateLimit enforces rate limiting per client
func (s *Server) middlewareRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := getClientIdentifier(r)
		allowed, resetTime := s.rateLimiter.Allow(clientID)

		w.Header().Set(HeaderRateLimitLimit, fmt.Sprintf("%d", s.config.RateLimitPerMinute))
		w.Header().Set(HeaderRateLimitReset, fmt.Sprintf("%d", resetTime))

		if !allowed {
			w.Header().Set(HeaderRateLimitRemaining, "0")

			s.logger.Warn("rate limit exceeded",
				utils.ZapString("client_id", clientID),
				utils.ZapString("path", r.URL.Path))

			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// middlewareCORS adds CORS headers for the dashboard frontend
func (s *Server) middlewareCORS(next http.Handler) http.Handler {
	allowedOrigin := s.config.CORSAllowedOrigin
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// middlewareSecurityHeaders adds security headers
func (s *Server) middlewareSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		next.ServeHTTP(w, r)
	})
}

// middlewareConcurrencyLimit limits concurrent in-flight requests
func (s *Server) middlewareConcurrencyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		default:
			writeError(w, r, http.StatusServiceUnavailable, "too many concurrent requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper functions

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// getRequestID extracts request ID from context
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// getClientIP extracts client IP from request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// getClientIdentifier returns a rate-limit identifier for the client
func getClientIdentifier(r *http.Request) string {
	return "ip:" + getClientIP(r)
}
