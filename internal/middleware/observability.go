package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"whatsrelay/internal/metrics"
	"whatsrelay/internal/httputil"
	"whatsrelay/internal/service"
	"whatsrelay/internal/tracing"
)

// RequestIDHeader carries the request id back to the caller
const RequestIDHeader = "X-Request-Id"

// Observability assigns a request id, opens a span, records Prometheus
// metrics and logs every request. m may be nil.
func Observability(logger *logrus.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeTemplate(r)

			ctx, span := tracing.StartSpan(r.Context(), "http "+r.Method+" "+route)
			defer span.End()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = tracing.GenerateRequestID()
			}
			ctx = tracing.WithRequestID(ctx, requestID)
			ctx = tracing.WithStartTime(ctx, time.Now())
			r = r.WithContext(ctx)
			w.Header().Set(RequestIDHeader, requestID)

			clientIP := httputil.ClientIP(r)
			tracing.AddSpanAttributes(ctx,
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("client.address", clientIP),
				attribute.String("user_agent.original", r.Header.Get("User-Agent")),
			)

			done := m.RequestStarted(r.Method, route)
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			duration := tracing.Duration(ctx)
			done(strconv.Itoa(wrapper.statusCode))

			tracing.AddSpanAttributes(ctx,
				attribute.Int("http.response.status_code", wrapper.statusCode),
				attribute.Int64("http.response.size", wrapper.responseSize),
			)
			if wrapper.statusCode >= 500 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", wrapper.statusCode))
			}

			logLevel := logrus.InfoLevel
			switch {
			case wrapper.statusCode >= 500:
				logLevel = logrus.ErrorLevel
			case wrapper.statusCode >= 400:
				logLevel = logrus.WarnLevel
			}

			logger.WithFields(logrus.Fields{
				service.LogFieldRequestID:  requestID,
				service.LogFieldTraceID:    tracing.TraceID(ctx),
				service.LogFieldMethod:     r.Method,
				service.LogFieldRoute:      route,
				service.LogFieldStatusCode: wrapper.statusCode,
				service.LogFieldDuration:   duration.Milliseconds(),
				service.LogFieldRemoteIP:   clientIP,
				service.LogFieldSize:       wrapper.responseSize,
			}).Log(logLevel, "HTTP request completed")
		})
	}
}

// routeTemplate keeps metric labels bounded by using the matched mux
// template instead of the raw path
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	responseSize int64
}

func (rw *responseWrapper) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWrapper) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.responseSize += int64(n)
	return n, err
}
