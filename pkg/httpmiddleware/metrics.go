package httpmiddleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument returns a middleware that records request count and duration
// metrics through the given meter provider. Instrument names follow OTel
// HTTP semantic conventions.
func Instrument(serviceName string, provider metric.MeterProvider) Middleware {
	meter := provider.Meter(serviceName)

	requests, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests received"),
	)
	duration, derr := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request handling duration"),
		metric.WithUnit("s"),
	)
	if err != nil || derr != nil {
		// Instrument creation only fails on invalid names; serve unobserved.
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.Int("http.response.status_code", rec.status),
			)
			requests.Add(r.Context(), 1, attrs)
			duration.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}
