// Copyright 2026 The Decoupled Resolver Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpapi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as metric label values.
const (
	outcomeOK          = "ok"
	outcomeClientError = "client_error"
	outcomeAuthError   = "auth_error"
	outcomeServerError = "server_error"
)

// Metrics instruments the API handlers. A nil *Metrics is a valid no-op, so
// handlers never need to check for instrumentation.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the handler metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resolver",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "resolver",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request duration by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// observe records one finished request.
func (m *Metrics) observe(operation string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcomeFor(status)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func outcomeFor(status int) string {
	switch {
	case status == 403:
		return outcomeAuthError
	case status >= 500:
		return outcomeServerError
	case status >= 400:
		return outcomeClientError
	default:
		return outcomeOK
	}
}
