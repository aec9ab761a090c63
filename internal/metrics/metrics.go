package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Token Metrics
	TokensIssuedTotal    *prometheus.CounterVec
	TokenValidationTotal *prometheus.CounterVec
	TokensRevokedTotal   *prometheus.CounterVec
	TokensRefreshedTotal *prometheus.CounterVec

	// Authorization Flow Metrics
	AuthorizationRequestsTotal  *prometheus.CounterVec
	AuthorizationDecisionsTotal *prometheus.CounterVec
	CodeExchangesTotal          *prometheus.CounterVec

	// Authentication Metrics
	AuthLoginTotal  *prometheus.CounterVec
	AuthLogoutTotal prometheus.Counter

	// Introspection Metrics
	IntrospectionTotal *prometheus.CounterVec

	// Maintenance Metrics
	SweptRecordsTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	m := &Metrics{
		// Token Metrics
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{
				"token_type",
				"grant_type",
			}, // token_type: access, refresh; grant_type: authorization_code, implicit, password, client_credentials, refresh_token
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_validation_total",
				Help: "Total number of token validations",
			},
			[]string{"result"}, // valid, invalid, expired
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of tokens revoked",
			},
			[]string{"token_type"}, // access, refresh
		),
		TokensRefreshedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_refreshed_total",
				Help: "Total number of token refresh attempts",
			},
			[]string{"result"}, // success, error
		),

		// Authorization Flow Metrics
		AuthorizationRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_requests_total",
				Help: "Total number of authorization requests",
			},
			[]string{"result"}, // success, error
		),
		AuthorizationDecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_authorization_decisions_total",
				Help: "Total number of user consent decisions",
			},
			[]string{"decision"}, // allow, deny, trusted
		),
		CodeExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_code_exchanges_total",
				Help: "Total number of authorization code exchanges",
			},
			[]string{"result"}, // success, error
		),

		// Authentication Metrics
		AuthLoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success, failure
		),
		AuthLogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Total number of logouts",
			},
		),

		// Introspection Metrics
		IntrospectionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_introspection_total",
				Help: "Total number of introspection requests",
			},
			[]string{"result"}, // active, inactive
		),

		// Maintenance Metrics
		SweptRecordsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_swept_records_total",
				Help: "Total number of expired records removed by the cleanup job",
			},
			[]string{"table"}, // accesstokens, refreshtokens, authorizationcodes
		),

		// HTTP Request Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
	}

	return m
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued(tokenType, grantType string) {
	m.TokensIssuedTotal.WithLabelValues(tokenType, grantType).Inc()
}

// RecordTokenValidation records token validation
func (m *Metrics) RecordTokenValidation(result string) {
	// result: valid, invalid, expired
	m.TokenValidationTotal.WithLabelValues(result).Inc()
}

// RecordTokenRevoked records token revocation
func (m *Metrics) RecordTokenRevoked(tokenType string) {
	m.TokensRevokedTotal.WithLabelValues(tokenType).Inc()
}

// RecordTokenRefresh records token refresh attempt
func (m *Metrics) RecordTokenRefresh(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.TokensRefreshedTotal.WithLabelValues(result).Inc()
}

// RecordAuthorizationRequest records an authorization request
func (m *Metrics) RecordAuthorizationRequest(result string) {
	m.AuthorizationRequestsTotal.WithLabelValues(result).Inc()
}

// RecordAuthorizationDecision records a user consent decision
func (m *Metrics) RecordAuthorizationDecision(decision string) {
	// decision: allow, deny, trusted
	m.AuthorizationDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordCodeExchange records an authorization code exchange
func (m *Metrics) RecordCodeExchange(result string) {
	m.CodeExchangesTotal.WithLabelValues(result).Inc()
}

// RecordLogin records login attempt
func (m *Metrics) RecordLogin(success bool) {
	result := resultSuccess
	if !success {
		result = resultFailure
	}
	m.AuthLoginTotal.WithLabelValues(result).Inc()
}

// RecordLogout records logout
func (m *Metrics) RecordLogout() {
	m.AuthLogoutTotal.Inc()
}

// RecordIntrospection records an introspection request
func (m *Metrics) RecordIntrospection(active bool) {
	result := "active"
	if !active {
		result = "inactive"
	}
	m.IntrospectionTotal.WithLabelValues(result).Inc()
}

// RecordSweep records expired records removed by the cleanup job
func (m *Metrics) RecordSweep(table string, removed int) {
	if removed <= 0 {
		return
	}
	m.SweptRecordsTotal.WithLabelValues(table).Add(float64(removed))
}
