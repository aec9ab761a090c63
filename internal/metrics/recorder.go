package metrics

// Recorder defines the metrics recording interface.
// Implementations: Metrics (Prometheus) and NoopMetrics (disabled).
type Recorder interface {
	// Token Operations
	RecordTokenIssued(tokenType, grantType string)
	RecordTokenValidation(result string)
	RecordTokenRevoked(tokenType string)
	RecordTokenRefresh(success bool)

	// Authorization Flow
	RecordAuthorizationRequest(result string)
	RecordAuthorizationDecision(decision string)
	RecordCodeExchange(result string)

	// Authentication
	RecordLogin(success bool)
	RecordLogout()

	// Introspection
	RecordIntrospection(active bool)

	// Maintenance
	RecordSweep(table string, removed int)
}
