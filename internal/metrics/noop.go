package metrics

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Token Operations - noop implementations
func (n *NoopMetrics) RecordTokenIssued(tokenType, grantType string) {}
func (n *NoopMetrics) RecordTokenValidation(result string)           {}
func (n *NoopMetrics) RecordTokenRevoked(tokenType string)           {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)               {}

// Authorization Flow - noop implementations
func (n *NoopMetrics) RecordAuthorizationRequest(result string)    {}
func (n *NoopMetrics) RecordAuthorizationDecision(decision string) {}
func (n *NoopMetrics) RecordCodeExchange(result string)            {}

// Authentication - noop implementations
func (n *NoopMetrics) RecordLogin(success bool) {}
func (n *NoopMetrics) RecordLogout()            {}

// Introspection - noop implementations
func (n *NoopMetrics) RecordIntrospection(active bool) {}

// Maintenance - noop implementations
func (n *NoopMetrics) RecordSweep(table string, removed int) {}
