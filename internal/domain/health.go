package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual component.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// OperationMetrics is returned by GET /v1/metrics/operations.
type OperationMetrics struct {
	AccountsOpened    int64                     `json:"accountsOpened"`
	IdempotentReplays int64                     `json:"idempotentReplays"`
	Operations        map[string]OperationCount `json:"operations"`
	Period            string                    `json:"period"`
}

// OperationCount holds the outcome counters of one service operation.
type OperationCount struct {
	Success   int64   `json:"success"`
	Rejected  int64   `json:"rejected"`
	Error     int64   `json:"error"`
	ErrorRate float64 `json:"errorRate"`
}
