package push

import "context"

// Message is one multicast notification.
type Message struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Tokens []string          `json:"tokens"`
	Data   map[string]string `json:"data,omitempty"`
}

// BatchResult aggregates per-token outcomes of a multicast.
type BatchResult struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

func (r BatchResult) add(o BatchResult) BatchResult {
	return BatchResult{SuccessCount: r.SuccessCount + o.SuccessCount, FailureCount: r.FailureCount + o.FailureCount}
}

// Provider is one push backend guarded by its own breaker.
type Provider interface {
	Name() string
	Ready() bool
	Acquire() bool
	SendMulticast(ctx context.Context, msg Message) (BatchResult, error)
}

// DefaultMaxBatch matches the FCM multicast token limit.
const DefaultMaxBatch = 500
