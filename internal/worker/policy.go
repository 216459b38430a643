package worker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmehdipour/reminder-dispatch/internal/push"
)

// ErrNotDelivered is recorded when the transport answered but the delivery
// policy rejected the result.
var ErrNotDelivered = errors.New("no successful deliveries")

// DeliveryPolicy decides whether a completed multicast counts as delivered,
// which is what marks events notified.
type DeliveryPolicy func(res push.BatchResult) bool

const (
	PolicyAnyAttempt     = "any_attempt"
	PolicyRequireSuccess = "require_success"
)

// AnyAttempt accepts every result the transport returned without error, even
// when no token succeeded. Such events are not retried.
func AnyAttempt(push.BatchResult) bool { return true }

// RequireSuccess needs at least one token delivered.
func RequireSuccess(res push.BatchResult) bool { return res.SuccessCount > 0 }

func ParsePolicy(name string) (DeliveryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyAnyAttempt:
		return AnyAttempt, nil
	case PolicyRequireSuccess:
		return RequireSuccess, nil
	default:
		return nil, fmt.Errorf("unknown delivery policy %q", name)
	}
}
