package enums

import "fmt"

// OutboxDLQErrorReason records why an outbox event was parked in the DLQ.
type OutboxDLQErrorReason string

const (
	// the event type or aggregate is not one the storefront publishes
	OutboxDLQReasonUnknownEvent OutboxDLQErrorReason = "unknown_event"
	// the envelope or its order/product payload failed to decode
	OutboxDLQReasonMalformedPayload OutboxDLQErrorReason = "malformed_payload"
	// no publisher exists for the event's topic
	OutboxDLQReasonTopicUnavailable OutboxDLQErrorReason = "topic_unavailable"
	OutboxDLQReasonMaxAttempts      OutboxDLQErrorReason = "max_attempts"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonUnknownEvent,
	OutboxDLQReasonMalformedPayload,
	OutboxDLQReasonTopicUnavailable,
	OutboxDLQReasonMaxAttempts,
}

func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// Retryable reports whether requeueing the event can succeed without a code
// or config change.
func (r OutboxDLQErrorReason) Retryable() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonTopicUnavailable
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	for _, candidate := range validOutboxDLQErrorReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dlq reason %q", value)
}
