package enums

import "fmt"

// AuditEventType names a side-channel audit event.
type AuditEventType string

const (
	AuditEventOrderCreated           AuditEventType = "order.created"
	AuditEventOrderStatusChanged     AuditEventType = "order.status_changed"
	AuditEventOrderCancelled         AuditEventType = "order.cancelled"
	AuditEventOrderFeedbackSubmitted AuditEventType = "order.feedback_submitted"
	AuditEventOrderPurged            AuditEventType = "order.purged"
	AuditEventStatisticsRebuilt      AuditEventType = "statistics.rebuilt"
)

var validAuditEventTypes = []AuditEventType{
	AuditEventOrderCreated,
	AuditEventOrderStatusChanged,
	AuditEventOrderCancelled,
	AuditEventOrderFeedbackSubmitted,
	AuditEventOrderPurged,
	AuditEventStatisticsRebuilt,
}

// String implements fmt.Stringer.
func (e AuditEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known AuditEventType.
func (e AuditEventType) IsValid() bool {
	for _, candidate := range validAuditEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseAuditEventType converts raw input into an AuditEventType.
func ParseAuditEventType(value string) (AuditEventType, error) {
	for _, candidate := range validAuditEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit event type %q", value)
}
