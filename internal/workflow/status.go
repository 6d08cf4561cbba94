package workflow

import "strings"

// Sample statuses. current_status is always derived, never set by a caller.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusDelivered  = "DELIVERED"
	StatusCompleted  = "COMPLETED"
	StatusDropped    = "DROPPED"
)

var cancelValues = map[string]bool{
	"cancel":    true,
	"canceled":  true,
	"cancelled": true,
	"dropped":   true,
}

// CancelLike reports whether a value written to a status field is an absorbing
// cancel, moving the sample to DROPPED from any stage.
func CancelLike(value string) bool {
	return cancelValues[strings.ToLower(strings.TrimSpace(value))]
}

// statusField reports whether a payload key carries business status text.
// Cancel detection only inspects these keys.
func statusField(key string) bool {
	return key == "stage_status" || strings.HasSuffix(key, "_status")
}

// PayloadCancels scans a (already whitelisted) stage payload for a cancel-like
// value on any status field.
func PayloadCancels(payload map[string]interface{}) bool {
	for k, v := range payload {
		if !statusField(k) {
			continue
		}
		if s, ok := v.(string); ok && CancelLike(s) {
			return true
		}
	}
	return false
}

// DeriveStatus computes current_status from the stage the sample sits at after
// the write. touched distinguishes a sample that has had any stage activity
// from a freshly created one.
func DeriveStatus(stage Stage, touched, cancel bool) string {
	if cancel {
		return StatusDropped
	}
	switch stage {
	case StageShipmentToBrand:
		return StatusDelivered
	case StageDeliveredConfirmation:
		return StatusCompleted
	}
	if touched {
		return StatusProcessing
	}
	return StatusPending
}

// DeliveryEvidence reports whether the payload (or the stored shipment record
// it merges into) carries a non-empty dispatch date. Confirming delivery
// without one is a precondition failure.
func DeliveryEvidence(fields map[string]interface{}) bool {
	v, ok := fields["sent_date"]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}
