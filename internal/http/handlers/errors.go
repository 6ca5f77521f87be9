// Package handlers defines HTTP-layer error codes used across all API
// endpoints. These constants give clients a stable, machine-readable error
// taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - The retry contract is part of the taxonomy: validation_failed and
//     geofence_rejected are definitive (never retry the same payload);
//     transient_storage means "retry later" and is exactly the case the
//     client-side submission queue already handles.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeGeofenceRejected = "geofence_rejected"
	ErrCodeTransientStorage = "transient_storage"
	ErrCodeStatusUnknown    = "status_never_computed"
)
