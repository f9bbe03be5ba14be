// Package handlers defines the error codes of the facade's error envelope.
//
// Clients branch on code, never on message. Example:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "sale_rejected",
//	  "message": "Insufficient stock for Masala Chai"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Point-of-sale specific:
	ErrCodeInvalidSale   = "invalid_sale"  // failed local validation
	ErrCodeSaleRejected  = "sale_rejected" // server refused the sale
	ErrCodeUnavailable   = "unavailable"   // server unreachable and no cached data
	ErrCodeQueueFailed   = "queue_failed"  // offline queue could not persist
	ErrCodeSyncBusy      = "sync_in_progress"
	ErrCodeUnknownChange = "unknown_mutation"
)
