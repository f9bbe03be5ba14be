package domain

import "time"

// QueuedTransaction is a checkout that could not reach the server and waits
// in the offline queue. LocalID is generated on the device and is never the
// server-assigned sale id.
type QueuedTransaction struct {
	LocalID    string      `json:"localId"`
	Payload    SaleRequest `json:"payload"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`
	RetryCount int         `json:"retryCount"`
}

// SyncResult summarizes one drain pass of the offline queue.
type SyncResult struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// Page is the normalized shape of list endpoints that answer either with a
// bare array or with {items, total}.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
