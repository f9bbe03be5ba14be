package domain

import "time"

// Idempotency records the outcome of a checkout submitted with an
// Idempotency-Key so that a retried request (double tap, flaky loopback)
// returns the original result instead of charging twice.
//
// Exactly one of SaleID or LocalID is set: SaleID when the sale reached the
// server, LocalID when it was parked in the offline queue.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idempotency_key"`
	SaleID    string    `gorm:"type:TEXT"`
	LocalID   string    `gorm:"type:TEXT"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	Body      string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
