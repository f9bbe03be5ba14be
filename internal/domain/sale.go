package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleItem is one line of a checkout.
type SaleItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// LineTotal returns quantity * unit price.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SaleRequest is the full checkout body as sent to POST /sales. The same
// value is used for a live submission and for a deferred replay from the
// offline queue.
type SaleRequest struct {
	Items         []SaleItem      `json:"items"`
	PaymentMethod string          `json:"paymentMethod"`
	CustomerName  string          `json:"customerName,omitempty"`
	Discount      decimal.Decimal `json:"discount"`
	Notes         string          `json:"notes,omitempty"`
}

// Total returns the sum of line totals minus the discount, floored at zero.
func (r SaleRequest) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.LineTotal())
	}
	sum = sum.Sub(r.Discount)
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}

// Sale is a sale as recorded by the server.
type Sale struct {
	ID            string          `json:"id"`
	Items         []SaleItem      `json:"items,omitempty"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	CustomerName  string          `json:"customerName,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SaleFilters selects a window of the sales list. The zero value means
// "server defaults".
type SaleFilters struct {
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Page          int    `json:"page,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// PaymentTotal aggregates revenue for one payment method.
type PaymentTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}
