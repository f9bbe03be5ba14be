package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSaleRequest_Total(t *testing.T) {
	req := SaleRequest{
		Items: []SaleItem{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(100)},
			{ProductID: "p2", Quantity: 1, UnitPrice: decimal.RequireFromString("150.50")},
		},
		Discount: decimal.RequireFromString("50.50"),
	}
	if got := req.Total(); !got.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("Total = %s; want 300", got)
	}
}

func TestSaleRequest_TotalFloorsAtZero(t *testing.T) {
	req := SaleRequest{
		Items:    []SaleItem{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}},
		Discount: decimal.NewFromInt(25),
	}
	if got := req.Total(); !got.IsZero() {
		t.Fatalf("Total = %s; want 0", got)
	}
}

func TestQueuedTransaction_JSONFieldNames(t *testing.T) {
	b, err := json.Marshal(QueuedTransaction{LocalID: "offline_1_ab", RetryCount: 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"localId", "payload", "enqueuedAt", "retryCount"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("missing json field %q in %s", k, b)
		}
	}
}

func TestTableNames(t *testing.T) {
	if (KVEntry{}).TableName() != "kv_entries" {
		t.Fatalf("KVEntry table = %q", (KVEntry{}).TableName())
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency table = %q", (Idempotency{}).TableName())
	}
}
