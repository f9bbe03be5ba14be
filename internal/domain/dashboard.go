package domain

import "github.com/shopspring/decimal"

// DashboardSummary holds headline figures for a period.
type DashboardSummary struct {
	TotalSales    decimal.Decimal `json:"totalSales"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetProfit     decimal.Decimal `json:"netProfit"`
	SalesCount    int             `json:"salesCount"`
}

// TrendPoint is one bucket of the sales/expenses trend chart.
type TrendPoint struct {
	Date     string          `json:"date"`
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
}

// TopProduct is a best seller for a period.
type TopProduct struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// LowStockItem is a product at or below its reorder threshold.
type LowStockItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// Expense is a recorded business expense.
type Expense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date"`
}

// Dashboard is the composite read model of the dashboard screen.
type Dashboard struct {
	Summary     *DashboardSummary `json:"summary,omitempty"`
	Trend       []TrendPoint      `json:"trend,omitempty"`
	TopProducts []TopProduct      `json:"topProducts,omitempty"`
	LowStock    []LowStockItem    `json:"lowStock,omitempty"`
	Expenses    []Expense         `json:"expenses,omitempty"`
}
