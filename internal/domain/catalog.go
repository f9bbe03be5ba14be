package domain

import "github.com/shopspring/decimal"

// Category groups menu items.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MenuItem is a sellable product as shown on the point-of-sale menu.
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"categoryId,omitempty"`
	IsAvailable bool            `json:"isAvailable"`
}

// Menu is the composite read model of the catalog screen.
type Menu struct {
	Items      []MenuItem `json:"items,omitempty"`
	Categories []Category `json:"categories,omitempty"`
}

// SalesView is the composite read model of the sales screen.
type SalesView struct {
	Sales         []Sale         `json:"sales,omitempty"`
	Total         int            `json:"total"`
	PaymentTotals []PaymentTotal `json:"paymentTotals,omitempty"`
}
