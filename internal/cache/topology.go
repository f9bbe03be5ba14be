package cache

import "context"

// Logical cache keys. Parameterized variants are derived with Key.
const (
	DashboardSummary     = "dashboard_summary"
	DashboardTrend       = "dashboard_trend"
	DashboardTopProducts = "dashboard_top_products"
	DashboardExpenses    = "dashboard_expenses"
	LowStockAlerts       = "low_stock_alerts"
	MenuItems            = "menu_items"
	MenuCategories       = "menu_categories"
	ProductsList         = "products_list"
	SalesList            = "sales_list"
	PaymentTotals        = "payment_totals"
	ExpensesList         = "expenses_list"
)

// Group names a class of mutation and, through Patterns, the cache keys it
// makes untrustworthy.
type Group string

// Invalidation groups.
const (
	GroupSales      Group = "SALES"
	GroupStock      Group = "STOCK"
	GroupProducts   Group = "PRODUCTS"
	GroupExpenses   Group = "EXPENSES"
	GroupCategories Group = "CATEGORIES"
)

// groups is the single table of "what depends on what". A sale moves stock
// and revenue at once, so it reaches into the dashboard, sales, and catalog
// domains.
var groups = map[Group][]string{
	GroupSales: {
		DashboardSummary,
		DashboardTrend,
		DashboardTopProducts,
		SalesList,
		PaymentTotals,
		MenuItems,
		ProductsList,
		LowStockAlerts,
	},
	GroupStock: {
		MenuItems,
		ProductsList,
		LowStockAlerts,
		DashboardSummary,
	},
	GroupProducts: {
		MenuItems,
		ProductsList,
		LowStockAlerts,
		DashboardTopProducts,
	},
	GroupExpenses: {
		DashboardSummary,
		DashboardTrend,
		DashboardExpenses,
		ExpensesList,
	},
	GroupCategories: {
		MenuCategories,
		MenuItems,
		ProductsList,
	},
}

// Patterns returns the key patterns of g. The slice is a copy.
func Patterns(g Group) []string {
	p := groups[g]
	out := make([]string, len(p))
	copy(out, p)
	return out
}

// Groups lists every invalidation group.
func Groups() []Group {
	return []Group{GroupSales, GroupStock, GroupProducts, GroupExpenses, GroupCategories}
}

// InvalidateGroup drops every key of group g. See Cache.Invalidate.
func (c *Cache) InvalidateGroup(ctx context.Context, g Group) int {
	return c.Invalidate(ctx, groups[g]...)
}
