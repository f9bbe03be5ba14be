package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/search"
	"github.com/tbourn/go-pos-client/internal/services"
	"github.com/tbourn/go-pos-client/internal/utils"
)

const maxSalesPageSize = 100

// refreshFlag parses ?refresh=; it aborts the request when it is malformed.
func refreshFlag(c *gin.Context) (bool, bool) {
	v, err := utils.ParseFlag(c.Query("refresh"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "refresh must be a boolean")
		return false, false
	}
	return v, true
}

// writeState answers with the state, or with an error when there is
// nothing to show at all.
func writeState[T any](c *gin.Context, s services.State[T]) {
	if s.Data == nil && s.Err != nil {
		failErr(c, s.Err)
		return
	}
	ok(c, http.StatusOK, toStateResponse(s))
}

// GetDashboard godoc
// @ID          getDashboard
// @Summary     Dashboard for a period
// @Description Returns the dashboard state. Cached data is returned at once (fromCache) and revalidated before the response unless the server is unreachable, in which case error is set and data is kept.
// @Tags        Dashboard
// @Produce     json
// @Param       period   query  string  false  "Reporting period"  default(7days)
// @Param       refresh  query  bool    false  "Skip the cache"
// @Success     200  {object}  handlers.StateResponse[domain.Dashboard]
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     503  {object}  handlers.ErrorResponse  "Unreachable and nothing cached"
// @Router      /dashboard [get]
func (h *Handlers) GetDashboard(c *gin.Context) {
	force, valid := refreshFlag(c)
	if !valid {
		return
	}
	period := strings.TrimSpace(c.Query("period"))
	writeState(c, h.d.Dashboard.Load(c.Request.Context(), period, force))
}

// GetMenu godoc
// @ID          getMenu
// @Summary     Menu items and categories
// @Tags        Menu
// @Produce     json
// @Param       category  query  string  false  "Category id"
// @Param       q         query  string  false  "Item name search; prefixes match (\"mas ch\" finds Masala Chai)"
// @Param       refresh   query  bool    false  "Skip the cache"
// @Success     200  {object}  handlers.StateResponse[domain.Menu]
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /menu [get]
func (h *Handlers) GetMenu(c *gin.Context) {
	force, valid := refreshFlag(c)
	if !valid {
		return
	}
	f := services.MenuFilter{CategoryID: strings.TrimSpace(c.Query("category"))}
	st := h.d.Menu.Load(c.Request.Context(), f, force)
	if q := strings.TrimSpace(c.Query("q")); q != "" && st.Data != nil {
		st.Data = searchMenu(*st.Data, q)
	}
	writeState(c, st)
}

// searchMenu narrows m to the items matching q, best match first. The cached
// menu itself is never modified.
func searchMenu(m domain.Menu, q string) *domain.Menu {
	results := search.NewIndex(m.Items).TopK(q, search.DefaultLimit)
	items := make([]domain.MenuItem, len(results))
	for i, r := range results {
		items[i] = r.Item
	}
	m.Items = items
	return &m
}

// GetSales godoc
// @ID          getSales
// @Summary     Sales list with payment totals
// @Tags        Sales
// @Produce     json
// @Param       from            query  string  false  "Start date (YYYY-MM-DD)"
// @Param       to              query  string  false  "End date (YYYY-MM-DD)"
// @Param       payment_method  query  string  false  "cash, card, upi…"
// @Param       page            query  int     false  "Page number"  minimum(1)  default(1)
// @Param       limit           query  int     false  "Page size"    minimum(1)  maximum(100)  default(20)
// @Param       refresh         query  bool    false  "Skip the cache"
// @Success     200  {object}  handlers.StateResponse[domain.SalesView]
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /sales [get]
func (h *Handlers) GetSales(c *gin.Context) {
	force, valid := refreshFlag(c)
	if !valid {
		return
	}
	f := domain.SaleFilters{
		From:          strings.TrimSpace(c.Query("from")),
		To:            strings.TrimSpace(c.Query("to")),
		PaymentMethod: strings.ToLower(strings.TrimSpace(c.Query("payment_method"))),
		Page:          utils.Clamp(utils.AtoiDefault(c.Query("page"), 1), 1, 1<<20),
		Limit:         utils.Clamp(utils.AtoiDefault(c.Query("limit"), services.DefaultSalesPageSize), 1, maxSalesPageSize),
	}
	writeState(c, h.d.Sales.Load(c.Request.Context(), f, force))
}
