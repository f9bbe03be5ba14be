package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetQueue godoc
// @ID       getQueue
// @Summary  Pending offline sales
// @Tags     Sync
// @Produce  json
// @Success  200  {object}  handlers.QueueResponse
// @Router   /queue [get]
func (h *Handlers) GetQueue(c *gin.Context) {
	items := h.d.Queue.List(c.Request.Context())
	ok(c, http.StatusOK, QueueResponse{
		Count:    len(items),
		Draining: h.d.Sync.Draining(),
		Items:    items,
	})
}

// PostSync godoc
// @ID          syncQueue
// @Summary     Replay the offline queue now
// @Description Runs one drain pass in FIFO order. A pass already in progress yields 409; an offline device or an empty queue yields zero counts.
// @Tags        Sync
// @Produce     json
// @Success     200  {object}  handlers.SyncResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /sync [post]
func (h *Handlers) PostSync(c *gin.Context) {
	ctx := c.Request.Context()
	res, ran := h.d.Sync.TryDrain(ctx)
	if !ran {
		fail(c, http.StatusConflict, ErrCodeSyncBusy, "sync already in progress")
		return
	}
	ok(c, http.StatusOK, SyncResponse{SyncResult: res, Pending: len(h.d.Queue.List(ctx))})
}

// GetConnectivity godoc
// @ID       getConnectivity
// @Summary  Current connectivity
// @Tags     Sync
// @Produce  json
// @Success  200  {object}  handlers.ConnectivityResponse
// @Router   /connectivity [get]
func (h *Handlers) GetConnectivity(c *gin.Context) {
	ok(c, http.StatusOK, ConnectivityResponse{Online: h.d.Connectivity.IsOnline()})
}

// PostConnectivity godoc
// @ID          setConnectivity
// @Summary     Push a connectivity change
// @Description Used by the platform bridge. Going online with a non-empty queue starts a background drain.
// @Tags        Sync
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.ConnectivityRequest  true  "New state"
// @Success     200  {object}  handlers.ConnectivityResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /connectivity [post]
func (h *Handlers) PostConnectivity(c *gin.Context) {
	var req ConnectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `body must be {"online": true|false}`)
		return
	}
	h.d.Connectivity.Set(*req.Online)
	ok(c, http.StatusOK, ConnectivityResponse{Online: h.d.Connectivity.IsOnline()})
}

// PostMutation godoc
// @ID          applyMutation
// @Summary     Report a data change made elsewhere
// @Description Invalidates the cache group of kind and reloads the affected screens. kind is one of sale, stock, product, expense, category, organization.
// @Tags        Cache
// @Param       kind  path  string  true  "Mutation kind"
// @Success     204
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /mutations/{kind} [post]
func (h *Handlers) PostMutation(c *gin.Context) {
	kind := strings.ToLower(strings.TrimSpace(c.Param("kind")))
	if kind == "organization" {
		h.d.Mutations.OnOrganizationChanged(c.Request.Context())
		noContent(c)
		return
	}
	if err := h.d.Mutations.Apply(c.Request.Context(), kind); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// DeleteCache godoc
// @ID       clearCache
// @Summary  Drop every cached read model
// @Tags     Cache
// @Success  204
// @Router   /cache [delete]
func (h *Handlers) DeleteCache(c *gin.Context) {
	h.d.Cache.ClearAll(c.Request.Context())
	noContent(c)
}
