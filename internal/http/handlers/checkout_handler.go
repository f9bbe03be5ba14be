package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/http/middleware"
	"github.com/tbourn/go-pos-client/internal/repo"
)

// HeaderIdempotentReplay marks a response served from a stored outcome.
const HeaderIdempotentReplay = "X-Idempotent-Replay"

// PostCheckout godoc
// @ID          checkout
// @Summary     Ring up a sale
// @Description Submits the sale when online (201). When offline, or when the server cannot be reached, the sale is queued for replay and 202 is returned with its local id. With an Idempotency-Key the first successful outcome is replayed for retries.
// @Tags        Checkout
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Client key, one per cart"  example(cart-7f3a)
// @Param       body             body    domain.SaleRequest  true  "Sale"
// @Success     201  {object}  services.CheckoutResult  "Recorded by the server"
// @Success     202  {object}  services.CheckoutResult  "Queued offline"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse  "Rejected by the server"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /checkout [post]
func (h *Handlers) PostCheckout(c *gin.Context) {
	ctx := c.Request.Context()
	key, hasKey := middleware.GetIdempotencyKey(c)
	useKey := hasKey && h.d.Idempotency != nil

	if useKey && h.replay(c, key) {
		return
	}

	var req domain.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid sale body")
		return
	}

	res, err := h.d.Checkout.Checkout(ctx, req)
	if err != nil {
		failErr(c, err)
		return
	}

	status := http.StatusCreated
	if res.Queued {
		status = http.StatusAccepted
	}
	body, err := json.Marshal(res)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "encode result")
		return
	}

	if useKey {
		rec := domain.Idempotency{Key: key, Status: status, Body: string(body), LocalID: res.LocalID}
		if res.Sale != nil {
			rec.SaleID = res.Sale.ID
		}
		if _, err := h.d.Idempotency.Create(ctx, rec, h.d.IdempotencyTTL); err != nil {
			// The sale itself went through; only replay protection is lost.
			middleware.LoggerFrom(c).Warn().Err(err).Str("key", key).Msg("idempotency record not stored")
		}
	}

	c.Data(status, "application/json; charset=utf-8", body)
}

// replay writes a stored outcome for key and reports whether it did.
func (h *Handlers) replay(c *gin.Context, key string) bool {
	rec, err := h.d.Idempotency.Get(c.Request.Context(), key, time.Now().UTC())
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			middleware.LoggerFrom(c).Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
		}
		return false
	}
	c.Header(HeaderIdempotentReplay, "true")
	c.Data(rec.Status, "application/json; charset=utf-8", []byte(rec.Body))
	return true
}
