package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-backend/internal/infra/hyp"
	"shop-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

type Handler struct {
	service   *services.CheckoutService
	rdb       *redis.Client
	devSecret string
}

func NewHandler(s *services.CheckoutService, rdb *redis.Client, devSecret string) *Handler {
	return &Handler{service: s, rdb: rdb, devSecret: devSecret}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/checkout", h.Checkout)
	r.GET("/confirm-payment", h.ConfirmPayment)
	r.GET("/status/:orderId", h.Status)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/dev/mark-paid/:orderId", h.DevMarkPaid)
}

func (h *Handler) Checkout(c *gin.Context) {
	var body CheckoutRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), &services.CheckoutRequest{
		CustomerDetails: body.CustomerDetails,
		Cart:            body.Cart,
		Source:          body.Source,
		Section:         body.Section,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CheckoutResponse{
		OK:         true,
		PaymentURL: result.PaymentURL,
		OrderID:    result.OrderID,
		Totals:     result.Totals,
		RecommendedRedirects: map[string]string{
			"successUrl": result.Redirects.Success,
			"failureUrl": result.Redirects.Failure,
			"cancelUrl":  result.Redirects.Cancel,
		},
	})
}

// ConfirmPayment receives the gateway callback. A declined payment is still
// a 200: the system worked, the card did not.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	params := map[string]string{}
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	result, err := h.service.Confirm(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateStatusCache(result.OrderID)

	c.JSON(http.StatusOK, ConfirmResponse{
		OK:      true,
		OrderID: result.OrderID,
		Success: result.Success,
		Status:  result.Status.String(),
	})
}

func (h *Handler) Status(c *gin.Context) {
	orderID := c.Param("orderId")
	cacheKey := "order:status:" + orderID

	ctx := context.Background()
	if h.rdb != nil {
		if b, err := h.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached StatusResponse
			if json.Unmarshal([]byte(b), &cached) == nil {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
	}

	order, err := h.service.Status(orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := StatusResponse{
		OK:                true,
		OrderID:           orderID,
		Status:            order.Status.String(),
		AdminMailSent:     order.AdminMailSent,
		CustomerMailSent:  order.CustomerMailSent,
		AdminMailError:    order.AdminMailError,
		CustomerMailError: order.CustomerMailError,
	}

	if h.rdb != nil {
		if data, err := json.Marshal(resp); err == nil {
			h.rdb.Set(ctx, cacheKey, data, 10*time.Second)
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := h.service.ListOrders(page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"page":  page,
		"limit": limit,
		"total": total,
		"items": items,
	})
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid order id"})
		return
	}

	order, err := h.service.GetOrder(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

// DevMarkPaid exists so the mail flow can be exercised without a live
// gateway round-trip. The shared secret must match exactly.
func (h *Handler) DevMarkPaid(c *gin.Context) {
	if h.devSecret == "" || c.GetHeader("X-Dev-Secret") != h.devSecret {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "unauthorized"})
		return
	}

	orderID := c.Param("orderId")
	result, err := h.service.MarkPaid(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateStatusCache(orderID)

	c.JSON(http.StatusOK, ConfirmResponse{
		OK:      true,
		OrderID: result.OrderID,
		Success: result.Success,
		Status:  result.Status.String(),
	})
}

func (h *Handler) invalidateStatusCache(orderID string) {
	if h.rdb != nil {
		h.rdb.Del(context.Background(), "order:status:"+orderID)
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var gErr *hyp.GatewayError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: vErr.Message})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "order not found"})
	case errors.As(err, &gErr):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "payment gateway error: " + err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: err.Error()})
	}
}
