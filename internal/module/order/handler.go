package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/omnistore/server/internal/shared/middleware"
	"github.com/omnistore/server/internal/shared/response"
	"github.com/shopspring/decimal"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	service *Service
}

// NewHandler creates a new order handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the order routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
	}
}

// CreateOrderRequest is the request body for order creation.
type CreateOrderRequest struct {
	Total    decimal.Decimal `json:"total" binding:"required"`
	Currency string          `json:"currency"`
}

// CreateOrder creates a pending order.
func (h *Handler) CreateOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = "usd"
	}

	order, err := h.service.CreateOrder(c.Request.Context(), userID, req.Total, req.Currency)
	if err != nil {
		response.HandleErrorWithDefault(c, err, nil)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder returns an order by ID.
func (h *Handler) GetOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid order ID")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
			{Err: ErrOrderNotFound, Status: http.StatusNotFound},
		})
		return
	}

	if order.UserID != userID {
		response.Error(c, http.StatusForbidden, "forbidden")
		return
	}

	c.JSON(http.StatusOK, order)
}
