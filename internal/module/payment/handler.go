package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/omnistore/server/internal/module/payment/provider"
	"github.com/omnistore/server/internal/shared/middleware"
	"github.com/omnistore/server/internal/shared/response"
)

// Handler handles HTTP requests for payments.
type Handler struct {
	service *Service
	orders  OrderAccessor
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service, orders OrderAccessor) *Handler {
	return &Handler{service: service, orders: orders}
}

// RegisterRoutes registers the payment routes on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/mock/:orderId", h.MockPay)
		payments.POST("/stripe/intent/:orderId", h.CreateIntent)
		payments.POST("/stripe/confirm/:intentId", h.Confirm)
		payments.GET("/:id", h.GetPayment)
	}
	r.GET("/orders/:id/payments", h.ListOrderPayments)
}

var serviceErrorMappings = []response.ErrorMapping{
	{Err: ErrOrderNotFound, Status: http.StatusNotFound},
	{Err: ErrPaymentNotFound, Status: http.StatusNotFound},
	{Err: provider.ErrIntentNotFound, Status: http.StatusNotFound},
	{Err: ErrPaymentInProgress, Status: http.StatusConflict},
	{Err: provider.ErrGateway, Status: http.StatusBadGateway, Message: "payment gateway unavailable"},
}

// MockPay processes a payment through the mock processor.
func (h *Handler) MockPay(c *gin.Context) {
	orderID, ok := h.authorizeOrder(c)
	if !ok {
		return
	}

	payment, err := h.service.MockPay(c.Request.Context(), orderID)
	if err != nil {
		response.HandleErrorWithDefault(c, err, serviceErrorMappings)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// CreateIntent creates or returns the stripe payment intent for an order.
func (h *Handler) CreateIntent(c *gin.Context) {
	orderID, ok := h.authorizeOrder(c)
	if !ok {
		return
	}

	payment, err := h.service.CreateIntent(c.Request.Context(), orderID)
	if err != nil {
		response.HandleErrorWithDefault(c, err, serviceErrorMappings)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// Confirm reconciles a payment with the live processor state.
func (h *Handler) Confirm(c *gin.Context) {
	intentID := c.Param("intentId")
	if intentID == "" {
		response.BadRequest(c, "missing intent ID")
		return
	}

	payment, err := h.service.Confirm(c.Request.Context(), intentID)
	if err != nil {
		response.HandleErrorWithDefault(c, err, serviceErrorMappings)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetPayment returns a payment by ID.
func (h *Handler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment ID")
		return
	}

	payment, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.HandleErrorWithDefault(c, err, serviceErrorMappings)
		return
	}

	if ok := h.checkOrderOwnership(c, payment.OrderID); !ok {
		return
	}
	c.JSON(http.StatusOK, payment)
}

// ListOrderPayments returns the payment audit trail of an order.
func (h *Handler) ListOrderPayments(c *gin.Context) {
	orderID, ok := h.authorizeOrder(c)
	if !ok {
		return
	}

	payments, err := h.service.ListPaymentsByOrder(c.Request.Context(), orderID)
	if err != nil {
		response.HandleErrorWithDefault(c, err, serviceErrorMappings)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// authorizeOrder parses the order id path param and verifies the caller owns
// the order.
func (h *Handler) authorizeOrder(c *gin.Context) (uuid.UUID, bool) {
	param := c.Param("orderId")
	if param == "" {
		param = c.Param("id")
	}
	orderID, err := uuid.Parse(param)
	if err != nil {
		response.BadRequest(c, "invalid order ID")
		return uuid.Nil, false
	}
	if ok := h.checkOrderOwnership(c, orderID); !ok {
		return uuid.Nil, false
	}
	return orderID, true
}

func (h *Handler) checkOrderOwnership(c *gin.Context, orderID uuid.UUID) bool {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return false
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.HandleErrorWithDefault(c, err, serviceErrorMappings)
		return false
	}
	if order.UserID != userID {
		response.Error(c, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}
