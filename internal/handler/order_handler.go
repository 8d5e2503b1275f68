package handler

import (
	"errors"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/service"
	"go-pos-ws/pkg/qris"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

// Helper untuk ambil User Info dari JWT Context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return ""
	}
	return userID.(string)
}

// orderErrorStatus memetakan error service ke HTTP status
func orderErrorStatus(err error) int {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrTransactionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadRequest
	}
}

// SubmitOrder handles cashier checkout
// POST /api/v1/orders
func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req service.SubmitOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	// Order dari kasir: prefix A, default dine in
	req.QueuePrefix = model.PrefixCashier
	if req.OrderType == "" {
		req.OrderType = model.OrderDineIn
	}
	if cashierID := getUserID(c); cashierID != "" {
		req.CashierID = &cashierID
	}

	transaction, err := h.service.SubmitOrder(&req)
	if err != nil {
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	resp := fiber.Map{"message": "Order submitted", "data": transaction}
	if transaction.PaymentMethod == model.PayQRIS {
		resp["qris_image"] = qris.ImageURL(transaction.QueueCode, transaction.Total)
	}
	return c.Status(201).JSON(resp)
}

// SubmitSelfOrder handles kiosk / QR-link orders (no auth)
// POST /api/v1/orders/self
func (h *OrderHandler) SubmitSelfOrder(c *fiber.Ctx) error {
	var req service.SubmitOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	// Self-order: prefix Q, bayar nanti di kasir
	req.QueuePrefix = model.PrefixSelfOrder
	req.PaymentMethod = model.PayPendingCashier
	req.CashierID = nil
	if req.OrderType == "" {
		req.OrderType = model.OrderOnline
	}

	transaction, err := h.service.SubmitOrder(&req)
	if err != nil {
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(201).JSON(fiber.Map{"message": "Order submitted", "data": transaction})
}

// MarkCompleted flips a pending order to completed (fulfillment action)
// PATCH /api/v1/orders/:id/complete
func (h *OrderHandler) MarkCompleted(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	transaction, err := h.service.MarkCompleted(id)
	if err != nil {
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Order completed", "data": transaction})
}

// GetQueue returns pending orders, newest first
// GET /api/v1/orders/queue
func (h *OrderHandler) GetQueue(c *fiber.Ctx) error {
	transactions, err := h.service.GetQueue()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(transactions)
}

// GetHistory returns all transactions
// GET /api/v1/orders
func (h *OrderHandler) GetHistory(c *fiber.Ctx) error {
	transactions, err := h.service.GetHistory()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(transactions)
}

// GetTransaction returns one transaction by ID
// GET /api/v1/orders/:id
func (h *OrderHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	transaction, err := h.service.GetTransactionByID(id)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Transaction not found"})
	}
	return c.JSON(transaction)
}
