package handler

import (
	"errors"

	"go-pos-ws/internal/cart"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CartHandler melayani keranjang sesi kiosk/self-order. Cek stok di sini
// cuma feedback cepat untuk UI; penentu akhir tetap transaksi SubmitOrder.
type CartHandler struct {
	carts        *cart.Store
	productRepo  repository.ProductRepository
	orderService service.OrderService
}

func NewCartHandler(carts *cart.Store, pRepo repository.ProductRepository, oService service.OrderService) *CartHandler {
	return &CartHandler{
		carts:        carts,
		productRepo:  pRepo,
		orderService: oService,
	}
}

func cartErrorStatus(err error) int {
	if errors.Is(err, cart.ErrLineNotFound) {
		return fiber.StatusNotFound
	}
	return fiber.StatusConflict // sold out / stok kurang
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
}

type adjustItemRequest struct {
	Delta int `json:"delta"`
}

// AddItem menambah satu produk ke keranjang sesi
// POST /api/v1/carts/:session/items
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.productRepo.FindByID(req.ProductID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Product not found"})
	}

	sessionCart := h.carts.Get(c.Params("session"))
	if err := sessionCart.Add(*product); err != nil {
		return c.Status(cartErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(201).JSON(fiber.Map{"items": sessionCart.Lines(), "total": sessionCart.Total()})
}

// AdjustItem menggeser qty satu baris (+1/-1)
// PATCH /api/v1/carts/:session/items/:product
func (h *CartHandler) AdjustItem(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("product"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req adjustItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	product, err := h.productRepo.FindByID(productID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Product not found"})
	}

	sessionCart := h.carts.Get(c.Params("session"))
	if err := sessionCart.AdjustQuantity(productID, req.Delta, product.Stock); err != nil {
		return c.Status(cartErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"items": sessionCart.Lines(), "total": sessionCart.Total()})
}

// RemoveItem membuang satu baris
// DELETE /api/v1/carts/:session/items/:product
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("product"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	sessionCart := h.carts.Get(c.Params("session"))
	sessionCart.Remove(productID)

	return c.JSON(fiber.Map{"items": sessionCart.Lines(), "total": sessionCart.Total()})
}

// GetCart mengembalikan isi keranjang + total
// GET /api/v1/carts/:session
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	sessionCart := h.carts.Get(c.Params("session"))
	return c.JSON(fiber.Map{"items": sessionCart.Lines(), "total": sessionCart.Total()})
}

type checkoutRequest struct {
	CustomerName    string `json:"customer_name"`
	Note            string `json:"note"`
	OrderType       string `json:"order_type"`
	DeliveryAddress string `json:"delivery_address"`
	ShippingCost    int64  `json:"shipping_cost"`
}

// Checkout submits the session cart as a self-order and drops the cart on success
// POST /api/v1/carts/:session/checkout
func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	sessionID := c.Params("session")
	sessionCart := h.carts.Get(sessionID)

	lines := sessionCart.Lines()
	items := make([]service.OrderLine, len(lines))
	for i, line := range lines {
		items[i] = service.OrderLine{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	submitReq := &service.SubmitOrderRequest{
		Items:           items,
		CustomerName:    req.CustomerName,
		Note:            req.Note,
		PaymentMethod:   model.PayPendingCashier,
		OrderType:       model.OrderOnline,
		DeliveryAddress: req.DeliveryAddress,
		ShippingCost:    req.ShippingCost,
		QueuePrefix:     model.PrefixSelfOrder,
	}
	if req.OrderType != "" {
		submitReq.OrderType = model.OrderType(req.OrderType)
	}

	transaction, err := h.orderService.SubmitOrder(submitReq)
	if err != nil {
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	// Keranjang dibuang hanya setelah commit sukses
	h.carts.Drop(sessionID)

	return c.Status(201).JSON(fiber.Map{"message": "Order submitted", "data": transaction})
}
