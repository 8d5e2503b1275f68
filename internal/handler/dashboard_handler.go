package handler

import (
	"strconv"

	"go-pos-ws/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetStats returns overview statistics (revenue, queue, top sellers, low stock)
// GET /api/v1/dashboard/stats
func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}

	return c.JSON(stats)
}

// GetSalesSummary returns revenue/transaction count for the last N days
// Query params: days (default 7)
// GET /api/v1/dashboard/sales
func (h *DashboardHandler) GetSalesSummary(c *fiber.Ctx) error {
	daysStr := c.Query("days", "7")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days <= 0 {
		days = 7
	}

	summary, err := h.service.GetSalesSummary(days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch sales summary"})
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   summary,
	})
}
