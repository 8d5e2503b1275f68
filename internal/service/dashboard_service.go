package service

import (
	"time"

	"go-pos-ws/internal/repository"
)

// LowStockThreshold mengikuti dashboard lama: stok < 5 dianggap menipis
const LowStockThreshold = 5

// DashboardStats adalah agregat read-only untuk halaman admin.
// Tidak punya invariant sendiri — semuanya turunan dari products + transactions.
type DashboardStats struct {
	TodayRevenue      int64                       `json:"today_revenue"`
	TodayTransactions int64                       `json:"today_transactions"`
	PendingOrders     int64                       `json:"pending_orders"`
	LowStockCount     int64                       `json:"low_stock_count"`
	TopProducts       []repository.TopProductData `json:"top_products"`
}

type DashboardService interface {
	GetStats() (*DashboardStats, error)
	GetSalesSummary(days int) (*repository.SalesSummary, error)
}

type dashboardService struct {
	txRepo      repository.TransactionRepository
	productRepo repository.ProductRepository
}

func NewDashboardService(tRepo repository.TransactionRepository, pRepo repository.ProductRepository) DashboardService {
	return &dashboardService{txRepo: tRepo, productRepo: pRepo}
}

func (s *dashboardService) GetStats() (*DashboardStats, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	summary, err := s.txRepo.GetSalesSummary(startOfDay, now)
	if err != nil {
		return nil, err
	}

	pending, err := s.txRepo.CountPending()
	if err != nil {
		return nil, err
	}

	lowStock, err := s.productRepo.CountLowStock(LowStockThreshold)
	if err != nil {
		return nil, err
	}

	topProducts, err := s.txRepo.GetTopProducts(startOfDay, now, 5)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TodayRevenue:      summary.Revenue,
		TodayTransactions: summary.Transactions,
		PendingOrders:     pending,
		LowStockCount:     lowStock,
		TopProducts:       topProducts,
	}, nil
}

func (s *dashboardService) GetSalesSummary(days int) (*repository.SalesSummary, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)
	return s.txRepo.GetSalesSummary(startDate, endDate)
}
