package repository

import (
	"time"

	"go-pos-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	FindQueue() ([]model.Transaction, error)
	FindAll() ([]model.Transaction, error)
	FindByID(id uuid.UUID) (*model.Transaction, error)
	GetSalesSummary(startDate, endDate time.Time) (*SalesSummary, error)
	GetTopProducts(startDate, endDate time.Time, limit int) ([]TopProductData, error)
	CountPending() (int64, error)

	// Tx-scoped: dipakai di dalam transaksi commit / fulfillment
	Create(tx *gorm.DB, transaction *model.Transaction) error
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error)
	UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus) error
}

// SalesSummary untuk kartu overview dashboard
type SalesSummary struct {
	Revenue      int64 `json:"revenue"`
	Transactions int64 `json:"transactions"`
}

// TopProductData untuk daftar produk terlaris
type TopProductData struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

// FindQueue mengambil order yang masih pending, terbaru dulu
func (r *transactionRepo) FindQueue() ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.Where("status = ?", model.StatusPending).
		Order("created_at DESC").
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindAll() ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.Order("created_at DESC").Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindByID(id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.First(&transaction, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *transactionRepo) GetSalesSummary(startDate, endDate time.Time) (*SalesSummary, error) {
	var summary SalesSummary

	err := r.db.Model(&model.Transaction{}).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Select("COALESCE(SUM(total), 0) as revenue, COUNT(*) as transactions").
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// GetTopProducts membongkar kolom items (JSONB) dan menjumlah qty per nama produk
func (r *transactionRepo) GetTopProducts(startDate, endDate time.Time, limit int) ([]TopProductData, error) {
	var results []TopProductData

	rows, err := r.db.Raw(`
		SELECT item->>'name' AS name,
		       COALESCE(SUM((item->>'quantity')::int), 0) AS quantity
		FROM transactions, jsonb_array_elements(items) AS item
		WHERE created_at BETWEEN ? AND ? AND deleted_at IS NULL
		GROUP BY item->>'name'
		ORDER BY quantity DESC
		LIMIT ?
	`, startDate, endDate, limit).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data TopProductData
		if err := rows.Scan(&data.Name, &data.Quantity); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *transactionRepo) CountPending() (int64, error) {
	var count int64
	err := r.db.Model(&model.Transaction{}).
		Where("status = ?", model.StatusPending).
		Count(&count).Error
	return count, err
}

func (r *transactionRepo) Create(tx *gorm.DB, transaction *model.Transaction) error {
	return tx.Create(transaction).Error
}

// FindForUpdate membaca transaksi dengan row lock supaya flip status
// tidak balapan dengan pemanggil lain.
func (r *transactionRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&transaction, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *transactionRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus) error {
	return tx.Model(&model.Transaction{}).
		Where("id = ?", id).
		Update("status", status).Error
}
