package service

import (
	"errors"
	"fmt"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogService mengelola katalog produk (buat/edit/restock).
// Stok HANYA berkurang lewat OrderService; di sini stok berubah
// karena edit katalog atau restock oleh admin.
type CatalogService interface {
	CreateProduct(req *model.Product, userID string) error
	UpdateProduct(id uuid.UUID, req *model.Product, userID string) (*model.Product, error)
	GetAllProducts() ([]model.Product, error)
	GetProductByID(id uuid.UUID) (*model.Product, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	db          *gorm.DB
	wsHub       *ws.Hub
}

func NewCatalogService(pRepo repository.ProductRepository, db *gorm.DB, hub *ws.Hub) CatalogService {
	return &catalogService{
		productRepo: pRepo,
		db:          db,
		wsHub:       hub,
	}
}

func (s *catalogService) CreateProduct(req *model.Product, userID string) error {
	// 1. Validasi struct dasar
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	// 2. Set audit fields
	req.CreatedBy = userID
	req.UpdatedBy = userID

	// 3. Simpan ke database
	if err := s.productRepo.Create(req); err != nil {
		return err
	}

	// 4. Broadcast ke subscriber
	go s.wsHub.BroadcastEvent(ws.EventStockUpdate, map[string]interface{}{
		"action":  "product_created",
		"product": req,
	})

	return nil
}

func (s *catalogService) UpdateProduct(id uuid.UUID, req *model.Product, userID string) (*model.Product, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	var updated *model.Product

	// Transaction block dengan row lock, supaya edit katalog tidak
	// balapan dengan pengurangan stok dari order yang sedang commit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&existing, "id = ?", id).Error; err != nil {
			return errors.New("product not found")
		}

		existing.Name = req.Name
		existing.Category = req.Category
		existing.Price = req.Price
		existing.Stock = req.Stock
		existing.ImageURL = req.ImageURL
		existing.UpdatedBy = userID

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}

		updated = &existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.wsHub.BroadcastEvent(ws.EventStockUpdate, map[string]interface{}{
		"action":  "product_updated",
		"product": updated,
	})

	return updated, nil
}

func (s *catalogService) GetAllProducts() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func (s *catalogService) GetProductByID(id uuid.UUID) (*model.Product, error) {
	return s.productRepo.FindByID(id)
}
