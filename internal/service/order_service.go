package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrCustomerNameRequired    = errors.New("customer name is required")
	ErrDeliveryAddressRequired = errors.New("delivery address is required for delivery orders")
	ErrProductNotFound         = errors.New("product not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrStoreUnavailable        = errors.New("store unavailable, please retry")
)

// InsufficientStockError menyebut produk mana yang kurang supaya kasir
// bisa langsung menyesuaikan keranjang.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (need %d, have %d)", e.ProductName, e.Requested, e.Available)
}

// OrderLine adalah input minimal satu baris order: produk + qty.
// Nama/harga/gambar TIDAK dipercaya dari client — di-snapshot ulang
// dari baris produk yang sudah di-lock di dalam transaksi.
type OrderLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// SubmitOrderRequest adalah kontrak masuk SubmitOrder.
type SubmitOrderRequest struct {
	Items           []OrderLine         `json:"items" validate:"required,min=1,dive"`
	CustomerName    string              `json:"customer_name" validate:"required"`
	Note            string              `json:"note"`
	PaymentMethod   model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash qris pending_cashier"`
	OrderType       model.OrderType     `json:"order_type" validate:"required,oneof=dine_in delivery online_order"`
	DeliveryAddress string              `json:"delivery_address"`
	ShippingCost    int64               `json:"shipping_cost" validate:"gte=0"`

	// Diisi handler, bukan client
	QueuePrefix string  `json:"-"`
	CashierID   *string `json:"-"`
}

type OrderService interface {
	SubmitOrder(req *SubmitOrderRequest) (*model.Transaction, error)
	MarkCompleted(id uuid.UUID) (*model.Transaction, error)
	GetQueue() ([]model.Transaction, error)
	GetHistory() ([]model.Transaction, error)
	GetTransactionByID(id uuid.UUID) (*model.Transaction, error)
}

// TxDB adalah potongan *gorm.DB yang dipakai service: cuma Transaction.
// Semua operasi di dalam transaksi lewat repository, jadi commit path
// bisa dites dengan runner palsu.
type TxDB interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type orderService struct {
	productRepo repository.ProductRepository
	txRepo      repository.TransactionRepository
	counterRepo repository.CounterRepository
	db          TxDB
	wsHub       *ws.Hub
}

func NewOrderService(
	pRepo repository.ProductRepository,
	tRepo repository.TransactionRepository,
	cRepo repository.CounterRepository,
	db TxDB,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		productRepo: pRepo,
		txRepo:      tRepo,
		counterRepo: cRepo,
		db:          db,
		wsHub:       hub,
	}
}

// maxCommitAttempts membatasi retry saat transaksi kalah deadlock/serialisasi
const maxCommitAttempts = 3

// SubmitOrder mengubah keranjang tervalidasi jadi satu record transaksi plus
// pengurangan stok, dalam SATU transaksi database:
//  1. Lock tiap baris produk (FOR UPDATE) lalu cek qty <= stok SEGAR
//  2. Kurangi stok
//  3. Ambil nomor antrian dari counter per-prefix (atomik, masih di tx yang sama)
//  4. Insert record transaksi status pending
//
// Gagal di langkah mana pun = rollback total, tidak ada commit parsial.
func (s *orderService) SubmitOrder(req *SubmitOrderRequest) (*model.Transaction, error) {
	if err := s.validateSubmit(req); err != nil {
		return nil, err
	}

	var committed *model.Transaction
	var lastErr error

	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		committed, lastErr = s.commitOrder(req)
		if lastErr == nil || !isRetryableTxError(lastErr) {
			break
		}
	}
	if lastErr != nil {
		if isDomainError(lastErr) {
			return nil, lastErr
		}
		// Sisanya kegagalan infrastruktur (koneksi putus, timeout, insert
		// gagal): tampil sebagai "coba lagi", bukan error driver mentah.
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
	}

	// Broadcast setelah commit, di goroutine, supaya rollback tidak pernah ter-broadcast
	go s.wsHub.BroadcastEvent(ws.EventOrderCreated, map[string]interface{}{
		"transaction": committed,
		"message":     fmt.Sprintf("Order %s masuk atas nama %s", committed.QueueCode, committed.CustomerName),
	})

	return committed, nil
}

func (s *orderService) validateSubmit(req *SubmitOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return ErrCustomerNameRequired
	}
	if req.OrderType == model.OrderDelivery && strings.TrimSpace(req.DeliveryAddress) == "" {
		return ErrDeliveryAddressRequired
	}
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}
	return nil
}

// commitOrder menjalankan satu percobaan transaksi atomik
func (s *orderService) commitOrder(req *SubmitOrderRequest) (*model.Transaction, error) {
	var created model.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		items := make(model.OrderItems, 0, len(req.Items))

		for _, line := range req.Items {
			// Cek stok terhadap baris yang di-lock, bukan snapshot keranjang.
			// Keranjang bisa basi terhadap penjualan lain yang jalan barengan.
			product, err := s.productRepo.FindForUpdate(tx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
				}
				return err
			}

			if line.Quantity > product.Stock {
				return &InsufficientStockError{
					ProductName: product.Name,
					Requested:   line.Quantity,
					Available:   product.Stock,
				}
			}

			if err := s.productRepo.DecrementStock(tx, product.ID, line.Quantity); err != nil {
				return err
			}

			items = append(items, model.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				ImageURL:  product.ImageURL,
				Quantity:  line.Quantity,
			})
		}

		// Nomor antrian dari counter per-prefix, masih di transaksi yang sama,
		// jadi nomor yang sudah diterbitkan ikut batal kalau commit gagal.
		number, err := s.counterRepo.Next(tx, req.QueuePrefix)
		if err != nil {
			return err
		}

		now := time.Now()
		created = model.Transaction{
			Items:           items,
			ShippingCost:    req.ShippingCost,
			CustomerName:    strings.TrimSpace(req.CustomerName),
			Note:            req.Note,
			PaymentMethod:   req.PaymentMethod,
			OrderType:       req.OrderType,
			DeliveryAddress: req.DeliveryAddress,
			Status:          model.StatusPending,
			QueueCode:       model.FormatQueueCode(req.QueuePrefix, number),
			Date:            now.Format("02/01/2006"),
			Time:            now.Format("15.04.05"),
			CashierID:       req.CashierID,
		}
		created.Total = created.ItemsTotal() + req.ShippingCost
		if req.CashierID != nil {
			created.CreatedBy = *req.CashierID
			created.UpdatedBy = *req.CashierID
		}

		return s.txRepo.Create(tx, &created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// isRetryableTxError mengenali konflik yang aman diulang: deadlock dan
// kegagalan serialisasi. Kekurangan stok dan error validasi bukan untuk di-retry.
func isRetryableTxError(err error) bool {
	if isDomainError(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}

// isDomainError memisahkan penolakan bisnis (stok kurang, produk hilang dari
// katalog) dari kegagalan infrastruktur. Penolakan bisnis diteruskan apa
// adanya ke caller; hanya kegagalan infrastruktur yang jadi ErrStoreUnavailable.
func isDomainError(err error) bool {
	var stockErr *InsufficientStockError
	return errors.As(err, &stockErr) || errors.Is(err, ErrProductNotFound)
}

// MarkCompleted memindahkan status pending -> completed. Idempotent:
// dipanggil dua kali hasilnya sama, dan TIDAK pernah menyentuh stok —
// stok sudah dikurangi saat submit.
func (s *orderService) MarkCompleted(id uuid.UUID) (*model.Transaction, error) {
	var result model.Transaction

	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := s.txRepo.FindForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		if transaction.Status == model.StatusCompleted {
			// Sudah selesai — no-op, bukan error
			result = *transaction
			return nil
		}

		if !model.CanTransition(transaction.Status, model.StatusCompleted) {
			return fmt.Errorf("cannot transition status %s to %s", transaction.Status, model.StatusCompleted)
		}

		if err := s.txRepo.UpdateStatus(tx, transaction.ID, model.StatusCompleted); err != nil {
			return err
		}
		transaction.Status = model.StatusCompleted
		result = *transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	go s.wsHub.BroadcastEvent(ws.EventOrderCompleted, map[string]interface{}{
		"transaction_id": result.ID,
		"queue_number":   result.QueueCode,
	})

	return &result, nil
}

func (s *orderService) GetQueue() ([]model.Transaction, error) {
	return s.txRepo.FindQueue()
}

func (s *orderService) GetHistory() ([]model.Transaction, error) {
	return s.txRepo.FindAll()
}

func (s *orderService) GetTransactionByID(id uuid.UUID) (*model.Transaction, error) {
	return s.txRepo.FindByID(id)
}
