package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PayCash           PaymentMethod = "cash"
	PayQRIS           PaymentMethod = "qris"
	PayPendingCashier PaymentMethod = "pending_cashier" // Self-order: bayar di kasir
)

type OrderType string

const (
	OrderDineIn   OrderType = "dine_in"
	OrderDelivery OrderType = "delivery"
	OrderOnline   OrderType = "online_order"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
)

// validNext memetakan transisi status yang diizinkan. Tidak ada jalan kembali
// dari completed, dan tidak ada status lain (cancel/refund tidak dimodelkan).
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusCompleted: true},
	StatusCompleted: {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// OrderItem adalah snapshot satu baris keranjang saat checkout.
// Nama/harga/gambar dibekukan di sini supaya struk tetap benar
// walaupun produk diedit belakangan.
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	ImageURL  string    `json:"image"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// Subtotal = harga x qty untuk satu baris
func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// OrderItems disimpan sebagai JSONB di kolom items
type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	return json.Marshal(items)
}

func (items *OrderItems) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	case nil:
		*items = nil
		return nil
	}
	return errors.New("unsupported type for OrderItems")
}

// Transaction adalah satu record penjualan beserta antriannya.
// Dibuat sekali oleh OrderService.SubmitOrder, statusnya hanya bisa
// berpindah pending -> completed lewat MarkCompleted.
type Transaction struct {
	BaseModel
	Items           OrderItems    `gorm:"type:jsonb;not null" json:"items"`
	Total           int64         `gorm:"not null" json:"total"` // Sum(price*qty) + ongkir
	ShippingCost    int64         `json:"shipping_cost"`
	CustomerName    string        `gorm:"type:varchar(255);not null" json:"customer_name" validate:"required"`
	Note            string        `json:"note"`
	PaymentMethod   PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method" validate:"required,oneof=cash qris pending_cashier"`
	OrderType       OrderType     `gorm:"type:varchar(20);not null" json:"order_type" validate:"required,oneof=dine_in delivery online_order"`
	DeliveryAddress string        `json:"delivery_address"` // Wajib kalau order_type = delivery
	Status          OrderStatus   `gorm:"type:varchar(10);not null;default:'pending'" json:"status"`
	QueueCode       string        `gorm:"type:varchar(10);uniqueIndex;not null" json:"queue_number"`

	// Snapshot tanggal/jam lokal untuk struk
	Date string `gorm:"type:varchar(20)" json:"date"`
	Time string `gorm:"type:varchar(20)" json:"time"`

	// User tracking (kosong untuk self-order)
	CashierID *string `gorm:"type:varchar(255)" json:"cashier_id,omitempty"`
}

// ItemsTotal menjumlahkan subtotal semua baris, tanpa ongkir
func (t *Transaction) ItemsTotal() int64 {
	var sum int64
	for _, item := range t.Items {
		sum += item.Subtotal()
	}
	return sum
}
