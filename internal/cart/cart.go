package cart

import (
	"errors"
	"sync"

	"go-pos-ws/internal/model"

	"github.com/google/uuid"
)

var (
	ErrSoldOut           = errors.New("product is sold out")
	ErrInsufficientStock = errors.New("insufficient stock remaining")
	ErrLineNotFound      = errors.New("item not in cart")
)

// Line adalah satu baris keranjang. Nama/harga/gambar di-snapshot saat Add;
// angka stok di sini hanya untuk feedback UI, cek final tetap di SubmitOrder.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	ImageURL  string    `json:"image"`
	Quantity  int       `json:"quantity"`
}

// Cart menampung pilihan belanja satu sesi checkout. Murni in-memory,
// dibuang setelah submit sukses atau reset.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add menambah produk ke keranjang. Kalau baris sudah ada, qty naik 1 —
// ditolak kalau melewati stok. Produk stok 0 ditolak sejak awal.
func (c *Cart) Add(p model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == p.ID {
			if c.lines[i].Quantity+1 > p.Stock {
				return ErrInsufficientStock
			}
			c.lines[i].Quantity++
			return nil
		}
	}

	if p.Stock <= 0 {
		return ErrSoldOut
	}

	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  1,
	})
	return nil
}

// AdjustQuantity menggeser qty dengan delta (biasanya +1/-1).
// Naik melebihi stok ditolak tanpa mengubah baris; turun sampai 0
// membuang barisnya — baris qty 0 tidak pernah disimpan.
func (c *Cart) AdjustQuantity(productID uuid.UUID, delta, stock int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		newQty := c.lines[i].Quantity + delta
		if delta > 0 && newQty > stock {
			return ErrInsufficientStock
		}
		if newQty <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return nil
		}
		c.lines[i].Quantity = newQty
		return nil
	}
	return ErrLineNotFound
}

// Remove membuang baris tanpa syarat.
func (c *Cart) Remove(productID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Total menjumlahkan price*qty semua baris. Murni, tanpa side effect.
func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum int64
	for _, line := range c.lines {
		sum += line.Price * int64(line.Quantity)
	}
	return sum
}

// Lines mengembalikan salinan isi keranjang sesuai urutan tambah.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Reset mengosongkan keranjang (setelah submit sukses / batal belanja).
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}
