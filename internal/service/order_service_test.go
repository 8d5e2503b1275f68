package service

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeStore meniru Postgres untuk service test: satu mutex menggantikan
// row lock (commit berjalan serial), dan snapshot/restore meniru rollback.
type fakeStore struct {
	mu           sync.Mutex
	products     map[uuid.UUID]*model.Product
	counters     map[string]int64
	transactions map[uuid.UUID]*model.Transaction
	order        []uuid.UUID // urutan insert transaksi
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:     make(map[uuid.UUID]*model.Product),
		counters:     make(map[string]int64),
		transactions: make(map[uuid.UUID]*model.Transaction),
	}
}

func (f *fakeStore) addProduct(name string, price int64, stock int) uuid.UUID {
	id := uuid.New()
	f.products[id] = &model.Product{
		BaseModel: model.BaseModel{ID: id},
		Name:      name,
		Price:     price,
		Stock:     stock,
	}
	return id
}

// --- TxDB ---

func (f *fakeStore) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapProducts := make(map[uuid.UUID]*model.Product, len(f.products))
	for id, p := range f.products {
		cp := *p
		snapProducts[id] = &cp
	}
	snapCounters := make(map[string]int64, len(f.counters))
	for k, v := range f.counters {
		snapCounters[k] = v
	}
	snapTransactions := make(map[uuid.UUID]*model.Transaction, len(f.transactions))
	for id, t := range f.transactions {
		cp := *t
		snapTransactions[id] = &cp
	}
	snapOrder := append([]uuid.UUID(nil), f.order...)

	if err := fc(nil); err != nil {
		f.products = snapProducts
		f.counters = snapCounters
		f.transactions = snapTransactions
		f.order = snapOrder
		return err
	}
	return nil
}

// --- repository.ProductRepository ---

func (f *fakeStore) Create(p *model.Product) error { return errors.New("not used") }

func (f *fakeStore) FindAll() ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) FindByID(id uuid.UUID) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Update(p *model.Product) error { return errors.New("not used") }

func (f *fakeStore) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return f.FindByID(id)
}

func (f *fakeStore) DecrementStock(tx *gorm.DB, id uuid.UUID, qty int) error {
	p, ok := f.products[id]
	if !ok || p.Stock < qty {
		return gorm.ErrRecordNotFound
	}
	p.Stock -= qty
	return nil
}

func (f *fakeStore) CountLowStock(threshold int) (int64, error) {
	var count int64
	for _, p := range f.products {
		if p.Stock < threshold {
			count++
		}
	}
	return count, nil
}

// --- repository.CounterRepository ---

func (f *fakeStore) Next(tx *gorm.DB, prefix string) (int64, error) {
	f.counters[prefix]++
	return f.counters[prefix], nil
}

func (f *fakeStore) Sync(db *gorm.DB, prefix string) error {
	for _, t := range f.transactions {
		p, number, err := model.ParseQueueCode(t.QueueCode)
		if err != nil || p != prefix {
			continue
		}
		if number > f.counters[prefix] {
			f.counters[prefix] = number
		}
	}
	return nil
}

// --- repository.TransactionRepository ---

type fakeTxRepo struct{ store *fakeStore }

func (r *fakeTxRepo) FindQueue() ([]model.Transaction, error) {
	var out []model.Transaction
	for i := len(r.store.order) - 1; i >= 0; i-- {
		t := r.store.transactions[r.store.order[i]]
		if t.Status == model.StatusPending {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTxRepo) FindAll() ([]model.Transaction, error) {
	var out []model.Transaction
	for i := len(r.store.order) - 1; i >= 0; i-- {
		out = append(out, *r.store.transactions[r.store.order[i]])
	}
	return out, nil
}

func (r *fakeTxRepo) FindByID(id uuid.UUID) (*model.Transaction, error) {
	t, ok := r.store.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTxRepo) GetSalesSummary(start, end time.Time) (*repository.SalesSummary, error) {
	summary := &repository.SalesSummary{}
	for _, t := range r.store.transactions {
		summary.Revenue += t.Total
		summary.Transactions++
	}
	return summary, nil
}

func (r *fakeTxRepo) GetTopProducts(start, end time.Time, limit int) ([]repository.TopProductData, error) {
	return nil, nil
}

func (r *fakeTxRepo) CountPending() (int64, error) {
	var count int64
	for _, t := range r.store.transactions {
		if t.Status == model.StatusPending {
			count++
		}
	}
	return count, nil
}

func (r *fakeTxRepo) Create(tx *gorm.DB, t *model.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	cp := *t
	r.store.transactions[t.ID] = &cp
	r.store.order = append(r.store.order, t.ID)
	return nil
}

func (r *fakeTxRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	return r.FindByID(id)
}

func (r *fakeTxRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus) error {
	t, ok := r.store.transactions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Status = status
	return nil
}

func newTestService(store *fakeStore) OrderService {
	hub := ws.NewHub()
	go hub.Run()
	return NewOrderService(store, &fakeTxRepo{store}, store, store, hub)
}

// flakyTxDB gagal sekian kali dengan err tertentu sebelum meneruskan ke
// store asli. failures negatif = selalu gagal.
type flakyTxDB struct {
	store    *fakeStore
	failures int
	err      error
	calls    int
}

func (f *flakyTxDB) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	f.calls++
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return f.err
	}
	return f.store.Transaction(fc, opts...)
}

func newFlakyService(store *fakeStore, flaky *flakyTxDB) OrderService {
	hub := ws.NewHub()
	go hub.Run()
	return NewOrderService(store, &fakeTxRepo{store}, store, flaky, hub)
}

func cashierReq(items []OrderLine) *SubmitOrderRequest {
	return &SubmitOrderRequest{
		Items:         items,
		CustomerName:  "Budi",
		PaymentMethod: model.PayCash,
		OrderType:     model.OrderDineIn,
		QueuePrefix:   model.PrefixCashier,
	}
}

func TestSubmitOrder_Success(t *testing.T) {
	store := newFakeStore()
	kopiID := store.addProduct("Kopi Susu", 15000, 10)
	rotiID := store.addProduct("Roti Bakar", 8000, 5)
	svc := newTestService(store)

	tx, err := svc.SubmitOrder(cashierReq([]OrderLine{
		{ProductID: kopiID, Quantity: 2},
		{ProductID: rotiID, Quantity: 1},
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(38000), tx.Total)
	assert.Equal(t, model.StatusPending, tx.Status)
	assert.Equal(t, "A-001", tx.QueueCode)
	assert.Equal(t, "Budi", tx.CustomerName)
	require.Len(t, tx.Items, 2)
	assert.Equal(t, "Kopi Susu", tx.Items[0].Name)
	assert.Equal(t, int64(15000), tx.Items[0].Price)

	// Stok terpotong bersamaan dengan record masuk
	kopi, _ := store.FindByID(kopiID)
	roti, _ := store.FindByID(rotiID)
	assert.Equal(t, 8, kopi.Stock)
	assert.Equal(t, 4, roti.Stock)

	// Total stabil: hitung ulang dari snapshot tersimpan hasilnya sama
	assert.Equal(t, tx.Total, tx.ItemsTotal()+tx.ShippingCost)
}

func TestSubmitOrder_QueueNumberIncrements(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Es Teh", 5000, 100)
	svc := newTestService(store)

	first, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	require.NoError(t, err)
	second, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	require.NoError(t, err)

	assert.Equal(t, "A-001", first.QueueCode)
	assert.Equal(t, "A-002", second.QueueCode)
}

func TestSubmitOrder_QueuePrefixesIndependent(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Es Teh", 5000, 100)
	svc := newTestService(store)

	cashier, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	require.NoError(t, err)

	selfReq := cashierReq([]OrderLine{{ProductID: id, Quantity: 1}})
	selfReq.QueuePrefix = model.PrefixSelfOrder
	selfReq.PaymentMethod = model.PayPendingCashier
	selfReq.OrderType = model.OrderOnline
	selfOrder, err := svc.SubmitOrder(selfReq)
	require.NoError(t, err)

	// Counter per prefix: keduanya mulai dari 001
	assert.Equal(t, "A-001", cashier.QueueCode)
	assert.Equal(t, "Q-001", selfOrder.QueueCode)
}

func TestSubmitOrder_EmptyCart(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.SubmitOrder(cashierReq(nil))
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, store.transactions)
}

func TestSubmitOrder_MissingCustomerName(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Es Teh", 5000, 100)
	svc := newTestService(store)

	req := cashierReq([]OrderLine{{ProductID: id, Quantity: 1}})
	req.CustomerName = "   "

	_, err := svc.SubmitOrder(req)
	assert.ErrorIs(t, err, ErrCustomerNameRequired)

	// Validasi gagal sebelum ada akses store sama sekali
	assert.Empty(t, store.transactions)
	p, _ := store.FindByID(id)
	assert.Equal(t, 100, p.Stock)
}

func TestSubmitOrder_DeliveryRequiresAddress(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Es Teh", 5000, 100)
	svc := newTestService(store)

	req := cashierReq([]OrderLine{{ProductID: id, Quantity: 1}})
	req.OrderType = model.OrderDelivery

	_, err := svc.SubmitOrder(req)
	assert.ErrorIs(t, err, ErrDeliveryAddressRequired)

	req.DeliveryAddress = "Jl. Contoh No. 123, Jakarta"
	req.ShippingCost = 10000
	tx, err := svc.SubmitOrder(req)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), tx.Total) // 5000 + ongkir 10000
}

func TestSubmitOrder_InsufficientStock(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 1)
	svc := newTestService(store)

	_, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 2}}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Kopi Susu", stockErr.ProductName)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	// Tidak ada commit parsial
	assert.Empty(t, store.transactions)
	p, _ := store.FindByID(id)
	assert.Equal(t, 1, p.Stock)
}

func TestSubmitOrder_AtomicRollbackAcrossLines(t *testing.T) {
	store := newFakeStore()
	okID := store.addProduct("Roti Bakar", 8000, 10)
	shortID := store.addProduct("Kopi Susu", 15000, 0)
	svc := newTestService(store)

	_, err := svc.SubmitOrder(cashierReq([]OrderLine{
		{ProductID: okID, Quantity: 3}, // cukup, tapi harus ikut batal
		{ProductID: shortID, Quantity: 1},
	}))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// Baris pertama sudah sempat didekremen di dalam tx — rollback harus mengembalikannya
	okProduct, _ := store.FindByID(okID)
	assert.Equal(t, 10, okProduct.Stock)
	assert.Empty(t, store.transactions)

	// Counter ikut batal: order sukses berikutnya tetap dapat nomor pertama
	tx, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: okID, Quantity: 1}}))
	require.NoError(t, err)
	assert.Equal(t, "A-001", tx.QueueCode)
}

func TestSubmitOrder_ConcurrentOversell(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 1)
	svc := newTestService(store)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
			results <- err
		}()
	}

	var failures, successes int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			var stockErr *InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
			failures++
		} else {
			successes++
		}
	}

	assert.Equal(t, 1, successes, "exactly one submission must win")
	assert.Equal(t, 1, failures)

	p, _ := store.FindByID(id)
	assert.Equal(t, 0, p.Stock, "stock must never go negative")
	assert.Len(t, store.transactions, 1)
}

func TestSubmitOrder_RetriesDeadlockThenCommits(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 10)
	flaky := &flakyTxDB{
		store:    store,
		failures: 1,
		err:      errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"),
	}
	svc := newFlakyService(store, flaky)

	tx, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	require.NoError(t, err)

	// Percobaan kedua yang jadi: order masuk sekali, stok terpotong sekali
	assert.Equal(t, 2, flaky.calls)
	assert.Equal(t, "A-001", tx.QueueCode)
	assert.Len(t, store.transactions, 1)
	p, _ := store.FindByID(id)
	assert.Equal(t, 9, p.Stock)
}

func TestSubmitOrder_GivesUpAfterBoundedRetries(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 10)
	flaky := &flakyTxDB{
		store:    store,
		failures: -1,
		err:      errors.New("ERROR: deadlock detected (SQLSTATE 40P01)"),
	}
	svc := newFlakyService(store, flaky)

	_, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, maxCommitAttempts, flaky.calls)
	assert.Empty(t, store.transactions)
}

func TestSubmitOrder_OutageSurfacesStoreUnavailable(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 10)
	flaky := &flakyTxDB{
		store:    store,
		failures: -1,
		err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
	}
	svc := newFlakyService(store, flaky)

	_, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))

	// Error driver tidak bocor mentah: caller cukup tahu "coba lagi"
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	// Koneksi putus bukan konflik yang layak diulang otomatis
	assert.Equal(t, 1, flaky.calls)
	assert.Empty(t, store.transactions)
	p, _ := store.FindByID(id)
	assert.Equal(t, 10, p.Stock)
}

func TestSubmitOrder_UnknownProduct(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: uuid.New(), Quantity: 1}}))

	// Produk hilang dari katalog = penolakan bisnis, bukan ErrStoreUnavailable
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, store.transactions)
}

func TestQueueNumberContinuesAfterCounterSync(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 10)

	// Transaksi lama dari sebelum tabel counter ada
	legacy := &model.Transaction{QueueCode: "A-007", Status: model.StatusCompleted}
	require.NoError(t, (&fakeTxRepo{store}).Create(nil, legacy))
	require.NoError(t, store.Sync(nil, model.PrefixCashier))

	svc := newTestService(store)
	tx, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	require.NoError(t, err)

	// Nomor lanjut dari kode tertinggi yang sudah terbit, tidak mundur ke 001
	assert.Equal(t, "A-008", tx.QueueCode)
}

func TestMarkCompleted_Idempotent(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 10)
	svc := newTestService(store)

	tx, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 2}}))
	require.NoError(t, err)

	first, err := svc.MarkCompleted(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, first.Status)

	// Panggilan kedua: no-op sukses, status tetap, stok tidak tersentuh
	second, err := svc.MarkCompleted(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, second.Status)

	p, _ := store.FindByID(id)
	assert.Equal(t, 8, p.Stock)
}

func TestMarkCompleted_NotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.MarkCompleted(uuid.New())
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestGetQueue_OnlyPending(t *testing.T) {
	store := newFakeStore()
	id := store.addProduct("Kopi Susu", 15000, 10)
	svc := newTestService(store)

	first, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	require.NoError(t, err)
	second, err := svc.SubmitOrder(cashierReq([]OrderLine{{ProductID: id, Quantity: 1}}))
	require.NoError(t, err)

	_, err = svc.MarkCompleted(first.ID)
	require.NoError(t, err)

	queue, err := svc.GetQueue()
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)

	history, err := svc.GetHistory()
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
