package cart

import "sync"

// Store memetakan session ID ke keranjangnya. Keranjang hidup hanya selama
// sesi checkout berjalan, jadi cukup in-memory — restart server = keranjang hilang,
// dan itu memang sifatnya.
type Store struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// Get mengembalikan keranjang milik session, dibuat kalau belum ada.
func (s *Store) Get(sessionID string) *Cart {
	s.mu.RLock()
	c, ok := s.carts[sessionID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[sessionID]; ok {
		return c
	}
	c = New()
	s.carts[sessionID] = c
	return c
}

// Drop membuang keranjang session (setelah submit sukses).
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}
