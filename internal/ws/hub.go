package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Event types yang dikirim ke subscriber (queue view, dashboard)
const (
	EventOrderCreated   = "order_created"
	EventOrderCompleted = "order_completed"
	EventStockUpdate    = "stock_update"
)

type Hub struct {
	Clients    map[*websocket.Conn]bool
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte
	mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*websocket.Conn]bool),
		Register:   make(chan *websocket.Conn),
		Unregister: make(chan *websocket.Conn),
		Broadcast:  make(chan []byte),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.mutex.Lock()
			h.Clients[conn] = true
			h.mutex.Unlock()
			log.Println("New WS Client Connected")

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.Broadcast:
			h.mutex.Lock()
			for conn := range h.Clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastEvent marshals payload dan melempar ke channel Broadcast.
// Dipanggil dari goroutine setelah commit supaya rollback tidak ikut ter-broadcast.
func (h *Hub) BroadcastEvent(eventType string, payload map[string]interface{}) {
	payload["type"] = eventType
	msg, err := json.Marshal(payload)
	if err != nil {
		log.Println("WS marshal error:", err)
		return
	}
	h.Broadcast <- msg
}
