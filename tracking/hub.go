// Package tracking streams live driver positions to websocket clients
// following an order.
package tracking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"food-marketplace-api/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Update is the message pushed to subscribers.
type Update struct {
	OrderID        string                `json:"orderId"`
	DriverLocation models.DriverLocation `json:"driverLocation"`
}

type subscriber struct {
	send chan []byte
}

type Hub struct {
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub accepts websocket connections from the given origins; "*" allows any.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{subs: make(map[string]map[*subscriber]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

func (h *Hub) subscribe(orderID string) *subscriber {
	s := &subscriber{send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[orderID] == nil {
		h.subs[orderID] = make(map[*subscriber]struct{})
	}
	h.subs[orderID][s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(orderID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[orderID][s]; !ok {
		return
	}
	delete(h.subs[orderID], s)
	if len(h.subs[orderID]) == 0 {
		delete(h.subs, orderID)
	}
	close(s.send)
}

// Subscribers is the number of live connections following orderID.
func (h *Hub) Subscribers(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[orderID])
}

// PublishLocation pushes a driver position to every follower of the order.
// Slow followers miss updates instead of blocking the publisher.
func (h *Hub) PublishLocation(orderID string, loc models.DriverLocation) {
	data, err := json.Marshal(Update{OrderID: orderID, DriverLocation: loc})
	if err != nil {
		slog.Error("Failed to encode location update", "order_id", orderID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[orderID] {
		select {
		case s.send <- data:
		default:
			slog.Warn("Tracking subscriber too slow, dropping update", "order_id", orderID)
		}
	}
}

// Serve upgrades the request and streams updates for orderID until the
// client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, orderID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	s := h.subscribe(orderID)
	go writePump(conn, s)
	readPump(conn)
	h.unsubscribe(orderID, s)
	return nil
}

// readPump discards client messages and returns once the connection closes.
func readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Tracking connection closed", "error", err)
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
