package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinAlert/internal/domain/models"
	xlogger "FinAlert/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second
	sendBuffer   = 32
)

// AlertHub pushes persisted alerts to connected WebSocket subscribers.
// A subscriber whose buffer is full is disconnected instead of blocking the pipeline.
type AlertHub struct {
	log      *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

func NewAlertHub(l *xlogger.Logger) *AlertHub {
	if l == nil {
		l = xlogger.Nop()
	}
	return &AlertHub{
		log: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*subscriber]struct{}),
	}
}

func (h *AlertHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alerts", h.Serve)
}

// Serve upgrades the request and blocks until the subscriber goes away.
func (h *AlertHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("alert subscriber connected", xlogger.String("remote", c.RealIP()), xlogger.Int("subscribers", n))

	go h.writeLoop(sub)
	h.readLoop(sub)

	h.remove(sub)
	return nil
}

// readLoop only services control frames; inbound data is ignored.
func (h *AlertHub) readLoop(sub *subscriber) {
	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *AlertHub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *AlertHub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.clients[sub]
	delete(h.clients, sub)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		sub.close()
		h.log.Info("alert subscriber disconnected", xlogger.Int("subscribers", n))
	}
}

// Notify broadcasts one alert. It never blocks on a slow subscriber.
func (h *AlertHub) Notify(_ context.Context, alert models.GeneratedAlert) error {
	b, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", alert.ID, err)
	}

	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.clients {
		select {
		case sub.send <- b:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.log.Warn("dropping slow alert subscriber")
		h.remove(sub)
	}
	return nil
}

func (h *AlertHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *AlertHub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.clients))
	for sub := range h.clients {
		subs = append(subs, sub)
	}
	h.clients = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
