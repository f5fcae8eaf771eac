// Package ws — менеджер WebSocket соединений.
//
// Клиент подключается, в течение authTimeout присылает {"token": "<JWT>"},
// после чего получает push-сообщения, адресованные его userID или роли.
// Входящие сообщения после аутентификации игнорируются (кроме control frames).
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"carmarket/internal/shared/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	authTimeout    = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 8192
	writeWait      = 10 * time.Second
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: ограничить origin списком из конфигурации, когда появится фронтенд
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AuthFunc валидирует токен и возвращает userID и роль
type AuthFunc func(token string) (userID, role string, err error)

// Client — одно WebSocket соединение
type Client struct {
	ID     string
	UserID string
	Role   string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub хранит активных клиентов и раздает им сообщения
type Hub struct {
	clients  map[string]*Client
	mu       sync.RWMutex
	closed   bool
	authFunc AuthFunc
	log      *logger.Logger
}

// NewHub создает новый Hub
func NewHub(authFunc AuthFunc, log *logger.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		authFunc: authFunc,
		log:      log,
	}
}

// Run ждет отмены ctx и закрывает все соединения
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	h.log.Info(logger.Entry{Action: "hub_stopped", Message: "websocket hub stopped"})
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.ID] = c
	h.log.Info(logger.Entry{
		Action:     "ws_client_registered",
		Message:    c.ID,
		Additional: map[string]any{"user_id": c.UserID, "role": c.Role},
	})
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
		h.log.Info(logger.Entry{Action: "ws_client_unregistered", Message: c.ID})
	}
}

// SendToUser отправляет сообщение всем соединениям пользователя
func (h *Hub) SendToUser(userID string, message []byte) int {
	return h.sendWhere(func(c *Client) bool { return c.UserID == userID }, message)
}

// SendToRole отправляет сообщение всем соединениям с указанной ролью
func (h *Hub) SendToRole(role string, message []byte) int {
	return h.sendWhere(func(c *Client) bool { return c.Role == role }, message)
}

func (h *Hub) sendWhere(match func(*Client) bool, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- message:
			sent++
		default:
			// медленный клиент теряет сообщение, соединение закроет pong timeout
			h.log.Warn(logger.Entry{
				Action:     "ws_send_dropped",
				Message:    c.ID,
				Additional: map[string]any{"user_id": c.UserID},
			})
		}
	}
	return sent
}

// SendToUserJSON сериализует и отправляет сообщение пользователю
func (h *Hub) SendToUserJSON(userID string, data any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.SendToUser(userID, msg)
	return nil
}

// SendToRoleJSON сериализует и отправляет сообщение роли
func (h *Hub) SendToRoleJSON(role string, data any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	h.SendToRole(role, msg)
	return nil
}

// ConnectedCount возвращает число активных соединений
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS апгрейдит HTTP соединение и ждет сообщение аутентификации
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(logger.Entry{
			Action:  "ws_upgrade_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))

	var authMsg struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseProtocolError, "auth timeout"))
		_ = conn.Close()
		h.log.Warn(logger.Entry{Action: "ws_auth_failed", Message: "no auth message received"})
		return
	}

	userID, role, err := h.authFunc(authMsg.Token)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": "invalid token"})
		_ = conn.Close()
		h.log.Warn(logger.Entry{
			Action:  "ws_auth_invalid_token",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}

	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}

	_ = conn.WriteJSON(map[string]string{"status": "authenticated", "user_id": userID})

	if !h.add(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn(logger.Entry{
					Action:  "ws_read_error",
					Message: c.ID,
					Error:   &logger.ErrObj{Msg: err.Error()},
				})
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
