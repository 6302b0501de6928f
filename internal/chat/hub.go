// Package chat relays direct messages to members over websockets.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/messages"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 8192
	sendBufferSize = 64
)

// Sender persists a message before it is relayed.
type Sender interface {
	Send(ctx context.Context, senderID, recipientID uint, body string) (*messages.Message, error)
}

// Inbound is the frame a client writes.
type Inbound struct {
	RecipientID uint   `json:"recipient_id"`
	Body        string `json:"body"`
}

// Outbound is the frame the hub writes.
type Outbound struct {
	Type    string            `json:"type"`
	Message *messages.Message `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
}

const (
	FrameMessage = "message"
	FrameError   = "error"
)

type client struct {
	userID uint
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks the live connections of every user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uint]map[*client]struct{}
	sender   Sender
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewHub(sender Sender, log *logrus.Logger, allowedOrigin string) *Hub {
	return &Hub{
		clients: map[uint]map[*client]struct{}{},
		sender:  sender,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// Serve upgrades the request of an authenticated user.
func (h *Hub) Serve(c *gin.Context, userID uint) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("Websocket upgrade failed")
		return
	}

	cl := &client{userID: userID, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(cl)
	h.log.WithField("user_id", userID).Debug("Chat client connected")

	go h.writePump(cl)
	go h.readPump(cl)
}

// Push queues payload for every connection of userID and returns how many
// connections received it.
func (h *Hub) Push(userID uint, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for cl := range h.clients[userID] {
		select {
		case cl.send <- payload:
			n++
		default:
			h.log.WithField("user_id", userID).Warn("Chat client too slow; frame dropped")
		}
	}
	return n
}

// Deliver pushes a stored message to both participants.
func (h *Hub) Deliver(m *messages.Message) {
	frame, err := json.Marshal(Outbound{Type: FrameMessage, Message: m})
	if err != nil {
		return
	}
	h.Push(m.RecipientID, frame)
	h.Push(m.SenderID, frame)
}

// Online returns the number of live connections of userID.
func (h *Hub) Online(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cl.userID] == nil {
		h.clients[cl.userID] = map[*client]struct{}{}
	}
	h.clients[cl.userID][cl] = struct{}{}
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[cl.userID]
	if !ok {
		return
	}
	if _, ok := set[cl]; !ok {
		return
	}
	delete(set, cl)
	close(cl.send)
	if len(set) == 0 {
		delete(h.clients, cl.userID)
	}
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.unregister(cl)
		_ = cl.conn.Close()
		h.log.WithField("user_id", cl.userID).Debug("Chat client disconnected")
	}()

	cl.conn.SetReadLimit(maxFrameSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).WithField("user_id", cl.userID).Info("Chat connection lost")
			}
			return
		}

		var in Inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			h.reply(cl, "Invalid frame")
			continue
		}
		m, err := h.sender.Send(context.Background(), cl.userID, in.RecipientID, in.Body)
		if err != nil {
			msg := "Failed to send message"
			if apperr.KindOf(err) != apperr.KindInternal {
				msg = apperr.Message(err)
			} else {
				h.log.WithError(err).WithField("user_id", cl.userID).Error("Chat message not stored")
			}
			h.reply(cl, msg)
			continue
		}
		h.Deliver(m)
	}
}

func (h *Hub) reply(cl *client, msg string) {
	frame, _ := json.Marshal(Outbound{Type: FrameError, Error: msg})
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[cl.userID][cl]; !ok {
		return
	}
	select {
	case cl.send <- frame:
	default:
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
