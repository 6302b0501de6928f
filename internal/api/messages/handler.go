// Package messages serves direct messages over REST and hands the live
// channel to the chat hub.
package messages

import (
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/domain/messages"
	messagesvc "yoga-studio/internal/service/messages"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Realtime pushes stored messages to connected clients and upgrades
// websocket requests.
type Realtime interface {
	Deliver(m *messages.Message)
	Serve(c *gin.Context, userID uint)
}

type Handler struct {
	svc  *messagesvc.Service
	live Realtime
}

func NewHandler(svc *messagesvc.Service, live Realtime) *Handler {
	return &Handler{svc: svc, live: live}
}

type sendRequest struct {
	RecipientID uint   `json:"recipient_id" binding:"required"`
	Body        string `json:"body" binding:"required"`
}

func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	m, err := h.svc.Send(c.Request.Context(), middleware.UserID(c), req.RecipientID, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.live != nil {
		h.live.Deliver(m)
	}
	response.Created(c, m)
}

func (h *Handler) Inbox(c *gin.Context) {
	list, err := h.svc.Inbox(c.Request.Context(), middleware.UserID(c), response.PageFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Conversation lists the exchange with the user in :userId, newest first.
func (h *Handler) Conversation(c *gin.Context) {
	other, ok := response.UintParam(c, "userId")
	if !ok {
		return
	}
	list, err := h.svc.Conversation(c.Request.Context(), middleware.UserID(c), other, response.PageFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid id")
		return
	}
	m, err := h.svc.MarkRead(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Stream upgrades to the chat websocket.
func (h *Handler) Stream(c *gin.Context) {
	if h.live == nil {
		response.Fail(c, http.StatusNotFound, "Live chat is not available")
		return
	}
	h.live.Serve(c, middleware.UserID(c))
}
