// Package content serves the wellness library and members' progress on it.
package content

import (
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/repository"
	contentsvc "yoga-studio/internal/service/content"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *contentsvc.Service
}

func NewHandler(svc *contentsvc.Service) *Handler {
	return &Handler{svc: svc}
}

type contentRequest struct {
	Title     string `json:"title" binding:"required"`
	Summary   string `json:"summary"`
	Body      string `json:"body"`
	Type      string `json:"type" binding:"required,oneof=article video audio"`
	MediaURL  string `json:"media_url" binding:"omitempty,http_url"`
	Category  string `json:"category"`
	IsPremium bool   `json:"is_premium"`
	Published bool   `json:"published"`
}

func (r contentRequest) input() contentsvc.Input {
	return contentsvc.Input{
		Title:     r.Title,
		Summary:   r.Summary,
		Body:      r.Body,
		Type:      r.Type,
		MediaURL:  r.MediaURL,
		Category:  r.Category,
		IsPremium: r.IsPremium,
		Published: r.Published,
	}
}

type interactionRequest struct {
	Liked      *bool `json:"liked"`
	Bookmarked *bool `json:"bookmarked"`
	Completed  *bool `json:"completed"`
	Progress   *int  `json:"progress" binding:"omitempty,min=0,max=100"`
}

func (h *Handler) List(c *gin.Context) {
	page := response.PageFrom(c)
	list, total, err := h.svc.List(c.Request.Context(), repository.ContentFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Page:     page,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, list, total, page)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

func (h *Handler) Create(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	item, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	item, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, req.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Content deleted")
}

// Interact records a like, bookmark, completion or progress update.
func (h *Handler) Interact(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	in, err := h.svc.Interact(c.Request.Context(), middleware.UserID(c), id, contentsvc.InteractionInput{
		Liked:      req.Liked,
		Bookmarked: req.Bookmarked,
		Completed:  req.Completed,
		Progress:   req.Progress,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, in)
}

func (h *Handler) MyInteractions(c *gin.Context) {
	list, err := h.svc.Interactions(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
