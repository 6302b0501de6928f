// Package community serves the member feed and its moderation queue.
package community

import (
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	communitysvc "yoga-studio/internal/service/community"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *communitysvc.Service
}

func NewHandler(svc *communitysvc.Service) *Handler {
	return &Handler{svc: svc}
}

type postRequest struct {
	Body     string `json:"body" binding:"required"`
	ImageURL string `json:"image_url" binding:"omitempty,http_url"`
}

type updateRequest struct {
	Body     string  `json:"body" binding:"required"`
	ImageURL *string `json:"image_url" binding:"omitempty,http_url"`
}

type flagRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type moderateRequest struct {
	Action string `json:"action" binding:"required,oneof=approve remove"`
}

func postID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Feed(c *gin.Context) {
	list, err := h.svc.Feed(c.Request.Context(), response.PageFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), req.Body, req.ImageURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	p, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, req.Body, req.ImageURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Post deleted")
}

func (h *Handler) Like(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	p, err := h.svc.Like(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) Flag(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var req flagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := h.svc.Flag(c.Request.Context(), middleware.UserID(c), id, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Post reported")
}

func (h *Handler) Flagged(c *gin.Context) {
	list, err := h.svc.Flagged(c.Request.Context(), response.PageFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) Moderate(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := h.svc.Moderate(c.Request.Context(), id, req.Action); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Post "+req.Action+"d")
}
