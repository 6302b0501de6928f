package goals

import (
	"net/http"
	"time"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	goalsvc "yoga-studio/internal/service/goals"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *goalsvc.Service
}

func NewHandler(svc *goalsvc.Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Target      int        `json:"target" binding:"min=0"`
	Unit        string     `json:"unit"`
	Deadline    *time.Time `json:"deadline"`
}

type updateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Target      *int       `json:"target" binding:"omitempty,min=0"`
	Progress    *int       `json:"progress" binding:"omitempty,min=0"`
	Unit        *string    `json:"unit"`
	Deadline    *time.Time `json:"deadline"`
	Status      *string    `json:"status"`
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	g, err := h.svc.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	g, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), goalsvc.Input{
		Title:       req.Title,
		Description: req.Description,
		Target:      req.Target,
		Unit:        req.Unit,
		Deadline:    req.Deadline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, g)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	g, err := h.svc.Update(c.Request.Context(), middleware.UserID(c), id, goalsvc.Patch{
		Title:       req.Title,
		Description: req.Description,
		Target:      req.Target,
		Progress:    req.Progress,
		Unit:        req.Unit,
		Deadline:    req.Deadline,
		Status:      req.Status,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, g)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Goal deleted")
}
