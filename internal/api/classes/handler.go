// Package classes exposes the class catalog, bookings and check-in tickets.
package classes

import (
	"net/http"
	"strconv"
	"time"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/repository"
	classsvc "yoga-studio/internal/service/classes"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *classsvc.Service
	now func() time.Time
}

func NewHandler(svc *classsvc.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

type createRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	Style           string `json:"style" binding:"required"`
	Level           string `json:"level" binding:"required,yogalevel"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1"`
	Capacity        int    `json:"capacity" binding:"required,min=1"`
	Price           int64  `json:"price" binding:"min=0"`
	Currency        string `json:"currency" binding:"omitempty,len=3"`
	ScheduledAt     string `json:"scheduled_at" binding:"required"`
	IsOnline        bool   `json:"is_online"`
	MeetingLink     string `json:"meeting_link" binding:"omitempty,http_url"`
	Location        string `json:"location"`
	ImageURL        string `json:"image_url" binding:"omitempty,http_url"`
	InstructorID    uint   `json:"instructor_id"`
}

type updateRequest struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Style           *string `json:"style"`
	Level           *string `json:"level" binding:"omitempty,yogalevel"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=1"`
	Capacity        *int    `json:"capacity" binding:"omitempty,min=1"`
	Price           *int64  `json:"price" binding:"omitempty,min=0"`
	ScheduledAt     *string `json:"scheduled_at"`
	IsOnline        *bool   `json:"is_online"`
	MeetingLink     *string `json:"meeting_link" binding:"omitempty,http_url"`
	Location        *string `json:"location"`
	ImageURL        *string `json:"image_url" binding:"omitempty,http_url"`
	Status          *string `json:"status"`
	InstructorID    *uint   `json:"instructor_id"`
}

// List accepts style, level, status, instructor_id, upcoming, page and limit.
func (h *Handler) List(c *gin.Context) {
	page := response.PageFrom(c)
	f := repository.ClassFilter{
		Style:  c.Query("style"),
		Level:  c.Query("level"),
		Status: c.Query("status"),
		Page:   page,
	}
	if raw := c.Query("instructor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "Invalid instructor_id")
			return
		}
		f.InstructorID = uint(id)
	}
	if upcoming, _ := strconv.ParseBool(c.Query("upcoming")); upcoming {
		now := h.now()
		f.UpcomingFrom = &now
	}

	list, total, err := h.svc.List(c.Request.Context(), f)
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
	class, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, class)
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	class, err := h.svc.Create(c.Request.Context(), middleware.Actor(c), classsvc.Input{
		Title:           req.Title,
		Description:     req.Description,
		Style:           req.Style,
		Level:           req.Level,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
		Price:           req.Price,
		Currency:        req.Currency,
		ScheduledAt:     req.ScheduledAt,
		IsOnline:        req.IsOnline,
		MeetingLink:     req.MeetingLink,
		Location:        req.Location,
		ImageURL:        req.ImageURL,
		InstructorID:    req.InstructorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
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

	class, err := h.svc.Update(c.Request.Context(), middleware.Actor(c), id, classsvc.Patch{
		Title:           req.Title,
		Description:     req.Description,
		Style:           req.Style,
		Level:           req.Level,
		DurationMinutes: req.DurationMinutes,
		Capacity:        req.Capacity,
		Price:           req.Price,
		ScheduledAt:     req.ScheduledAt,
		IsOnline:        req.IsOnline,
		MeetingLink:     req.MeetingLink,
		Location:        req.Location,
		ImageURL:        req.ImageURL,
		Status:          req.Status,
		InstructorID:    req.InstructorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, class)
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
	response.Message(c, http.StatusOK, "Class deleted")
}

func (h *Handler) Enroll(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	class, err := h.svc.Enroll(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Envelope{Success: true, Message: "Enrolled successfully", Data: class})
}

func (h *Handler) Unenroll(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unenroll(c.Request.Context(), middleware.Actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Enrollment cancelled")
}

func (h *Handler) Roster(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	roster, err := h.svc.Roster(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}

func (h *Handler) Mine(c *gin.Context) {
	list, err := h.svc.Enrolled(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func (h *Handler) Teaching(c *gin.Context) {
	list, err := h.svc.Teaching(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Ticket streams the caller's check-in QR code as PNG.
func (h *Handler) Ticket(c *gin.Context) {
	id, ok := response.UintParam(c, "id")
	if !ok {
		return
	}
	png, err := h.svc.Ticket(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("X-Booking-Reference", classsvc.BookingReference(id, middleware.UserID(c)))
	c.Data(http.StatusOK, "image/png", png)
}
