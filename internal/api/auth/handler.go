// Package auth exposes registration, verification, login and password
// routes.
package auth

import (
	"net/http"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/app/http/middleware"
	authsvc "yoga-studio/internal/service/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc    *authsvc.Service
	google *Google
}

// NewHandler wires the auth routes; google may be nil when sign-in with
// Google is not configured.
func NewHandler(svc *authsvc.Service, google *Google) *Handler {
	return &Handler{svc: svc, google: google}
}

func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Lastname string `json:"lastname"`
		Tel      string `json:"tel"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), authsvc.RegisterInput{
		Name:     input.Name,
		Lastname: input.Lastname,
		Tel:      input.Tel,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Envelope{
		Success: true,
		Message: "Registration successful. Check your email for the verification code.",
		Data:    user,
	})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	session, err := h.svc.VerifyOTP(c.Request.Context(), input.Email, input.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

func (h *Handler) ResendOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.svc.ResendOTP(c.Request.Context(), input.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "A new verification code has been sent")
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	session, err := h.svc.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// ForgotPassword answers the same way whether or not the email exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), input.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "If the email is registered, a reset link has been sent")
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var input struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), input.Token, input.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password has been reset. You can now log in.")
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var input struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	err := h.svc.ChangePassword(c.Request.Context(), middleware.UserID(c), input.CurrentPassword, input.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Password updated")
}
