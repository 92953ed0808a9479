package handler

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmanagerx/internal/service/auth"
)

// phones arrive E.164-normalized from the client login flow
var phonePattern = regexp.MustCompile(`^\+[0-9]{8,15}$`)
var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// AuthAPI is the slice of the auth service the handler needs.
type AuthAPI interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*auth.Session, error)
	Register(ctx context.Context, phone, name string, referrerID *int) (*auth.Session, error)
}

type AuthHandler struct {
	svc    AuthAPI
	logger *zap.Logger
}

func NewAuthHandler(svc AuthAPI, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !phonePattern.MatchString(req.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	if err := h.svc.SendOTP(c.Request.Context(), req.Phone); err != nil {
		h.logger.Error("SendOTP failed", zap.String("phone", req.Phone), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send otp"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "otp_sent"})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !phonePattern.MatchString(req.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}
	if !otpPattern.MatchString(req.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otp must be 6 digits"})
		return
	}

	sess, err := h.svc.VerifyOTP(c.Request.Context(), req.Phone, req.Code)
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
		return
	case errors.Is(err, auth.ErrInvalidCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid otp"})
		return
	case err != nil:
		h.logger.Error("VerifyOTP failed", zap.String("phone", req.Phone), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify otp"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

type registerRequest struct {
	Name       string `json:"name"`
	ReferrerID *int   `json:"referrer_id"`
}

var namePattern = regexp.MustCompile(`^[A-Za-z ]{3,}$`)

// Register completes a first-time login. Requires a verified session (the
// phone claim), rejects names the login flow would not have accepted.
func (h *AuthHandler) Register(c *gin.Context) {
	phone := c.GetString("phone")
	if phone == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !namePattern.MatchString(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be at least 3 letters"})
		return
	}

	sess, err := h.svc.Register(c.Request.Context(), phone, req.Name, req.ReferrerID)
	switch {
	case errors.Is(err, auth.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "already registered"})
		return
	case err != nil:
		h.logger.Error("Register failed", zap.String("phone", phone), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	c.JSON(http.StatusCreated, sess)
}
