package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"usersvc/api/internal/middleware"
	"usersvc/api/internal/models"
	"usersvc/api/internal/service"
)

type registerRequest struct {
	Name         string `json:"name" binding:"required,max=100"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Organisation string `json:"organisation" binding:"required"`
	Telephone    string `json:"telephone"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Organisation: req.Organisation,
		Telephone:    req.Telephone,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	if !h.issueSessionCookie(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	if !h.issueSessionCookie(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h HandlerSet) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"loggedOut": true})
}

func (h HandlerSet) Me(c *gin.Context) {
	caller := middleware.CallerIdentity(c)

	// The account may have been deleted since the token was issued.
	user, err := h.users.Get(c.Request.Context(), caller.ID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset link has been sent to your email!"})
}

type passwordResetRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// PasswordReset consumes the reset token from the X-Password-Token
// header, mirroring the original flow where the token travels outside
// the session cookie.
func (h HandlerSet) PasswordReset(c *gin.Context) {
	token := c.GetHeader("X-Password-Token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing reset token"})
		return
	}

	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.ResetPassword(c.Request.Context(), token, req.Password)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h HandlerSet) issueSessionCookie(c *gin.Context, user *models.User) bool {
	token, err := h.users.IssueSession(user)
	if err != nil {
		h.abortWithError(c, err)
		return false
	}
	h.setSessionCookie(c, "Bearer "+token, int(h.cfg.Security.SessionTTL.Seconds()))
	return true
}

// setSessionCookie writes the httpOnly session cookie. Production uses
// SameSite=None with Secure; development stays on Lax without TLS.
func (h HandlerSet) setSessionCookie(c *gin.Context, value string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if h.cfg.Production() {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.cfg.Production(), true)
}
