package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"usersvc/api/internal/middleware"
	"usersvc/api/internal/models"
	"usersvc/api/internal/service"
)

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	input := service.ListInput{
		After:  c.Query("after"),
		Before: c.Query("before"),
		First:  intQuery(c, "first"),
		Last:   intQuery(c, "last"),
	}

	connection, err := h.users.List(c.Request.Context(), input)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, connection)
}

type updateUserRequest struct {
	Name         string `json:"name" binding:"omitempty,max=100"`
	Email        string `json:"email" binding:"omitempty,email"`
	Organisation string `json:"organisation"`
	Telephone    string `json:"telephone"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Update(c.Request.Context(), c.Param("id"), service.UpdateInput{
		Name:         req.Name,
		Email:        req.Email,
		Organisation: req.Organisation,
		Telephone:    req.Telephone,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

type billingRequest struct {
	Name    string         `json:"name" binding:"required"`
	ICO     string         `json:"ICO"`
	DIC     string         `json:"DIC"`
	ICDPH   string         `json:"ICDPH"`
	IBAN    string         `json:"IBAN"`
	SWIFT   string         `json:"SWIFT"`
	Address models.Address `json:"address" binding:"required"`
}

func (h HandlerSet) UpdateBilling(c *gin.Context) {
	var req billingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.CallerIdentity(c)
	user, err := h.users.UpdateBilling(c.Request.Context(), caller.ID, models.Billing{
		Name:    req.Name,
		ICO:     req.ICO,
		DIC:     req.DIC,
		ICDPH:   req.ICDPH,
		IBAN:    req.IBAN,
		SWIFT:   req.SWIFT,
		Address: req.Address,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type setVerifiedRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

func (h HandlerSet) SetVerified(c *gin.Context) {
	var req setVerifiedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.SetVerified(c.Request.Context(), c.Param("id"), *req.Verified)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func intQuery(c *gin.Context, name string) int {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
