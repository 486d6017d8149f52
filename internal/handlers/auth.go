package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"accounthub/api/internal/middleware"
	"accounthub/api/internal/models"
	"accounthub/api/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type subscriptionRequest struct {
	Subscription string `json:"subscription"`
}

type userResponse struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, validationError("invalid request body"))
		return
	}
	if err := validateCredentials(req.Email, req.Password, h.cfg.Security.MinPasswordLength); err != nil {
		h.respondError(c, err)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": userResponse{
			Email:        user.Email,
			Subscription: string(user.Subscription),
		},
	})
}

func (h HandlerSet) VerifyEmail(c *gin.Context) {
	verificationToken := c.Param("verificationToken")

	if err := h.accounts.Verify(c.Request.Context(), verificationToken); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification successful"})
}

func (h HandlerSet) ResendVerifyEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, validationError("invalid request body"))
		return
	}
	if err := validateEmail(req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.accounts.ResendVerification(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent"})
}

func (h HandlerSet) LoginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, validationError("invalid request body"))
		return
	}
	if err := validateCredentials(req.Email, req.Password, h.cfg.Security.MinPasswordLength); err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": result.Token,
		"user": userResponse{
			Email:        result.User.Email,
			Subscription: string(result.User.Subscription),
		},
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
		return
	}

	if err := h.accounts.Logout(c.Request.Context(), user.ID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) CurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
		return
	}

	c.JSON(http.StatusOK, userResponse{
		Email:        user.Email,
		Subscription: string(user.Subscription),
	})
}

func (h HandlerSet) UpdateSubscription(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
		return
	}

	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, validationError("invalid request body"))
		return
	}
	if req.Subscription == "" {
		h.respondError(c, validationError("missing required subscription field"))
		return
	}

	tier, err := h.accounts.UpdateSubscription(c.Request.Context(), user.ID, req.Subscription)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": gin.H{"subscription": string(tier)},
	})
}

func currentUser(c *gin.Context) (models.User, bool) {
	userVal, exists := c.Get(middleware.CurrentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := userVal.(models.User)
	return user, ok
}
