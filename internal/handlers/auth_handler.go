package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/response"
	"fintrack/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService  services.UserServicer
	tokenService services.TokenServicer
	resetService services.PasswordResetServicer
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService services.UserServicer, tokenService services.TokenServicer, resetService services.PasswordResetServicer) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		tokenService: tokenService,
		resetService: resetService,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name                 string `json:"name" binding:"required,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest represents the forgot-password request payload
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents the reset-password request payload
type ResetPasswordRequest struct {
	Token                string `json:"token" binding:"required"`
	Email                string `json:"email" binding:"required,email"`
	Password             string `json:"password" binding:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar,omitempty"`
}

func userResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Avatar: user.Avatar,
	}
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user and issue an access token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} response.Envelope "User registered and token generated"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Failure     500 {object} response.Envelope "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	user, err := h.userService.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := h.tokenService.Issue(user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.Created(c, "User registered successfully", gin.H{
		"user":       userResponse(user),
		"token":      token.Token,
		"token_type": token.TokenType,
		"expires_at": token.ExpiresAt,
	})
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and issue a new token; prior tokens stay valid
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} response.Envelope "User authenticated and token generated"
// @Failure     401 {object} response.Envelope "Invalid credentials"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	// The response never distinguishes an unknown address from a wrong
	// password.
	user, err := h.userService.GetUserByEmail(req.Email)
	if err != nil {
		respondWithError(c, apperrors.ErrInvalidCredentials)
		return
	}
	if !h.userService.VerifyPassword(user, req.Password) {
		respondWithError(c, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := h.tokenService.Issue(user)
	if err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Logged in successfully", gin.H{
		"user":       userResponse(user),
		"token":      token.Token,
		"token_type": token.TokenType,
		"expires_at": token.ExpiresAt,
	})
}

// Logout revokes the token used for the current request
// @Summary     Logout user
// @Description Revoke the access token presented with this request
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} response.Envelope "Logged out"
// @Failure     401 {object} response.Envelope "Unauthenticated"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exists := c.Get(middleware.ContextJTI)
	if !exists {
		respondWithError(c, apperrors.ErrUnauthenticated)
		return
	}

	if err := h.tokenService.Revoke(jti.(string)); err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Logged out successfully", nil)
}

// ForgotPassword dispatches a reset link when the address exists
// @Summary     Request a password reset link
// @Description Always responds with a generic message to avoid account enumeration
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ForgotPasswordRequest true "Account email"
// @Success     200 {object} response.Envelope "Generic confirmation"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	if err := h.resetService.SendResetLink(req.Email); err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "If the email address exists in our records, a password reset link has been sent.", nil)
}

// ResetPassword consumes a reset token and sets a new password
// @Summary     Reset password
// @Description Consume a single-use reset token and store the new password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ResetPasswordRequest true "Reset payload"
// @Success     200 {object} response.Envelope "Password reset"
// @Failure     400 {object} response.Envelope "Invalid or expired token"
// @Failure     422 {object} response.Envelope "Validation failed"
// @Router      /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	if err := h.resetService.ResetPassword(req.Email, req.Token, req.Password); err != nil {
		respondWithError(c, err)
		return
	}

	response.OK(c, "Your password has been reset successfully.", nil)
}
