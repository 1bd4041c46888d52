package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/middleware"
	"github.com/BalajiRKB/Zero/internal/models"
)

// UserCommander defines the write-side operations used by AuthHandler.
type UserCommander interface {
	RegisterUser(cqrs.RegisterUserCommand) (*models.UserView, error)
}

// AuthQuerier defines the read-side operations used by AuthHandler.
type AuthQuerier interface {
	Login(cqrs.LoginCommand) (string, error)
	TokenFor(userID, email string) (string, error)
	GetProfile(cqrs.GetProfileQuery) (*models.UserView, error)
}

type AuthHandler struct {
	commands UserCommander
	queries  AuthQuerier
}

type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	DefaultCurrency string `json:"defaultCurrency" validate:"omitempty,supported_currency"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string           `json:"token"`
	User  *models.UserView `json:"user,omitempty"`
}

func NewAuthHandler(commands UserCommander, queries AuthQuerier) *AuthHandler {
	return &AuthHandler{commands: commands, queries: queries}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.commands.RegisterUser(cqrs.RegisterUserCommand{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		DefaultCurrency: req.DefaultCurrency,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			middleware.RespondWithError(c, http.StatusConflict, "Email already registered")
		case errors.Is(err, apperr.ErrValidation):
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to register")
		}
		return
	}

	token, err := h.queries.TokenFor(user.ID, user.Email)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to register")
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	token, err := h.queries.Login(cqrs.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	user, err := h.queries.GetProfile(cqrs.GetProfileQuery{UserID: userID})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	c.JSON(http.StatusOK, user)
}
