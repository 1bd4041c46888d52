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

// ChannelCommander defines the write-side operations used by ChannelHandler.
type ChannelCommander interface {
	CreateChannel(cqrs.CreateChannelCommand) (*models.ChannelView, error)
	UpdateChannel(cqrs.UpdateChannelCommand) (*models.ChannelView, error)
	DeleteChannel(cqrs.DeleteChannelCommand) error
	JoinChannel(cqrs.JoinChannelCommand) (*models.ChannelView, error)
}

// ChannelQuerier defines the read-side operations used by ChannelHandler.
type ChannelQuerier interface {
	ListChannels(cqrs.ListChannelsQuery) ([]models.ChannelView, error)
	GetChannel(cqrs.GetChannelQuery) (*models.ChannelView, error)
}

type ChannelHandler struct {
	commands ChannelCommander
	queries  ChannelQuerier
}

type CreateChannelRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Currency    string `json:"currency" validate:"omitempty,supported_currency"`
}

type UpdateChannelRequest struct {
	Name        string `json:"name" validate:"omitempty,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type ListChannelsResponse struct {
	Channels []models.ChannelView `json:"channels"`
}

func NewChannelHandler(commands ChannelCommander, queries ChannelQuerier) *ChannelHandler {
	return &ChannelHandler{commands: commands, queries: queries}
}

func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.CreateChannel(cqrs.CreateChannelCommand{
		CreatorID:   userID,
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, apperr.ErrConflict):
			middleware.RespondWithError(c, http.StatusConflict, "Could not allocate an invite code")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create channel")
		}
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *ChannelHandler) ListChannels(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	views, err := h.queries.ListChannels(cqrs.ListChannelsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list channels")
		return
	}

	c.JSON(http.StatusOK, ListChannelsResponse{Channels: views})
}

func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channelID := c.Param("channelId")
	userID, _ := middleware.GetUserID(c)

	view, err := h.queries.GetChannel(cqrs.GetChannelQuery{
		ChannelID:        channelID,
		RequestingUserID: userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrAccessDenied):
			middleware.RespondWithError(c, http.StatusForbidden, "Access denied")
		case errors.Is(err, apperr.ErrNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "Channel not found")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get channel")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ChannelHandler) UpdateChannel(c *gin.Context) {
	channelID := c.Param("channelId")
	userID, _ := middleware.GetUserID(c)

	var req UpdateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateChannel(cqrs.UpdateChannelCommand{
		ChannelID:        channelID,
		RequestingUserID: userID,
		Name:             req.Name,
		Description:      req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "Channel not found")
		case errors.Is(err, apperr.ErrForbidden):
			middleware.RespondWithError(c, http.StatusForbidden, "Only admins can update the channel")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update channel")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ChannelHandler) DeleteChannel(c *gin.Context) {
	channelID := c.Param("channelId")
	userID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteChannel(cqrs.DeleteChannelCommand{
		ChannelID:        channelID,
		RequestingUserID: userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "Channel not found")
		case errors.Is(err, apperr.ErrForbidden):
			middleware.RespondWithError(c, http.StatusForbidden, "Only the creator can delete the channel")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to delete channel")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Channel deleted"})
}

func (h *ChannelHandler) JoinChannel(c *gin.Context) {
	inviteCode := c.Param("inviteCode")
	userID, _ := middleware.GetUserID(c)

	view, err := h.commands.JoinChannel(cqrs.JoinChannelCommand{
		InviteCode: inviteCode,
		UserID:     userID,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "Invalid invite code")
		case errors.Is(err, apperr.ErrAlreadyMember):
			middleware.RespondWithError(c, http.StatusBadRequest, "Already a member of this channel")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to join channel")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}
