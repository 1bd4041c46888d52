package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/currency"
	"github.com/BalajiRKB/Zero/internal/events"
	"github.com/BalajiRKB/Zero/internal/invite"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/repository"
	"github.com/BalajiRKB/Zero/internal/utils"
)

// ChannelCommandService handles channel lifecycle and membership. All
// mutations write to Postgres first, then refresh the Redis read model
// and publish an event; a failed publish is logged, never fatal.
type ChannelCommandService struct {
	writeRepo *repository.ChannelWriteRepository
	readRepo  *repository.ChannelReadRepository
	userRepo  *repository.UserRepository
	issuer    *invite.Issuer
	publisher *events.Publisher
}

func NewChannelCommandService(
	writeRepo *repository.ChannelWriteRepository,
	readRepo *repository.ChannelReadRepository,
	userRepo *repository.UserRepository,
	publisher *events.Publisher,
) *ChannelCommandService {
	return &ChannelCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		userRepo:  userRepo,
		issuer:    invite.NewIssuer(writeRepo.InviteCodeExists),
		publisher: publisher,
	}
}

// CreateChannel opens a new channel with the creator as its sole admin
// member. An omitted currency falls back to the creator's default.
func (s *ChannelCommandService) CreateChannel(cmd cqrs.CreateChannelCommand) (*models.ChannelView, error) {
	ctx := context.Background()

	creator, err := s.userRepo.GetByID(cmd.CreatorID)
	if err != nil {
		return nil, err
	}

	code := cmd.Currency
	if code == "" {
		code = creator.DefaultCurrency
	}
	if code == "" {
		code = currency.Default
	}
	if !currency.IsSupported(code) {
		return nil, fmt.Errorf("%w: unsupported currency %q", apperr.ErrValidation, code)
	}

	inviteCode, err := s.issuer.Issue(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	channel := &models.Channel{
		ID:          utils.GenerateID("chn"),
		Name:        cmd.Name,
		Description: cmd.Description,
		Currency:    code,
		CreatorID:   cmd.CreatorID,
		InviteCode:  inviteCode,
		IsActive:    true,
		Members: []models.ChannelMember{
			{UserID: cmd.CreatorID, Role: models.RoleAdmin, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeRepo.Create(channel); err != nil {
		return nil, err
	}

	if err := s.readRepo.Refresh(ctx, channel.ID); err != nil {
		slog.Warn("Failed to cache channel view", "channelId", channel.ID, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.ChannelEventsStream, events.ChannelCreated, events.ChannelCreatedEvent{
		ChannelID: channel.ID,
		CreatorID: cmd.CreatorID,
		Name:      channel.Name,
		Currency:  channel.Currency,
	}); err != nil {
		slog.Warn("Failed to publish channel.created event", "channelId", channel.ID, "error", err)
	}

	return s.readRepo.GetByID(ctx, channel.ID)
}

// UpdateChannel renames or re-describes a channel. Only admins may do it.
func (s *ChannelCommandService) UpdateChannel(cmd cqrs.UpdateChannelCommand) (*models.ChannelView, error) {
	ctx := context.Background()

	channel, err := s.writeRepo.GetByID(cmd.ChannelID)
	if err != nil {
		return nil, err
	}
	if !channel.IsActive {
		return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}

	role, err := s.writeRepo.RoleOf(cmd.ChannelID, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins can update the channel", apperr.ErrForbidden)
	}

	if cmd.Name != "" {
		channel.Name = cmd.Name
	}
	if cmd.Description != "" {
		channel.Description = cmd.Description
	}
	channel.UpdatedAt = time.Now().UTC()
	if err := s.writeRepo.Update(channel); err != nil {
		return nil, err
	}

	if err := s.readRepo.Refresh(ctx, channel.ID); err != nil {
		slog.Warn("Failed to refresh channel view", "channelId", channel.ID, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.ChannelEventsStream, events.ChannelUpdated, events.ChannelUpdatedEvent{
		ChannelID: channel.ID,
		Name:      channel.Name,
	}); err != nil {
		slog.Warn("Failed to publish channel.updated event", "channelId", channel.ID, "error", err)
	}

	return s.readRepo.GetByID(ctx, channel.ID)
}

// DeleteChannel soft-deletes a channel and clears its roster. Only the
// creator may do it. Expense history stays in place for audit.
func (s *ChannelCommandService) DeleteChannel(cmd cqrs.DeleteChannelCommand) error {
	ctx := context.Background()

	channel, err := s.writeRepo.GetByID(cmd.ChannelID)
	if err != nil {
		return err
	}
	if !channel.IsActive {
		return fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}
	if channel.CreatorID != cmd.RequestingUserID {
		return fmt.Errorf("%w: only the creator can delete the channel", apperr.ErrForbidden)
	}

	if err := s.writeRepo.Deactivate(cmd.ChannelID); err != nil {
		return err
	}

	s.readRepo.InvalidateChannelView(ctx, cmd.ChannelID)

	if err := s.publisher.Publish(ctx, events.ChannelEventsStream, events.ChannelDeleted, events.ChannelDeletedEvent{
		ChannelID: cmd.ChannelID,
	}); err != nil {
		slog.Warn("Failed to publish channel.deleted event", "channelId", cmd.ChannelID, "error", err)
	}

	return nil
}

// JoinChannel redeems an invite code. An unknown or deactivated code
// reads as not found; joining twice reads as already a member.
func (s *ChannelCommandService) JoinChannel(cmd cqrs.JoinChannelCommand) (*models.ChannelView, error) {
	ctx := context.Background()

	channel, err := s.writeRepo.GetByInviteCode(cmd.InviteCode)
	if err != nil {
		return nil, err
	}

	if err := s.writeRepo.AddMember(channel.ID, cmd.UserID, models.RoleMember, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.readRepo.Refresh(ctx, channel.ID); err != nil {
		slog.Warn("Failed to refresh channel view", "channelId", channel.ID, "error", err)
	}

	if err := s.publisher.Publish(ctx, events.ChannelEventsStream, events.MemberJoined, events.MemberJoinedEvent{
		ChannelID: channel.ID,
		UserID:    cmd.UserID,
		Role:      models.RoleMember,
	}); err != nil {
		slog.Warn("Failed to publish member_joined event", "channelId", channel.ID, "error", err)
	}

	return s.readRepo.GetByID(ctx, channel.ID)
}

// HandleExpenseEvent keeps the channel read model in step with ledger
// mutations. Every expense event carries the channel id; the projection
// is rebuilt from Postgres, so replays are harmless.
func (s *ChannelCommandService) HandleExpenseEvent(ctx context.Context, event events.Event) error {
	var payload struct {
		ChannelID string `json:"channelId"`
	}
	if err := events.DecodeData(event, &payload); err != nil {
		return fmt.Errorf("failed to decode expense event: %w", err)
	}
	if payload.ChannelID == "" {
		return fmt.Errorf("expense event %s has no channel id", event.ID)
	}
	return s.readRepo.Refresh(ctx, payload.ChannelID)
}
