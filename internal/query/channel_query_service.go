package query

import (
	"context"
	"fmt"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/repository"
)

// ChannelQueryService serves channel reads from the Redis-backed read
// model. Every read is gated on membership.
type ChannelQueryService struct {
	readRepo    *repository.ChannelReadRepository
	channelRepo *repository.ChannelWriteRepository
}

func NewChannelQueryService(
	readRepo *repository.ChannelReadRepository,
	channelRepo *repository.ChannelWriteRepository,
) *ChannelQueryService {
	return &ChannelQueryService{readRepo: readRepo, channelRepo: channelRepo}
}

// ListChannels returns every active channel the user belongs to, most
// recently updated first.
func (s *ChannelQueryService) ListChannels(q cqrs.ListChannelsQuery) ([]models.ChannelView, error) {
	return s.readRepo.ListByUserID(context.Background(), q.UserID)
}

// GetChannel returns one channel. Non-members get access denied, never
// confirmation the channel exists.
func (s *ChannelQueryService) GetChannel(q cqrs.GetChannelQuery) (*models.ChannelView, error) {
	isMember, err := s.channelRepo.IsMember(q.ChannelID, q.RequestingUserID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: not a channel member", apperr.ErrAccessDenied)
	}

	view, err := s.readRepo.GetByID(context.Background(), q.ChannelID)
	if err != nil {
		return nil, err
	}
	if !view.IsActive {
		return nil, fmt.Errorf("%w: channel", apperr.ErrNotFound)
	}
	return view, nil
}
