package command

import (
	"fmt"
	"time"

	"github.com/BalajiRKB/Zero/internal/apperr"
	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/currency"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/repository"
	"github.com/BalajiRKB/Zero/internal/utils"
)

// UserCommandService handles account registration.
type UserCommandService struct {
	userRepo *repository.UserRepository
}

func NewUserCommandService(userRepo *repository.UserRepository) *UserCommandService {
	return &UserCommandService{userRepo: userRepo}
}

func (s *UserCommandService) RegisterUser(cmd cqrs.RegisterUserCommand) (*models.UserView, error) {
	defaultCurrency := cmd.DefaultCurrency
	if defaultCurrency == "" {
		defaultCurrency = currency.Default
	}
	if !currency.IsSupported(defaultCurrency) {
		return nil, fmt.Errorf("%w: unsupported currency %q", apperr.ErrValidation, defaultCurrency)
	}

	hash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:              utils.GenerateID("usr"),
		Name:            cmd.Name,
		Email:           cmd.Email,
		PasswordHash:    hash,
		DefaultCurrency: defaultCurrency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return userToView(user), nil
}

func userToView(u *models.User) *models.UserView {
	return &models.UserView{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		DefaultCurrency: u.DefaultCurrency,
		CreatedAt:       u.CreatedAt,
	}
}
