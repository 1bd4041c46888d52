package query

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BalajiRKB/Zero/internal/cqrs"
	"github.com/BalajiRKB/Zero/internal/middleware"
	"github.com/BalajiRKB/Zero/internal/models"
	"github.com/BalajiRKB/Zero/internal/repository"
	"github.com/BalajiRKB/Zero/internal/utils"
)

// AuthQueryService handles login and profile reads. There is no command
// service for login because issuing a token mutates nothing.
type AuthQueryService struct {
	userRepo *repository.UserRepository
}

func NewAuthQueryService(userRepo *repository.UserRepository) *AuthQueryService {
	return &AuthQueryService{userRepo: userRepo}
}

// Login verifies credentials and returns a signed token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthQueryService) Login(cmd cqrs.LoginCommand) (string, error) {
	user, err := s.userRepo.GetByEmail(cmd.Email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}
	if !utils.CheckPassword(cmd.Password, user.PasswordHash) {
		return "", fmt.Errorf("invalid credentials")
	}
	return s.TokenFor(user.ID, user.Email)
}

// TokenFor signs a 24 hour HS256 token for the given identity. Also used
// right after registration so new accounts start authenticated.
func (s *AuthQueryService) TokenFor(userID, email string) (string, error) {
	claims := middleware.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

func (s *AuthQueryService) GetProfile(q cqrs.GetProfileQuery) (*models.UserView, error) {
	user, err := s.userRepo.GetByID(q.UserID)
	if err != nil {
		return nil, err
	}
	return &models.UserView{
		ID:              user.ID,
		Name:            user.Name,
		Email:           user.Email,
		DefaultCurrency: user.DefaultCurrency,
		CreatedAt:       user.CreatedAt,
	}, nil
}
