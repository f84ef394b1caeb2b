package auth

import (
	"context"
	"errors"

	"slotbook/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type tokenIssuer interface {
	GenerateToken(userID int64, clientID, role string) (string, error)
}

type Service struct {
	users UserStore
	jwt   tokenIssuer
}

func NewService(users UserStore, jwt tokenIssuer) *Service {
	return &Service{users: users, jwt: jwt}
}

// Login verifies the password and issues a token scoped to the user's
// tenant. Unknown email and wrong password are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.ClientID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user}, nil
}

// Me loads the account behind a validated token.
func (s *Service) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}
