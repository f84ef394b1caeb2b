package repository

import (
	"context"
	"testing"

	"slotbook/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreate_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	first := &domain.User{
		ClientID:     "acme",
		Email:        "admin@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleOwner,
		Name:         "Admin",
	}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID)

	err := repo.Create(ctx, &domain.User{
		ClientID:     "acme",
		Email:        "Admin@Example.com",
		PasswordHash: "hash",
		Role:         domain.RoleOwner,
		Name:         "Imposter",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}
