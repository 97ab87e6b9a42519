package mysql

import (
	"testing"

	"Med_Community/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_EmailIsCaseInsensitive(t *testing.T) {
	ledger := setupTestLedger(t)
	repo := NewUserRepository(ledger.DB)

	require.NoError(t, repo.Create(bg, &model.User{Username: "realadmin", Password: "x", Email: "Admin@Example.com"}))
	err := repo.Create(bg, &model.User{Username: "mallory", Password: "x", Email: "ADMIN@example.com"})
	require.ErrorIs(t, err, ErrUserExists)

	u, err := repo.FindByEmail(bg, "admin@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.False(t, u.EmailVerified)

	u, err = repo.FindByUsername(bg, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "realadmin", u.Username)

	require.NoError(t, repo.MarkEmailVerified(bg, u.ID))
	u, err = repo.FindByID(bg, u.ID)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
}
