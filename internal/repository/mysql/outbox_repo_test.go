package mysql

import (
	"testing"

	"Med_Community/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxListAndUpdate(t *testing.T) {
	ledger := setupTestLedger(t)
	seedCommunity(t, ledger.DB, "health", 1, 0)
	_, err := NewMembershipRepository(ledger).Join(bg, 2, "health")
	require.NoError(t, err)
	_, err = NewMembershipRepository(ledger).Join(bg, 3, "health")
	require.NoError(t, err)
	repo := NewOutboxRepository(ledger.DB)

	rows, err := repo.List(bg, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.EventMemberJoined, rows[0].EventType)

	require.NoError(t, repo.SuccessUpdate(bg, rows[0].ID))
	require.NoError(t, repo.RetryUpdate(bg, rows[1].ID))

	rows, err = repo.List(bg, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.OutboxFailed, rows[0].Status)
	assert.Equal(t, 1, rows[0].Retry)

	rows, err = repo.List(bg, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
