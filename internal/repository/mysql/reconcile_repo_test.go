package mysql

import (
	"regexp"
	"testing"

	"Med_Community/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterReconcilerRepo(t *testing.T) {
	ledger := setupTestLedger(t)
	seedCommunity(t, ledger.DB, "alpha", 1, 9)
	seedCommunity(t, ledger.DB, "beta", 1, 0)
	seedPost(t, ledger.DB, "p1", "alpha", 1)
	require.NoError(t, ledger.DB.Create(&model.CommunitySnippet{UserID: 1, CommunityID: "alpha"}).Error)
	require.NoError(t, ledger.DB.Create(&model.CommunitySnippet{UserID: 2, CommunityID: "alpha"}).Error)
	require.NoError(t, ledger.DB.Create(&model.PostVote{UserID: 1, PostID: "p1", CommunityID: "alpha", VoteValue: 1}).Error)
	require.NoError(t, ledger.DB.Create(&model.PostVote{UserID: 2, PostID: "p1", CommunityID: "alpha", VoteValue: 1}).Error)
	repo := NewCounterReconcilerRepo(ledger)

	batch, last, err := repo.CommunityBatch(bg, 1, "")
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "alpha", last)
	assert.Equal(t, int64(9), batch[0].NumberOfMembers)

	before := reloadCommunity(t, ledger.DB, "alpha").Version
	fix, err := repo.RepairMembers(bg, "alpha")
	require.NoError(t, err)
	assert.Equal(t, Repair{Fixed: true, Value: 2, Version: before + 1}, fix)
	c := reloadCommunity(t, ledger.DB, "alpha")
	assert.Equal(t, int64(2), c.NumberOfMembers)
	assert.Equal(t, before+1, c.Version)

	fix, err = repo.RepairMembers(bg, "alpha")
	require.NoError(t, err)
	assert.False(t, fix.Fixed)
	assert.Equal(t, before+1, reloadCommunity(t, ledger.DB, "alpha").Version)

	batch, last, err = repo.CommunityBatch(bg, 10, last)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "beta", last)

	batch, _, err = repo.CommunityBatch(bg, 10, last)
	require.NoError(t, err)
	assert.Empty(t, batch)

	fix, err = repo.RepairVoteStatus(bg, "p1")
	require.NoError(t, err)
	assert.True(t, fix.Fixed)
	assert.Equal(t, int64(2), fix.Value)
	p := reloadPost(t, ledger.DB, "p1")
	assert.Equal(t, int64(2), p.VoteStatus)
	assert.Equal(t, p.Version, fix.Version)

	_, err = repo.RepairMembers(bg, "missing")
	require.Error(t, err)
}

// 计数之后、写回之前有人加入：CAS 失败，重新计数，不覆盖加入
func TestRepairMembersRecountsWhenJoinLandsMidway(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCounterReconcilerRepo(NewLedger(db, 3))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`,`number_of_members`,`version` FROM `communities`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number_of_members", "version"}).AddRow("health", 3, 4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `community_snippets`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `communities` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`,`number_of_members`,`version` FROM `communities`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number_of_members", "version"}).AddRow("health", 2, 5))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `community_snippets`")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	fix, err := repo.RepairMembers(bg, "health")
	require.NoError(t, err)
	assert.Equal(t, Repair{Fixed: false, Value: 2, Version: 5}, fix)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairVoteStatusWritesWithVersionCheck(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCounterReconcilerRepo(NewLedger(db, 3))

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`,`vote_status`,`version` FROM `posts`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "vote_status", "version"}).AddRow("p1", 5, 9))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(vote_value), 0) FROM `post_votes`")).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `posts` SET")).
		WithArgs(int64(4), "p1", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	fix, err := repo.RepairVoteStatus(bg, "p1")
	require.NoError(t, err)
	assert.Equal(t, Repair{Fixed: true, Value: 4, Version: 10}, fix)
	assert.NoError(t, mock.ExpectationsWereMet())
}
