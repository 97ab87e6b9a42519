package mysql

import (
	"context"
	"testing"

	"Med_Community/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := InitDB("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewLedger(db, 3)
}

func seedCommunity(t *testing.T, db *gorm.DB, id string, creatorID uint64, members int64) *model.Community {
	t.Helper()
	c := &model.Community{ID: id, CreatorID: creatorID, NumberOfMembers: members, PrivacyType: model.PrivacyPublic, ImageURL: "https://img/" + id}
	require.NoError(t, db.Create(c).Error)
	return c
}

func seedPost(t *testing.T, db *gorm.DB, id, communityID string, creatorID uint64) *model.Post {
	t.Helper()
	p := &model.Post{ID: id, CommunityID: communityID, CreatorID: creatorID, Title: "title " + id}
	require.NoError(t, db.Create(p).Error)
	return p
}

func reloadPost(t *testing.T, db *gorm.DB, id string) model.Post {
	t.Helper()
	var p model.Post
	require.NoError(t, db.Where("id = ?", id).First(&p).Error)
	return p
}

func reloadCommunity(t *testing.T, db *gorm.DB, id string) model.Community {
	t.Helper()
	var c model.Community
	require.NoError(t, db.Where("id = ?", id).First(&c).Error)
	return c
}

func countRows(t *testing.T, db *gorm.DB, m any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}

var bg = context.Background()
