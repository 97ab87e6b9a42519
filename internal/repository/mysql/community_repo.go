package mysql

import (
	"context"
	"errors"
	"time"

	"Med_Community/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommunityRepository struct {
	Ledger *Ledger
}

func NewCommunityRepository(l *Ledger) *CommunityRepository {
	return &CommunityRepository{Ledger: l}
}

// Create 事务内查重后创建社区和创建者的版主 snippet
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) (*model.CommunitySnippet, error) {
	var snippet *model.CommunitySnippet
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		s, err := createCommunityTx(tx, c)
		if err != nil {
			return err
		}
		snippet = s
		return insertOutbox(tx, model.EventCommunityCreated, c.ID, c.CreatorID, map[string]any{
			"privacy_type": c.PrivacyType,
		})
	})
	if err != nil {
		return nil, err
	}
	return snippet, nil
}

// createCommunityTx 直接创建和审批通过共用这一段
func createCommunityTx(tx *gorm.DB, c *model.Community) (*model.CommunitySnippet, error) {
	var n int64
	if err := tx.Model(&model.Community{}).Where("id = ?", c.ID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, model.NewNameTakenError(c.ID)
	}

	c.NumberOfMembers = 1
	c.Version = 0
	c.CreatedAt = time.Now()
	if err := tx.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, model.NewNameTakenError(c.ID)
		}
		return nil, err
	}

	snippet := &model.CommunitySnippet{
		UserID:      c.CreatorID,
		CommunityID: c.ID,
		IsModerator: true,
		ImageURL:    c.ImageURL,
	}
	if err := tx.Create(snippet).Error; err != nil {
		return nil, staleOnDuplicate(err)
	}
	return snippet, nil
}

func (r *CommunityRepository) Get(ctx context.Context, id string) (*model.Community, error) {
	return findCommunity(r.Ledger.DB.WithContext(ctx), id)
}

func (r *CommunityRepository) List(ctx context.Context, offset, limit int) ([]model.Community, error) {
	var list []model.Community
	err := r.Ledger.DB.WithContext(ctx).
		Order("number_of_members DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// UpdateImageURL 更新社区头像，同时刷新创建者 snippet 上的快照
func (r *CommunityRepository) UpdateImageURL(ctx context.Context, id, url string) error {
	return r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		c, err := findCommunity(tx, id)
		if err != nil {
			return err
		}
		if err := casUpdate(tx, &model.Community{}, id, c.Version, map[string]any{"image_url": url}); err != nil {
			return err
		}
		return tx.Model(&model.CommunitySnippet{}).
			Where("community_id = ? AND user_id = ?", id, c.CreatorID).
			UpdateColumn("image_url", url).Error
	})
}

type RequestRepository struct {
	Ledger *Ledger
}

func NewRequestRepository(l *Ledger) *RequestRepository {
	return &RequestRepository{Ledger: l}
}

func (r *RequestRepository) Create(ctx context.Context, req *model.CommunityRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = model.RequestPending
	return r.Ledger.DB.WithContext(ctx).Create(req).Error
}

func (r *RequestRepository) List(ctx context.Context, status model.RequestStatus) ([]model.CommunityRequest, error) {
	q := r.Ledger.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []model.CommunityRequest
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Approve 用与直接创建相同的事务建社区，并在同一事务里把申请标记为 approved
func (r *RequestRepository) Approve(ctx context.Context, requestID string, reviewerID uint64) (*model.Community, *model.CommunityRequest, error) {
	var (
		community *model.Community
		request   model.CommunityRequest
	)
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		if err := loadPendingRequest(tx, requestID, &request); err != nil {
			return err
		}
		c := &model.Community{
			ID:          request.Name,
			CreatorID:   request.RequesterID,
			PrivacyType: request.PrivacyType,
		}
		if _, err := createCommunityTx(tx, c); err != nil {
			return err
		}
		if err := markReviewed(tx, &request, model.RequestApproved, reviewerID); err != nil {
			return err
		}
		community = c
		return insertOutbox(tx, model.EventRequestApproved, c.ID, c.CreatorID, map[string]any{
			"request_id":  request.ID,
			"reviewer_id": reviewerID,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return community, &request, nil
}

func (r *RequestRepository) Reject(ctx context.Context, requestID string, reviewerID uint64) (*model.CommunityRequest, error) {
	var request model.CommunityRequest
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		if err := loadPendingRequest(tx, requestID, &request); err != nil {
			return err
		}
		return markReviewed(tx, &request, model.RequestRejected, reviewerID)
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func loadPendingRequest(tx *gorm.DB, id string, req *model.CommunityRequest) error {
	if err := tx.Where("id = ?", id).First(req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NewNotFoundError("community request", id)
		}
		return err
	}
	if req.Status != model.RequestPending {
		return model.NewValidationError("request already " + string(req.Status))
	}
	return nil
}

// markReviewed 只更新仍处于 pending 的申请，并发审批时后到者重试后会看到新状态
func markReviewed(tx *gorm.DB, req *model.CommunityRequest, status model.RequestStatus, reviewerID uint64) error {
	now := time.Now()
	res := tx.Model(&model.CommunityRequest{}).
		Where("id = ? AND status = ?", req.ID, model.RequestPending).
		Updates(map[string]any{"status": status, "reviewer_id": reviewerID, "reviewed_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	req.Status = status
	req.ReviewerID = &reviewerID
	req.ReviewedAt = &now
	return nil
}
