package repository

import (
	"context"
	"errors"

	"echoverse/internal/models"
	"echoverse/internal/visibility"

	"gorm.io/gorm"
)

// GraphRepository manages follow and block edges between users.
type GraphRepository interface {
	ToggleFollow(ctx context.Context, followerID, followingID uint) (bool, error)
	ToggleBlock(ctx context.Context, blockerID, blockedID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	Followers(ctx context.Context, viewer visibility.Viewer, userID uint, limit, offset int) ([]models.User, error)
	Following(ctx context.Context, viewer visibility.Viewer, userID uint, limit, offset int) ([]models.User, error)
	FollowerCount(ctx context.Context, userID uint) (int64, error)
	FollowingCount(ctx context.Context, userID uint) (int64, error)
	BlockedUsers(ctx context.Context, blockerID uint) ([]models.User, error)
}

type graphRepository struct {
	db *gorm.DB
}

// NewGraphRepository returns a new GraphRepository implementation.
func NewGraphRepository(db *gorm.DB) GraphRepository {
	return &graphRepository{db: db}
}

// ToggleFollow creates the follow edge if absent and removes it if present.
// Returns whether the follower is following after the call. Following is
// refused while a block exists in either direction.
func (r *graphRepository) ToggleFollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	if followerID == followingID {
		return false, models.NewValidationError("You cannot follow yourself")
	}

	var target models.User
	if err := r.db.WithContext(ctx).First(&target, followingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, models.NewNotFoundError("User", followingID)
		}
		return false, models.NewInternalError(err)
	}

	blocked, err := visibility.IsBlockedEitherDirection(ctx, r.db, followerID, followingID)
	if err != nil {
		return false, err
	}
	if blocked || target.IsBlocked {
		return false, models.NewForbiddenError("You cannot follow this user")
	}

	var following bool
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).
			Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}
		following = true
		return tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return following, nil
}

// ToggleBlock creates the block edge if absent and removes it if present.
// Returns whether the blocker is blocking after the call. Creating a block
// severs follow edges in both directions in the same transaction.
func (r *graphRepository) ToggleBlock(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	if blockerID == blockedID {
		return false, models.NewValidationError("You cannot block yourself")
	}

	var target models.User
	if err := r.db.WithContext(ctx).First(&target, blockedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, models.NewNotFoundError("User", blockedID)
		}
		return false, models.NewInternalError(err)
	}

	var blocking bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
			Delete(&models.UserBlock{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			blocking = false
			return nil
		}

		if err := tx.Create(&models.UserBlock{BlockerID: blockerID, BlockedID: blockedID}).Error; err != nil {
			return err
		}
		if err := tx.Where(
			"(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			blockerID, blockedID, blockedID, blockerID,
		).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		blocking = true
		return nil
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return blocking, nil
}

func (r *graphRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *graphRepository) Followers(ctx context.Context, viewer visibility.Viewer, userID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Scopes(visibility.ScopeUsers(viewer)).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *graphRepository) Following(ctx context.Context, viewer visibility.Viewer, userID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", userID).
		Scopes(visibility.ScopeUsers(viewer)).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *graphRepository) FollowerCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *graphRepository) FollowingCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// BlockedUsers lists the users the blocker has blocked, for the settings page.
func (r *graphRepository) BlockedUsers(ctx context.Context, blockerID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN user_blocks ON user_blocks.blocked_id = users.id").
		Where("user_blocks.blocker_id = ?", blockerID).
		Order("user_blocks.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
