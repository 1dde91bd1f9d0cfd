package repository

import (
	"context"
	"errors"

	"echoverse/internal/models"
	"echoverse/internal/visibility"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, viewer visibility.Viewer, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, viewer visibility.Viewer, postID uint, limit, offset int) ([]models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create adds a comment after confirming the parent post is visible to the
// commenter. Commenting on a post you cannot see is a not-found, not a
// forbidden, so block relations are not revealed.
func (r *commentRepository) Create(ctx context.Context, viewer visibility.Viewer, comment *models.Comment) error {
	var post models.Post
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(visibility.ScopePosts(viewer)).
		Where("posts.id = ?", comment.PostID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", comment.PostID)
		}
		return models.NewInternalError(err)
	}

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByPost returns a post's comments oldest first. Comments by users in a
// block relation with the viewer are dropped from the listing.
func (r *commentRepository) ListByPost(ctx context.Context, viewer visibility.Viewer, postID uint, limit, offset int) ([]models.Comment, error) {
	var comments []models.Comment
	q := r.db.WithContext(ctx).Model(&models.Comment{}).
		Scopes(visibility.ScopeComments(viewer)).
		Where("comments.post_id = ?", postID).
		Preload("User").
		Order("comments.created_at ASC").
		Limit(limit).Offset(offset)
	if err := q.Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
