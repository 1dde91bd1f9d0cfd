package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"echoverse/internal/models"
	"echoverse/internal/visibility"

	"gorm.io/gorm"
)

// TrendingWindow is how far back trending tag counts look.
const TrendingWindow = 7 * 24 * time.Hour

// trendingMinTags is the minimum result size before trending falls back to
// an all-time count.
const trendingMinTags = 3

// PostRepository defines persistence operations for posts, likes and tags.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, tagNames []string) error
	GetByID(ctx context.Context, viewer visibility.Viewer, id uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post, tagNames []string) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, userID, postID uint) (bool, int, error)
	Feed(ctx context.Context, viewer visibility.Viewer, limit, offset int) ([]models.Post, error)
	ListByUser(ctx context.Context, viewer visibility.Viewer, userID uint, limit, offset int) ([]models.Post, error)
	ListByTag(ctx context.Context, viewer visibility.Viewer, tag string, limit, offset int) ([]models.Post, error)
	Search(ctx context.Context, viewer visibility.Viewer, query string, limit, offset int) ([]models.Post, error)
	SearchSongs(ctx context.Context, viewer visibility.Viewer, query string, limit, offset int) ([]models.Post, error)
	SearchTags(ctx context.Context, viewer visibility.Viewer, query string, limit int) ([]models.TagCount, error)
	TrendingTags(ctx context.Context, viewer visibility.Viewer, limit int) ([]models.TagCount, error)
	List(ctx context.Context, limit, offset int) ([]models.Post, error)
	SetBlocked(ctx context.Context, id uint, blocked bool) error
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withComputed adds the per-row comment count and whether the viewer liked
// the post. A zero viewer ID matches no like rows.
func withComputed(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Select(
		"posts.*, "+
			"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count, "+
			"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) > 0 AS liked",
		viewerID,
	)
}

func (r *postRepository) Create(ctx context.Context, post *models.Post, tagNames []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := getOrCreateTags(tx, tagNames)
		if err != nil {
			return err
		}
		post.Tags = tags
		return tx.Create(post).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// getOrCreateTags resolves tag names to rows, creating missing ones. Names
// must already be normalized.
func getOrCreateTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		err := tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				// Lost a race with a concurrent insert of the same name.
				if !isUniqueConstraintError(err) {
					return nil, err
				}
				if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
					return nil, err
				}
			}
		} else if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *postRepository) GetByID(ctx context.Context, viewer visibility.Viewer, id uint) (*models.Post, error) {
	var post models.Post
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(visibility.ScopePosts(viewer)).
		Preload("User").Preload("Tags")
	err := withComputed(q, viewer.ID).Where("posts.id = ?", id).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// Update saves the post and replaces its tag set wholesale.
func (r *postRepository) Update(ctx context.Context, post *models.Post, tagNames []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := getOrCreateTags(tx, tagNames)
		if err != nil {
			return err
		}
		if err := tx.Model(post).Select("Content", "MediaPath", "MediaType", "UpdatedAt").
			Updates(post).Error; err != nil {
			return err
		}
		if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
			return err
		}
		post.Tags = tags
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the post together with its likes, comments and tag links.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// ToggleLike adds or removes the user's like. The Like row and the
// denormalized counter change in the same transaction so they cannot drift.
// Returns whether the post is liked after the call and the new counter value.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, int, error) {
	var liked bool
	var total int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				Update("total_likes", gorm.Expr("total_likes - 1")).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&models.Like{UserID: userID, PostID: postID}).Error; err != nil {
				return err
			}
			liked = true
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				Update("total_likes", gorm.Expr("total_likes + 1")).Error; err != nil {
				return err
			}
		}

		return tx.Raw("SELECT total_likes FROM posts WHERE id = ?", postID).Scan(&total).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, models.NewNotFoundError("Post", postID)
		}
		return false, 0, models.NewInternalError(err)
	}
	return liked, total, nil
}

// Feed returns all recent posts the viewer may see, newest first. The feed
// is global; follows affect counts and profiles, not feed membership.
func (r *postRepository) Feed(ctx context.Context, viewer visibility.Viewer, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(visibility.ScopePosts(viewer)).
		Preload("User").Preload("Tags").
		Order("posts.created_at DESC").
		Limit(limit).Offset(offset)
	if err := withComputed(q, viewer.ID).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, viewer visibility.Viewer, userID uint, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(visibility.ScopePosts(viewer)).
		Where("posts.user_id = ?", userID).
		Preload("User").Preload("Tags").
		Order("posts.created_at DESC").
		Limit(limit).Offset(offset)
	if err := withComputed(q, viewer.ID).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByTag(ctx context.Context, viewer visibility.Viewer, tag string, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name = ?", strings.ToLower(tag)).
		Scopes(visibility.ScopePosts(viewer)).
		Preload("User").Preload("Tags").
		Order("posts.created_at DESC").
		Limit(limit).Offset(offset)
	if err := withComputed(q, viewer.ID).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Search matches post content or any attached tag name.
func (r *postRepository) Search(ctx context.Context, viewer visibility.Viewer, query string, limit, offset int) ([]models.Post, error) {
	return r.searchWhere(ctx, viewer, "", nil, query, limit, offset)
}

// SearchSongs searches audio posts only, matching content text or tag name.
func (r *postRepository) SearchSongs(ctx context.Context, viewer visibility.Viewer, query string, limit, offset int) ([]models.Post, error) {
	return r.searchWhere(ctx, viewer,
		"posts.media_type = ?", []interface{}{models.MediaTypeAudio}, query, limit, offset)
}

func (r *postRepository) searchWhere(ctx context.Context, viewer visibility.Viewer, cond string, args []interface{}, query string, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	pattern := likePattern(query)
	q := r.db.WithContext(ctx).Model(&models.Post{}).
		Distinct().
		Joins("LEFT JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("LEFT JOIN tags ON tags.id = post_tags.tag_id").
		Where("LOWER(posts.content) LIKE ? OR tags.name LIKE ?", pattern, pattern).
		Scopes(visibility.ScopePosts(viewer)).
		Preload("User").Preload("Tags").
		Order("posts.created_at DESC").
		Limit(limit).Offset(offset)
	if cond != "" {
		q = q.Where(cond, args...)
	}
	if err := withComputed(q, viewer.ID).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func likePattern(query string) string {
	return "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
}

// SearchTags returns tags whose name matches the query, with counts over the
// posts the viewer may see. Tags without a visible post are not reported.
func (r *postRepository) SearchTags(ctx context.Context, viewer visibility.Viewer, query string, limit int) ([]models.TagCount, error) {
	var out []models.TagCount
	err := r.db.WithContext(ctx).Table("tags").
		Select("tags.name AS name, COUNT(posts.id) AS post_count").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Scopes(visibility.ScopePosts(viewer)).
		Where("tags.name LIKE ?", likePattern(query)).
		Group("tags.name").
		Order("post_count DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// TrendingTags counts tag usage over the trending window, newest-heavy tags
// first with ties broken randomly. When fewer than three tags qualify the
// window is dropped and all-time counts are used instead.
func (r *postRepository) TrendingTags(ctx context.Context, viewer visibility.Viewer, limit int) ([]models.TagCount, error) {
	since := time.Now().Add(-TrendingWindow)

	out, err := r.trendingSince(ctx, viewer, &since, limit)
	if err != nil {
		return nil, err
	}
	if len(out) < trendingMinTags {
		return r.trendingSince(ctx, viewer, nil, limit)
	}
	return out, nil
}

func (r *postRepository) trendingSince(ctx context.Context, viewer visibility.Viewer, since *time.Time, limit int) ([]models.TagCount, error) {
	var out []models.TagCount
	q := r.db.WithContext(ctx).Table("tags").
		Select("tags.name AS name, COUNT(posts.id) AS post_count").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Scopes(visibility.ScopePosts(viewer)).
		Group("tags.name").
		Order("post_count DESC, RANDOM()").
		Limit(limit)
	if since != nil {
		q = q.Where("posts.created_at > ?", *since)
	}
	if err := q.Scan(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// List returns posts without visibility filtering, for the admin overview.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Preload("User").Preload("Tags").
		Order("posts.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) SetBlocked(ctx context.Context, id uint, blocked bool) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("is_blocked", blocked)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
