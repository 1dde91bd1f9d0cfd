// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// MaxContentLength is the character limit for post and comment bodies.
const MaxContentLength = 500

// MediaTypeAudio is the media kind for audio uploads attached to posts.
const MediaTypeAudio = "audio"

// Post represents a post in the EchoVerse application. Content may be empty
// when media is attached, but never both.
type Post struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	User      User   `gorm:"foreignKey:UserID" json:"user"`
	Content   string `gorm:"type:text" json:"content"`
	MediaPath string `json:"media_path"`
	MediaType string `gorm:"type:varchar(20)" json:"media_type"`
	// TotalLikes is denormalized; it is mutated in the same transaction as the
	// Like row so it always equals the Like row count.
	TotalLikes int       `gorm:"not null;default:0" json:"total_likes"`
	IsBlocked  bool      `gorm:"not null;default:false" json:"is_blocked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Tags []Tag `gorm:"many2many:post_tags" json:"tags,omitempty"`
	// CommentCount is not persisted; computed at query time.
	CommentCount int `gorm:"->;-:migration" json:"comment_count"`
	// Liked indicates whether the requesting user liked this post (computed).
	Liked bool `gorm:"->;-:migration" json:"liked"`
}

// Comment represents a comment on a post. Comments are never edited; they are
// removed only when the parent post or the author account is deleted.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Like represents a user's like on a post.
// The combination of UserID and PostID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is a normalized, lowercase label attached to posts via post_tags.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"unique;not null" json:"name"`
}

// TagCount pairs a tag name with how many posts carry it; used by trending
// and explore listings.
type TagCount struct {
	Name      string `json:"name"`
	PostCount int    `json:"post_count"`
}
