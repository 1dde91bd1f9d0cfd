// Package visibility centralizes the rules that decide which posts and users
// a given viewer may see. Every feed, search, profile and explore query must
// go through these scopes instead of re-implementing the block checks.
package visibility

import (
	"context"
	"errors"

	"echoverse/internal/models"

	"gorm.io/gorm"
)

// Viewer identifies the user a query is answered for. A zero ID means an
// unauthenticated viewer. Admin viewers bypass moderation hiding and block
// exclusion entirely.
type Viewer struct {
	ID    uint
	Admin bool
}

// Anonymous is the viewer used for unauthenticated requests.
var Anonymous = Viewer{}

// blockedPeersSQL selects every user the viewer has blocked plus every user
// who has blocked the viewer. Blocks hide content in both directions.
const blockedPeersSQL = `SELECT blocked_id FROM user_blocks WHERE blocker_id = ?
UNION SELECT blocker_id FROM user_blocks WHERE blocked_id = ?`

// ScopePosts returns a GORM scope restricting a posts query to what the
// viewer may see: moderation-hidden posts and posts by moderation-hidden
// authors are excluded, as are posts by anyone in a block relation with the
// viewer.
func ScopePosts(viewer Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer.Admin {
			return db
		}
		db = db.
			Where("posts.is_blocked = ?", false).
			Where("posts.user_id NOT IN (SELECT id FROM users WHERE is_blocked = ?)", true)
		if viewer.ID != 0 {
			db = db.Where("posts.user_id NOT IN ("+blockedPeersSQL+")", viewer.ID, viewer.ID)
		}
		return db
	}
}

// ScopeUsers returns a GORM scope restricting a users query to what the
// viewer may see, with the same exclusion rules as ScopePosts.
func ScopeUsers(viewer Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer.Admin {
			return db
		}
		db = db.Where("users.is_blocked = ?", false)
		if viewer.ID != 0 {
			db = db.Where("users.id NOT IN ("+blockedPeersSQL+")", viewer.ID, viewer.ID)
		}
		return db
	}
}

// ScopeComments returns a GORM scope dropping comments whose authors the
// viewer may not see.
func ScopeComments(viewer Viewer) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewer.Admin {
			return db
		}
		db = db.Where("comments.user_id NOT IN (SELECT id FROM users WHERE is_blocked = ?)", true)
		if viewer.ID != 0 {
			db = db.Where("comments.user_id NOT IN ("+blockedPeersSQL+")", viewer.ID, viewer.ID)
		}
		return db
	}
}

// CanViewProfile reports whether the viewer may see the target user's profile
// page at all. A block in either direction makes the profile fully
// inaccessible, not partially hidden.
func CanViewProfile(ctx context.Context, db *gorm.DB, viewer Viewer, target *models.User) (bool, error) {
	if viewer.Admin {
		return true, nil
	}
	if target.IsBlocked {
		return false, nil
	}
	if viewer.ID == 0 || viewer.ID == target.ID {
		return true, nil
	}

	blocked, err := IsBlockedEitherDirection(ctx, db, viewer.ID, target.ID)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

// IsBlockedEitherDirection reports whether a block exists between the two
// users in either direction.
func IsBlockedEitherDirection(ctx context.Context, db *gorm.DB, a, b uint) (bool, error) {
	var block models.UserBlock
	err := db.WithContext(ctx).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		First(&block).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, models.NewInternalError(err)
	}
	return true, nil
}
