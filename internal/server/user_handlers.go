package server

import (
	"errors"
	"strings"
	"time"

	"echoverse/internal/i18n"
	"echoverse/internal/models"
	"echoverse/internal/validation"
	"echoverse/internal/visibility"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	followers, err := s.graphRepo.FollowerCount(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}
	following, err := s.graphRepo.FollowingCount(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":            user,
		"follower_count":  followers,
		"following_count": following,
	})
}

// UpdateMyProfile handles PUT /api/users/me for name and bio.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Name *string `json:"name"`
		Bio  *string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	if req.Name != nil {
		if err := validation.ValidateName(*req.Name); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		if err := validation.ValidateBio(*req.Bio); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		user.Bio = *req.Bio
	}

	if err := s.userRepo.Update(c.Context(), user); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// UploadAvatar handles POST /api/users/me/avatar. The image is stored before
// the user row is updated; the previous avatar is removed afterwards.
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	file, err := c.FormFile("avatar")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Avatar file is required"))
	}
	if !validation.ValidImageExt(file.Filename) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported image format"))
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	f, err := file.Open()
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}
	defer f.Close()

	key, err := s.blobs.Put(c.Context(), "avatars", file.Filename,
		file.Header.Get("Content-Type"), f, file.Size)
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}

	oldAvatar := user.Avatar
	user.Avatar = key
	if err := s.userRepo.Update(c.Context(), user); err != nil {
		_ = s.blobs.Remove(c.Context(), key)
		return models.RespondError(c, err)
	}
	if oldAvatar != "" {
		_ = s.blobs.Remove(c.Context(), oldAvatar)
	}

	return c.JSON(fiber.Map{
		"avatar":     key,
		"avatar_url": s.blobs.URL(key),
	})
}

// DeleteMyAccount handles DELETE /api/users/me. Everything the user owns is
// removed.
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	lang := requestLang(c)
	userID := c.Locals("userID").(uint)

	// Collect media keys before the rows disappear.
	var mediaKeys []string
	if err := s.db.WithContext(c.Context()).Model(&models.Post{}).
		Where("user_id = ? AND media_path <> ''", userID).
		Pluck("media_path", &mediaKeys).Error; err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}
	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}

	if err := s.userRepo.Delete(c.Context(), userID); err != nil {
		return models.RespondError(c, err)
	}

	for _, key := range mediaKeys {
		_ = s.blobs.Remove(c.Context(), key)
	}
	if user.Avatar != "" {
		_ = s.blobs.Remove(c.Context(), user.Avatar)
	}

	// The bearer token outlives the account; revoke it.
	if jti, _ := c.Locals("jti").(string); jti != "" && s.redis != nil {
		exp, _ := c.Locals("exp").(int64)
		ttl := time.Until(time.Unix(exp, 0))
		if ttl <= 0 {
			ttl = time.Minute
		}
		_ = s.redis.Set(c.Context(), "blacklist:"+jti, "1", ttl).Err()
	}

	return c.JSON(fiber.Map{"message": i18n.T(lang, "account_deleted")})
}

// GetBlockedUsers handles GET /api/users/me/blocked
func (s *Server) GetBlockedUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	users, err := s.graphRepo.BlockedUsers(c.Context(), userID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(users)
}

// ToggleFollow handles POST /api/users/:id/follow
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	lang := requestLang(c)
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	following, err := s.graphRepo.ToggleFollow(c.Context(), userID, id)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "FORBIDDEN" {
			return models.RespondWithError(c, fiber.StatusForbidden,
				localized("FORBIDDEN", lang, "cannot_follow"))
		}
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"following": following})
}

// ToggleBlock handles POST /api/users/:id/block
func (s *Server) ToggleBlock(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	blocking, err := s.graphRepo.ToggleBlock(c.Context(), userID, id)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{"blocking": blocking})
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewer := s.viewer(c)

	if err := s.requireVisibleProfile(c, viewer, id); err != nil {
		return nil
	}

	p := parsePagination(c, 50)
	users, err := s.graphRepo.Followers(c.Context(), viewer, id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewer := s.viewer(c)

	if err := s.requireVisibleProfile(c, viewer, id); err != nil {
		return nil
	}

	p := parsePagination(c, 50)
	users, err := s.graphRepo.Following(c.Context(), viewer, id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(users)
}

// GetUserPosts handles GET /api/users/:id/posts
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewer := s.viewer(c)

	if err := s.requireVisibleProfile(c, viewer, id); err != nil {
		return nil
	}

	p := parsePagination(c, 20)
	posts, err := s.postRepo.ListByUser(c.Context(), viewer, id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// GetUserProfile handles GET /api/users/:id. A block in either direction
// makes the profile read as not found.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewer := s.viewer(c)

	user, err := s.userRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondError(c, err)
	}

	visible, err := visibility.CanViewProfile(c.Context(), s.db, viewer, user)
	if err != nil {
		return models.RespondError(c, err)
	}
	if !visible {
		return models.RespondError(c, models.NewNotFoundError("User", id))
	}

	followers, err := s.graphRepo.FollowerCount(c.Context(), id)
	if err != nil {
		return models.RespondError(c, err)
	}
	following, err := s.graphRepo.FollowingCount(c.Context(), id)
	if err != nil {
		return models.RespondError(c, err)
	}

	isFollowing := false
	if viewer.ID != 0 && viewer.ID != id {
		isFollowing, err = s.graphRepo.IsFollowing(c.Context(), viewer.ID, id)
		if err != nil {
			return models.RespondError(c, err)
		}
	}

	posts, err := s.postRepo.ListByUser(c.Context(), viewer, id, 20, 0)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":            user,
		"follower_count":  followers,
		"following_count": following,
		"is_following":    isFollowing,
		"posts":           posts,
	})
}

// requireVisibleProfile writes a 404 and returns errResponseWritten when the
// target profile is hidden from the viewer.
func (s *Server) requireVisibleProfile(c *fiber.Ctx, viewer visibility.Viewer, targetID uint) error {
	user, err := s.userRepo.GetByID(c.Context(), targetID)
	if err != nil {
		_ = models.RespondError(c, err)
		return errResponseWritten
	}
	visible, err := visibility.CanViewProfile(c.Context(), s.db, viewer, user)
	if err != nil {
		_ = models.RespondError(c, err)
		return errResponseWritten
	}
	if !visible {
		_ = models.RespondError(c, models.NewNotFoundError("User", targetID))
		return errResponseWritten
	}
	return nil
}
