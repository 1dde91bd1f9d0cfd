package server

import (
	"errors"
	"log/slog"

	"echoverse/internal/middleware"
	"echoverse/internal/models"
	"echoverse/internal/observability"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminListUsers handles GET /api/admin/users. Moderation-hidden accounts
// are included; admins see everything.
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	p := parsePagination(c, 50)

	users, err := s.userRepo.List(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	total, err := s.userRepo.Count(c.Context())
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
	})
}

// AdminListPosts handles GET /api/admin/posts without visibility filtering.
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 50)

	posts, err := s.postRepo.List(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	total, err := s.postRepo.Count(c.Context())
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts": posts,
		"total": total,
	})
}

// AdminToggleUserBlock handles POST /api/admin/users/:id/toggle-block. Each
// call flips the flag, writes an audit row and notifies the user by email.
// The email is best-effort; the moderation action stands without it.
func (s *Server) AdminToggleUserBlock(c *fiber.Ctx) error {
	adminID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if id == adminID {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("You cannot block your own account"))
	}

	user, err := s.userRepo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondError(c, err)
	}

	blocked := !user.IsBlocked
	if err := s.userRepo.SetBlocked(c.Context(), id, blocked); err != nil {
		return models.RespondError(c, err)
	}

	action := models.ActionUnblockUser
	if blocked {
		action = models.ActionBlockUser
	}
	if err := s.adminLogRepo.Record(c.Context(), &models.AdminLog{
		AdminID:      adminID,
		Action:       action,
		TargetUserID: &id,
	}); err != nil {
		return models.RespondError(c, err)
	}
	observability.ModerationActions.WithLabelValues(action).Inc()

	if mailErr := s.mailer.SendModerationNotice(user.Email, user.Name, blocked); mailErr != nil {
		middleware.Logger.WarnContext(c.UserContext(), "moderation notice email failed",
			slog.Any("user_id", id), slog.String("error", mailErr.Error()))
	}

	return c.JSON(fiber.Map{"blocked": blocked})
}

// AdminTogglePostBlock handles POST /api/admin/posts/:id/toggle-block. The
// post owner is notified by email, best-effort like the user path.
func (s *Server) AdminTogglePostBlock(c *fiber.Ctx) error {
	adminID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var post models.Post
	if dbErr := s.db.WithContext(c.Context()).Preload("User").First(&post, id).Error; dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return models.RespondError(c, models.NewNotFoundError("Post", id))
		}
		return models.RespondError(c, models.NewInternalError(dbErr))
	}

	blocked := !post.IsBlocked
	if err := s.postRepo.SetBlocked(c.Context(), id, blocked); err != nil {
		return models.RespondError(c, err)
	}

	action := models.ActionUnblockPost
	if blocked {
		action = models.ActionBlockPost
	}
	if err := s.adminLogRepo.Record(c.Context(), &models.AdminLog{
		AdminID:      adminID,
		Action:       action,
		TargetPostID: &id,
	}); err != nil {
		return models.RespondError(c, err)
	}
	observability.ModerationActions.WithLabelValues(action).Inc()

	if post.User.Email != "" {
		if mailErr := s.mailer.SendModerationNotice(post.User.Email, post.User.Name, blocked); mailErr != nil {
			middleware.Logger.WarnContext(c.UserContext(), "moderation notice email failed",
				slog.Any("post_id", id), slog.String("error", mailErr.Error()))
		}
	}

	return c.JSON(fiber.Map{"blocked": blocked})
}

// AdminListLogs handles GET /api/admin/logs, newest first.
func (s *Server) AdminListLogs(c *fiber.Ctx) error {
	p := parsePagination(c, 50)

	logs, err := s.adminLogRepo.List(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(logs)
}
