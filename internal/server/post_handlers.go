package server

import (
	"errors"
	"mime/multipart"
	"strings"

	"echoverse/internal/models"
	"echoverse/internal/observability"
	"echoverse/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// storeAudioUpload validates and stores an uploaded audio file, returning the
// blob key.
func (s *Server) storeAudioUpload(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	if !validation.ValidAudioExt(file.Filename) {
		return "", models.NewValidationError("Unsupported audio format")
	}

	f, err := file.Open()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer f.Close()

	key, err := s.blobs.Put(c.Context(), "audio", file.Filename,
		file.Header.Get("Content-Type"), f, file.Size)
	if err != nil {
		observability.MediaUploads.WithLabelValues(models.MediaTypeAudio, "error").Inc()
		return "", models.NewInternalError(err)
	}
	observability.MediaUploads.WithLabelValues(models.MediaTypeAudio, "ok").Inc()
	return key, nil
}

// CreatePost handles POST /api/posts. Multipart form with fields content,
// tags (comma-separated) and an optional audio file named media.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	content := strings.TrimSpace(c.FormValue("content"))
	file, fileErr := c.FormFile("media")
	hasMedia := fileErr == nil && file != nil

	if err := validation.ValidateContent(content, hasMedia); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	tags := validation.NormalizeTags(strings.Split(c.FormValue("tags"), ","))

	post := &models.Post{
		UserID:  userID,
		Content: content,
	}

	// Store media first so a failed insert never leaves a row pointing at
	// bytes that were never written.
	if hasMedia {
		key, err := s.storeAudioUpload(c, file)
		if err != nil {
			return models.RespondError(c, err)
		}
		post.MediaPath = key
		post.MediaType = models.MediaTypeAudio
	}

	if err := s.postRepo.Create(c.Context(), post, tags); err != nil {
		if post.MediaPath != "" {
			_ = s.blobs.Remove(c.Context(), post.MediaPath)
		}
		return models.RespondError(c, err)
	}

	created, err := s.postRepo.GetByID(c.Context(), s.viewer(c), post.ID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postRepo.GetByID(c.Context(), s.optionalViewer(c), id)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id. Only the author may edit; the tag
// set is replaced wholesale with whatever the request carries.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var post models.Post
	if dbErr := s.db.WithContext(c.Context()).First(&post, id).Error; dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return models.RespondError(c, models.NewNotFoundError("Post", id))
		}
		return models.RespondError(c, models.NewInternalError(dbErr))
	}
	if post.UserID != userID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You can only edit your own posts"))
	}

	content := strings.TrimSpace(c.FormValue("content"))
	file, fileErr := c.FormFile("media")
	newMedia := fileErr == nil && file != nil

	if err := validation.ValidateContent(content, newMedia || post.MediaPath != ""); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	tags := validation.NormalizeTags(strings.Split(c.FormValue("tags"), ","))

	oldMedia := ""
	post.Content = content
	if newMedia {
		key, upErr := s.storeAudioUpload(c, file)
		if upErr != nil {
			return models.RespondError(c, upErr)
		}
		oldMedia = post.MediaPath
		post.MediaPath = key
		post.MediaType = models.MediaTypeAudio
	}

	if err := s.postRepo.Update(c.Context(), &post, tags); err != nil {
		if newMedia {
			_ = s.blobs.Remove(c.Context(), post.MediaPath)
		}
		return models.RespondError(c, err)
	}
	// Old bytes are released only after the row points at the new key.
	if oldMedia != "" {
		_ = s.blobs.Remove(c.Context(), oldMedia)
	}

	updated, err := s.postRepo.GetByID(c.Context(), s.viewer(c), post.ID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(updated)
}

// DeletePost handles DELETE /api/posts/:id. The author or an admin may
// delete; likes, comments and media go with the post.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var post models.Post
	if dbErr := s.db.WithContext(c.Context()).First(&post, id).Error; dbErr != nil {
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return models.RespondError(c, models.NewNotFoundError("Post", id))
		}
		return models.RespondError(c, models.NewInternalError(dbErr))
	}

	if post.UserID != userID {
		admin, adminErr := s.isAdmin(c, userID)
		if adminErr != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(adminErr))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("You can only delete your own posts"))
		}
	}

	if err := s.postRepo.Delete(c.Context(), id); err != nil {
		return models.RespondError(c, err)
	}
	if post.MediaPath != "" {
		_ = s.blobs.Remove(c.Context(), post.MediaPath)
	}

	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// ToggleLike handles POST /api/posts/:id/like. One call likes, the next
// unlikes.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// Liking a post you cannot see is a not-found.
	if _, err := s.postRepo.GetByID(c.Context(), s.viewer(c), id); err != nil {
		return models.RespondError(c, err)
	}

	liked, total, err := s.postRepo.ToggleLike(c.Context(), userID, id)
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"liked":       liked,
		"total_likes": total,
	})
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewer := s.optionalViewer(c)

	if _, err := s.postRepo.GetByID(c.Context(), viewer, id); err != nil {
		return models.RespondError(c, err)
	}

	p := parsePagination(c, 50)
	comments, err := s.commentRepo.ListByPost(c.Context(), viewer, id, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateContent(req.Content, false); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	comment := &models.Comment{
		PostID:  id,
		UserID:  userID,
		Content: strings.TrimSpace(req.Content),
	}
	if err := s.commentRepo.Create(c.Context(), s.viewer(c), comment); err != nil {
		return models.RespondError(c, err)
	}

	created, err := s.commentRepo.GetByID(c.Context(), comment.ID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId. The
// comment author or an admin may delete.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	comment, err := s.commentRepo.GetByID(c.Context(), commentID)
	if err != nil {
		return models.RespondError(c, err)
	}
	if comment.PostID != postID {
		return models.RespondError(c, models.NewNotFoundError("Comment", commentID))
	}

	if comment.UserID != userID {
		admin, adminErr := s.isAdmin(c, userID)
		if adminErr != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(adminErr))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("You can only delete your own comments"))
		}
	}

	if err := s.commentRepo.Delete(c.Context(), commentID); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
