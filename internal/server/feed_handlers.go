package server

import (
	"strings"

	"echoverse/internal/i18n"
	"echoverse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/posts. The feed is global and reverse
// chronological; only the visibility rules narrow it.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	posts, err := s.postRepo.Feed(c.Context(), s.viewer(c), p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// ExplorePosts handles GET /api/posts/explore?tag=name. Without a tag it
// lists recent posts across the whole site.
func (s *Server) ExplorePosts(c *fiber.Ctx) error {
	viewer := s.optionalViewer(c)
	p := parsePagination(c, 20)

	tag := strings.TrimSpace(c.Query("tag"))
	if tag != "" {
		posts, err := s.postRepo.ListByTag(c.Context(), viewer, tag, p.Limit, p.Offset)
		if err != nil {
			return models.RespondError(c, err)
		}
		return c.JSON(posts)
	}

	posts, err := s.postRepo.Search(c.Context(), viewer, "", p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// requireQuery pulls the q parameter or writes a 400.
func requireQuery(c *fiber.Ctx) (string, error) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Query parameter q is required"))
		return "", errResponseWritten
	}
	return q, nil
}

// SearchUsers handles GET /api/search/users?q=
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	q, err := requireQuery(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	users, err := s.userRepo.Search(c.Context(), s.optionalViewer(c), q, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(users)
}

// SearchPosts handles GET /api/search/posts?q=
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	q, err := requireQuery(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, err := s.postRepo.Search(c.Context(), s.optionalViewer(c), q, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// SearchSongs handles GET /api/search/songs?q=; only audio posts match.
func (s *Server) SearchSongs(c *fiber.Ctx) error {
	q, err := requireQuery(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, err := s.postRepo.SearchSongs(c.Context(), s.optionalViewer(c), q, p.Limit, p.Offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// SearchTags handles GET /api/search/tags?q=
func (s *Server) SearchTags(c *fiber.Ctx) error {
	q, err := requireQuery(c)
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	tags, err := s.postRepo.SearchTags(c.Context(), s.optionalViewer(c), q, p.Limit)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(tags)
}

// TrendingTags handles GET /api/tags/trending
func (s *Server) TrendingTags(c *fiber.Ctx) error {
	p := parsePagination(c, 10)

	tags, err := s.postRepo.TrendingTags(c.Context(), s.optionalViewer(c), p.Limit)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(tags)
}

// GetDictionary handles GET /api/dictionary, returning the full translation
// bundle for the requested language.
func (s *Server) GetDictionary(c *fiber.Ctx) error {
	lang := requestLang(c)
	return c.JSON(fiber.Map{
		"lang":    lang,
		"entries": i18n.Dict(lang),
	})
}
