package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"echoverse/internal/models"

	"github.com/gofiber/fiber/v2"
)

func newPublicApp(s *Server) *fiber.App {
	app := fiber.New()
	app.Get("/api/posts/explore", s.ExplorePosts)
	app.Get("/api/search/users", s.SearchUsers)
	app.Get("/api/search/posts", s.SearchPosts)
	app.Get("/api/search/songs", s.SearchSongs)
	app.Get("/api/search/tags", s.SearchTags)
	app.Get("/api/tags/trending", s.TrendingTags)
	app.Get("/api/dictionary", s.GetDictionary)
	return app
}

func TestExploreAndSearch(t *testing.T) {
	t.Parallel()
	s, _, _ := setupTestServer(t)
	app := newPublicApp(s)

	author := createVerifiedUser(t, s, "pub-author", "hunter22")
	tag := models.Tag{Name: "synthwave"}
	if err := s.db.Create(&tag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	song := models.Post{UserID: author.ID, Content: "neon nights", MediaPath: "audio/x.mp3", MediaType: models.MediaTypeAudio, Tags: []models.Tag{tag}}
	text := models.Post{UserID: author.ID, Content: "neon thoughts"}
	for _, p := range []*models.Post{&song, &text} {
		if err := s.db.Create(p).Error; err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	t.Run("explore without tag lists recent posts", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/explore", nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var posts []models.Post
		json.NewDecoder(resp.Body).Decode(&posts)
		if len(posts) != 2 {
			t.Errorf("expected 2 posts, got %d", len(posts))
		}
	})

	t.Run("explore by tag", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/explore?tag=Synthwave", nil))
		var posts []models.Post
		json.NewDecoder(resp.Body).Decode(&posts)
		if len(posts) != 1 || posts[0].ID != song.ID {
			t.Errorf("expected only the tagged post, got %d", len(posts))
		}
	})

	t.Run("song search filters by media type", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/search/songs?q=neon", nil))
		var posts []models.Post
		json.NewDecoder(resp.Body).Decode(&posts)
		if len(posts) != 1 || posts[0].ID != song.ID {
			t.Errorf("expected only the audio post, got %d", len(posts))
		}
	})

	t.Run("user search", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/search/users?q=pub-", nil))
		var users []models.User
		json.NewDecoder(resp.Body).Decode(&users)
		if len(users) != 1 {
			t.Errorf("expected 1 user, got %d", len(users))
		}
	})

	t.Run("missing query", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/search/posts", nil))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("trending", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/tags/trending", nil))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var tags []models.TagCount
		json.NewDecoder(resp.Body).Decode(&tags)
		if len(tags) != 1 || tags[0].Name != "synthwave" {
			t.Errorf("expected synthwave trending, got %+v", tags)
		}
	})
}

func TestGetDictionary(t *testing.T) {
	t.Parallel()
	s, _, _ := setupTestServer(t)
	app := newPublicApp(s)

	req := httptest.NewRequest(http.MethodGet, "/api/dictionary?lang=dk", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Lang    string            `json:"lang"`
		Entries map[string]string `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Lang != "dk" {
		t.Errorf("expected dk, got %s", body.Lang)
	}
	if len(body.Entries) == 0 {
		t.Error("expected a populated dictionary")
	}

	t.Run("unknown language falls back to english", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/dictionary?lang=fr", nil))
		json.NewDecoder(resp.Body).Decode(&body)
		if body.Lang != "en" {
			t.Errorf("expected en fallback, got %s", body.Lang)
		}
	})
}
