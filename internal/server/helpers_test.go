package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = parsePagination(c, 20)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name   string
		url    string
		limit  int
		offset int
	}{
		{"defaults", "/", 20, 0},
		{"explicit values", "/?limit=5&offset=10", 5, 10},
		{"limit capped", "/?limit=9999", 100, 0},
		{"negative values fall back", "/?limit=-1&offset=-5", 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := app.Test(httptest.NewRequest(http.MethodGet, tt.url, nil)); err != nil {
				t.Fatalf("request: %v", err)
			}
			if got.Limit != tt.limit || got.Offset != tt.offset {
				t.Errorf("got limit=%d offset=%d, want limit=%d offset=%d",
					got.Limit, got.Offset, tt.limit, tt.offset)
			}
		})
	}
}

func TestRequestLang(t *testing.T) {
	app := fiber.New()
	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = requestLang(c)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"default english", "/", "", "en"},
		{"query parameter", "/?lang=dk", "", "dk"},
		{"legacy alias", "/?lan=sp", "", "sp"},
		{"header", "/", "sp", "sp"},
		{"query wins over header", "/?lang=dk", "sp", "dk"},
		{"unsupported falls back", "/?lang=fr", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("X-Language", tt.header)
			}
			if _, err := app.Test(req); err != nil {
				t.Fatalf("request: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
