package repository

import (
	"context"
	"errors"
	"testing"

	"echoverse/internal/models"
	"echoverse/internal/visibility"
)

func TestUserCreateDuplicateEmail(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := models.User{Name: "First", Email: "dupe@example.com", PasswordHash: "x", Role: models.RoleMember}
	if err := repo.Create(ctx, &first); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := models.User{Name: "Second", Email: "dupe@example.com", PasswordHash: "x", Role: models.RoleMember}
	err := repo.Create(ctx, &second)
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != "CONFLICT" {
		t.Errorf("expected CONFLICT on duplicate email, got %v", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	mustCreateUser(t, db, "lookup")

	user, err := repo.GetByEmail(ctx, "LOOKUP@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if user == nil {
		t.Fatal("lookup should be case-insensitive")
	}

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("missing lookup: %v", err)
	}
	if missing != nil {
		t.Error("missing email should return nil without error")
	}
}

func TestUserDeleteCascade(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	graph := NewGraphRepository(db)
	ctx := context.Background()

	leaver := mustCreateUser(t, db, "leaver")
	stayer := mustCreateUser(t, db, "stayer")

	leaverPost := &models.Post{UserID: leaver.ID, Content: "going away"}
	stayerPost := &models.Post{UserID: stayer.ID, Content: "staying"}
	for _, p := range []*models.Post{leaverPost, stayerPost} {
		if err := posts.Create(ctx, p, []string{"farewell"}); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	// cross engagement in both directions
	if _, _, err := posts.ToggleLike(ctx, leaver.ID, stayerPost.ID); err != nil {
		t.Fatalf("leaver likes: %v", err)
	}
	if _, _, err := posts.ToggleLike(ctx, stayer.ID, leaverPost.ID); err != nil {
		t.Fatalf("stayer likes: %v", err)
	}
	if err := db.Create(&models.Comment{PostID: stayerPost.ID, UserID: leaver.ID, Content: "bye"}).Error; err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := graph.ToggleFollow(ctx, stayer.ID, leaver.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}

	if err := users.Delete(ctx, leaver.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var userRows, postRows, likeRows, commentRows, followRows int64
	db.Model(&models.User{}).Where("id = ?", leaver.ID).Count(&userRows)
	db.Model(&models.Post{}).Where("user_id = ?", leaver.ID).Count(&postRows)
	db.Model(&models.Like{}).Count(&likeRows)
	db.Model(&models.Comment{}).Count(&commentRows)
	db.Model(&models.Follow{}).Count(&followRows)
	if userRows != 0 || postRows != 0 || likeRows != 0 || commentRows != 0 || followRows != 0 {
		t.Errorf("cascade incomplete: users=%d posts=%d likes=%d comments=%d follows=%d",
			userRows, postRows, likeRows, commentRows, followRows)
	}

	// the surviving post's counter reflects the departed like
	var survivor models.Post
	db.First(&survivor, stayerPost.ID)
	if survivor.TotalLikes != 0 {
		t.Errorf("expected counter back at 0, got %d", survivor.TotalLikes)
	}
}

func TestUserSearch(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	graph := NewGraphRepository(db)
	ctx := context.Background()

	ana := mustCreateUser(t, db, "anastasia")
	mustCreateUser(t, db, "anatole")
	viewer := mustCreateUser(t, db, "searcher")

	if _, err := graph.ToggleBlock(ctx, ana.ID, viewer.ID); err != nil {
		t.Fatalf("block: %v", err)
	}

	found, err := repo.Search(ctx, visibility.Viewer{ID: viewer.ID}, "ANA", 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Name != "anatole" {
		t.Errorf("expected only anatole, got %d results", len(found))
	}

	t.Run("matches email", func(t *testing.T) {
		quiet := models.User{
			Name:         "Quiet Q",
			Email:        "loudhandle@example.com",
			PasswordHash: "hash",
			Role:         models.RoleMember,
			IsVerified:   true,
		}
		if err := db.Create(&quiet).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
		found, err := repo.Search(ctx, visibility.Viewer{ID: viewer.ID}, "loudhandle", 20, 0)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(found) != 1 || found[0].ID != quiet.ID {
			t.Errorf("expected a match on email, got %d results", len(found))
		}
	})
}
