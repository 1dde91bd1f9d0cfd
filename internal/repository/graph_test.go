package repository

import (
	"context"
	"errors"
	"testing"

	"echoverse/internal/models"
	"echoverse/internal/visibility"
)

func TestToggleFollow(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "f-alice")
	bob := mustCreateUser(t, db, "f-bob")

	t.Run("follow then unfollow", func(t *testing.T) {
		following, err := repo.ToggleFollow(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("first toggle: %v", err)
		}
		if !following {
			t.Error("first toggle should follow")
		}

		following, err = repo.ToggleFollow(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("second toggle: %v", err)
		}
		if following {
			t.Error("second toggle should unfollow")
		}
	})

	t.Run("self follow rejected", func(t *testing.T) {
		_, err := repo.ToggleFollow(ctx, alice.ID, alice.ID)
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_ERROR" {
			t.Errorf("expected VALIDATION_ERROR, got %v", err)
		}
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := repo.ToggleFollow(ctx, alice.ID, 9999)
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
			t.Errorf("expected NOT_FOUND, got %v", err)
		}
	})
}

func TestBlockSeversFollows(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "b-alice")
	bob := mustCreateUser(t, db, "b-bob")

	if _, err := repo.ToggleFollow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("alice follows bob: %v", err)
	}
	if _, err := repo.ToggleFollow(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("bob follows alice: %v", err)
	}

	blocking, err := repo.ToggleBlock(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if !blocking {
		t.Error("toggle should create the block")
	}

	var follows int64
	db.Model(&models.Follow{}).Count(&follows)
	if follows != 0 {
		t.Errorf("block should sever follows in both directions, %d remain", follows)
	}
}

func TestFollowWhileBlockedRejected(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	alice := mustCreateUser(t, db, "w-alice")
	bob := mustCreateUser(t, db, "w-bob")

	if _, err := repo.ToggleBlock(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("block: %v", err)
	}

	var appErr *models.AppError

	// the blocked user cannot follow the blocker
	if _, err := repo.ToggleFollow(ctx, bob.ID, alice.ID); !errors.As(err, &appErr) || appErr.Code != "FORBIDDEN" {
		t.Errorf("blocked direction: expected FORBIDDEN, got %v", err)
	}
	// and the blocker cannot follow either
	if _, err := repo.ToggleFollow(ctx, alice.ID, bob.ID); !errors.As(err, &appErr) || appErr.Code != "FORBIDDEN" {
		t.Errorf("blocker direction: expected FORBIDDEN, got %v", err)
	}

	// unblocking restores the ability to follow
	if _, err := repo.ToggleBlock(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if _, err := repo.ToggleFollow(ctx, bob.ID, alice.ID); err != nil {
		t.Errorf("follow after unblock: %v", err)
	}
}

func TestFollowerListsRespectVisibility(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewGraphRepository(db)
	ctx := context.Background()

	star := mustCreateUser(t, db, "star")
	fan := mustCreateUser(t, db, "fan")
	rival := mustCreateUser(t, db, "rival")

	for _, follower := range []models.User{fan, rival} {
		if _, err := repo.ToggleFollow(ctx, follower.ID, star.ID); err != nil {
			t.Fatalf("follow: %v", err)
		}
	}
	if _, err := repo.ToggleBlock(ctx, fan.ID, rival.ID); err != nil {
		t.Fatalf("block: %v", err)
	}

	followers, err := repo.Followers(ctx, visibility.Viewer{ID: fan.ID}, star.ID, 20, 0)
	if err != nil {
		t.Fatalf("followers: %v", err)
	}
	for _, u := range followers {
		if u.ID == rival.ID {
			t.Error("blocked user should not appear in follower list")
		}
	}

	count, err := repo.FollowerCount(ctx, star.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("raw follower count is unfiltered, expected 2 got %d", count)
	}
}
