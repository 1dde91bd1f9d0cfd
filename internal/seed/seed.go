// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"echoverse/internal/models"
	"echoverse/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

var tagPool = []string{
	"music", "indie", "electronic", "jazz", "hiphop", "ambient", "vocals",
	"guitar", "piano", "synth", "drums", "cover", "original", "demo",
	"nightowl", "studio", "live", "remix", "chill", "lofi",
}

var audioExts = []string{"mp3", "wav", "ogg", "m4a"}

// Seed populates the database with demo data: a known admin account,
// verified members, posts with tags and audio, follows, likes and comments.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)
	gofakeit.Seed(time.Now().UnixNano())

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("warning: could not clear all existing data, continuing anyway")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	posts, err := createPosts(db, users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	if err := createFollows(db, users); err != nil {
		return fmt.Errorf("failed to create follows: %w", err)
	}

	if err := createEngagement(db, users, posts); err != nil {
		return fmt.Errorf("failed to create likes and comments: %w", err)
	}

	log.Println("seeding complete; all demo users share the password: password123")
	return nil
}

func clearData(db *gorm.DB) error {
	tables := []string{
		"admin_logs", "auth_tokens", "likes", "comments", "post_tags",
		"posts", "tags", "follows", "user_blocks", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func createUsers(db *gorm.DB, count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count+1)

	admin := models.User{
		Name:         "Echo Admin",
		Email:        "admin@echoverse.local",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsVerified:   true,
		Bio:          "Keeping the timeline tidy.",
	}
	if err := db.FirstOrCreate(&admin, models.User{Email: admin.Email}).Error; err != nil {
		return nil, err
	}
	users = append(users, admin)

	for i := 0; i < count; i++ {
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		user := models.User{
			Name:         first + " " + last,
			Email:        fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			PasswordHash: string(hash),
			Role:         models.RoleMember,
			IsVerified:   true,
			Bio:          gofakeit.Sentence(8),
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func randomTags() []string {
	n := 1 + rand.Intn(4)
	picked := make([]string, 0, n)
	for i := 0; i < n; i++ {
		picked = append(picked, tagPool[rand.Intn(len(tagPool))])
	}
	return validation.NormalizeTags(picked)
}

func createPosts(db *gorm.DB, users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		post := models.Post{
			UserID:  author.ID,
			Content: gofakeit.Sentence(6 + rand.Intn(12)),
		}
		// roughly a third of seeded posts carry an audio track
		if rand.Intn(3) == 0 {
			ext := audioExts[rand.Intn(len(audioExts))]
			post.MediaPath = fmt.Sprintf("audio/%s.%s", gofakeit.UUID(), ext)
			post.MediaType = models.MediaTypeAudio
		}
		// spread creation times over the past month so trending has a window to bite
		post.CreatedAt = time.Now().Add(-time.Duration(rand.Intn(30*24)) * time.Hour)

		err := db.Transaction(func(tx *gorm.DB) error {
			for _, name := range randomTags() {
				var tag models.Tag
				if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
					return err
				}
				post.Tags = append(post.Tags, tag)
			}
			return tx.Create(&post).Error
		})
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func createFollows(db *gorm.DB, users []models.User) error {
	for _, user := range users {
		n := rand.Intn(len(users)/2 + 1)
		for i := 0; i < n; i++ {
			target := users[rand.Intn(len(users))]
			if target.ID == user.ID {
				continue
			}
			follow := models.Follow{FollowerID: user.ID, FollowingID: target.ID}
			if err := db.Where(follow).FirstOrCreate(&follow).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createEngagement(db *gorm.DB, users []models.User, posts []models.Post) error {
	for _, post := range posts {
		likers := rand.Intn(len(users))
		seen := make(map[uint]bool, likers)
		for i := 0; i < likers; i++ {
			user := users[rand.Intn(len(users))]
			if seen[user.ID] {
				continue
			}
			seen[user.ID] = true
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error; err != nil {
					return err
				}
				return tx.Model(&models.Post{}).Where("id = ?", post.ID).
					UpdateColumn("total_likes", gorm.Expr("total_likes + ?", 1)).Error
			})
			if err != nil {
				return err
			}
		}

		for i := 0; i < rand.Intn(4); i++ {
			comment := models.Comment{
				UserID:  users[rand.Intn(len(users))].ID,
				PostID:  post.ID,
				Content: gofakeit.Sentence(4 + rand.Intn(8)),
			}
			if err := db.Create(&comment).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
