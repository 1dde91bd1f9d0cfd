package server

import (
	"sync"
	"testing"

	"echoverse/internal/blobstore"
	"echoverse/internal/config"
	"echoverse/internal/database"
	"echoverse/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingMailer captures outgoing mail instead of sending it.
type recordingMailer struct {
	mu            sync.Mutex
	verifications []string
	resets        []string
	emailChanges  []string
	notices       []bool
}

func (m *recordingMailer) SendVerificationEmail(to, userName, verificationURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, verificationURL)
	return nil
}

func (m *recordingMailer) SendPasswordResetEmail(to, userName, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, resetURL)
	return nil
}

func (m *recordingMailer) SendEmailChangeEmail(to, userName, confirmURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailChanges = append(m.emailChanges, confirmURL)
	return nil
}

func (m *recordingMailer) SendModerationNotice(to, userName string, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, blocked)
	return nil
}

func setupTestServer(t *testing.T) (*Server, *recordingMailer, *blobstore.MemoryStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{
		Env:       "test",
		JWTSecret: "test-secret",
		BaseURL:   "http://localhost:8420",
	}
	mailer := &recordingMailer{}
	blobs := blobstore.NewMemoryStore()

	s, err := NewServerWithDeps(cfg, db, nil, mailer, blobs)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return s, mailer, blobs
}

func createVerifiedUser(t *testing.T, s *Server, name, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleMember,
		IsVerified:   true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}
