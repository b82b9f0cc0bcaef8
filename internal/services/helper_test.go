package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/peerhub/peerhub/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{}, &models.UserProfile{},
		&models.Project{}, &models.ProjectMembership{}, &models.ProjectUpvote{},
		&models.JoinRequest{}, &models.ProjectInvitation{},
		&models.Upload{}, &models.Prompt{}, &models.PromptResponse{},
		&models.Message{}, &models.SystemLog{},
	)
	if err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Role:     role,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return user
}

func createProject(t *testing.T, db *gorm.DB, owner *models.User, name string, private bool) *models.Project {
	t.Helper()
	project := &models.Project{
		Name:              name,
		OwnerID:           owner.ID,
		Category:          models.CategorySoftware,
		NumberOfReviewers: 1,
		IsPrivate:         private,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("creating project %s: %v", name, err)
	}
	if err := db.Create(&models.ProjectMembership{
		UserID:    owner.ID,
		ProjectID: project.ID,
	}).Error; err != nil {
		t.Fatalf("creating owner membership: %v", err)
	}
	return project
}

func addMember(t *testing.T, db *gorm.DB, user *models.User, project *models.Project) {
	t.Helper()
	if err := db.Create(&models.ProjectMembership{
		UserID:    user.ID,
		ProjectID: project.ID,
	}).Error; err != nil {
		t.Fatalf("adding member: %v", err)
	}
}

func principalFor(user *models.User) Principal {
	return Principal{UserID: user.ID, IsAdmin: user.Role == models.RoleAdmin}
}

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	objects map[string][]byte
	puts    []string
	deletes []string
	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	if f.failPut {
		return fmt.Errorf("store unavailable")
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return err
	}
	f.objects[key] = buf.Bytes()
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return data, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeStore) DeleteMany(_ context.Context, keys []string) error {
	for _, key := range keys {
		delete(f.objects, key)
		f.deletes = append(f.deletes, key)
	}
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, key, contentType, disposition string, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.example/%s?type=%s&disposition=%s",
		key, contentType, disposition), nil
}

// fakeQueue records enqueued tasks.
type fakeQueue struct {
	tasks []*TranscriptionTask
	fail  bool
}

func (f *fakeQueue) Enqueue(_ context.Context, task *TranscriptionTask) error {
	if f.fail {
		return fmt.Errorf("broker down")
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeQueue) IsAsync() bool { return false }
func (f *fakeQueue) Close() error  { return nil }
