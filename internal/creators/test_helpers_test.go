package creators

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingMirror struct {
	mu         sync.Mutex
	appended   []Creator
	replaced   []Creator
	removed    []Creator
	appendErr  error
	replaceErr error
	removeErr  error
	missing    bool
}

func (m *recordingMirror) Append(_ context.Context, creator Creator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, creator)
	return m.appendErr
}

func (m *recordingMirror) Replace(_ context.Context, creator Creator) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaced = append(m.replaced, creator)
	if m.replaceErr != nil {
		return false, m.replaceErr
	}
	return !m.missing, nil
}

func (m *recordingMirror) Remove(_ context.Context, creator Creator) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, creator)
	if m.removeErr != nil {
		return false, m.removeErr
	}
	return !m.missing, nil
}

func (m *recordingMirror) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appended) + len(m.replaced) + len(m.removed)
}

type recordingObserver struct {
	observed []string
}

func (o *recordingObserver) ObserveMirrorWrite(operation, status string) {
	o.observed = append(o.observed, operation+":"+status)
}

type steppingClock struct {
	mu   sync.Mutex
	next time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.next
	c.next = c.next.Add(time.Second)
	return current
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "creators.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Creator{}); err != nil {
		t.Fatalf("failed to migrate creators: %v", err)
	}
	return db
}

func newTestService(t *testing.T, mirror Mirror, logger *zap.Logger) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDatabase(t)
	clock := &steppingClock{next: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	if logger == nil {
		logger = zap.NewNop()
	}
	service, err := NewService(ServiceConfig{
		Database: db,
		Mirror:   mirror,
		Clock:    clock.Now,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, db
}

func mustCreate(t *testing.T, service *Service, requester string, fields Fields) Creator {
	t.Helper()
	outcome, err := service.Create(context.Background(), requester, fields)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return outcome.Creator
}
