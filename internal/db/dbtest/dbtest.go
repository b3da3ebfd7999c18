// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"elim/internal/db"
	"elim/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seq atomic.Int64

// New returns a migrated in-memory SQLite database private to the test.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	gdb, err := db.Open(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("test database handle: %v", err)
	}
	// one connection keeps the in-memory database alive and avoids table locks
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return gdb
}

// Profile inserts a profile with the given username.
func Profile(t testing.TB, gdb *gorm.DB, username string) models.Profile {
	t.Helper()
	p := models.Profile{
		Username:  username,
		FullName:  strings.ToUpper(username[:1]) + username[1:],
		AvatarURL: "https://cdn.example.org/avatars/" + username + ".png",
	}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

// Post inserts a post written by authorID.
func Post(t testing.TB, gdb *gorm.DB, authorID, title string) models.Post {
	t.Helper()
	p := models.Post{AuthorID: authorID, Title: title, Category: "issue"}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}
