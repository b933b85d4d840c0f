// Package dbtest opens isolated sqlite databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/migrate"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory database unique to the test. The pool is
// capped at one connection so transactions serialize the way row locks do on
// postgres.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:library_%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.AutoMigrateModels(conn); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// Client wraps Open in a db.Client.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}

// SeedUser inserts a user with the given email.
func SeedUser(t *testing.T, conn *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{Email: email}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedBook inserts an available book.
func SeedBook(t *testing.T, conn *gorm.DB, title, author string) models.Book {
	t.Helper()
	book := models.Book{Title: title, Author: author, IsAvailable: true}
	if err := conn.Create(&book).Error; err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return book
}
