package books

import (
	"bytes"
	"context"
	"testing"

	"github.com/angelmondragon/library-backend/pkg/db/dbtest"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB, *bytes.Buffer) {
	t.Helper()
	client, conn := dbtest.Client(t)
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "books-test", Level: zerolog.InfoLevel, Output: &buf})
	svc, err := NewService(NewRepository(conn), client, logg)
	require.NoError(t, err)
	return svc, conn, &buf
}

func strPtr(s string) *string { return &s }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	assert.Error(t, err)
}

func TestCreateBook(t *testing.T) {
	svc, _, logs := newTestService(t)

	book, err := svc.CreateBook(context.Background(), CreateBookInput{
		Title:  "  Anna Karenina ",
		Author: "Leo Tolstoy",
		Genre:  strPtr("novel"),
	})
	require.NoError(t, err)
	assert.NotZero(t, book.ID)
	assert.Equal(t, "Anna Karenina", book.Title)
	assert.True(t, book.IsAvailable)
	require.NotNil(t, book.Genre)
	assert.Equal(t, "novel", *book.Genre)
	assert.Contains(t, logs.String(), "book.created")
}

func TestCreateBookRejectsDuplicate(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateBook(ctx, CreateBookInput{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	_, err = svc.CreateBook(ctx, CreateBookInput{Title: "Emma", Author: "Jane Austen"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = svc.CreateBook(ctx, CreateBookInput{Title: "Emma", Author: "Someone Else"})
	require.NoError(t, err, "same title with another author is a different book")

	var count int64
	require.NoError(t, conn.Model(&models.Book{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateBookValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := []CreateBookInput{
		{Title: "", Author: "Jane Austen"},
		{Title: "Emma", Author: "J"},
		{Title: "Emma", Author: "Jane Austen", Genre: strPtr("a genre name that is far too long")},
	}
	for _, input := range cases {
		_, err := svc.CreateBook(context.Background(), input)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "input %+v got %v", input, err)
	}
}

func TestGetBook(t *testing.T) {
	svc, conn, _ := newTestService(t)
	seeded := dbtest.SeedBook(t, conn, "Dune", "Frank Herbert")

	book, err := svc.GetBook(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)

	_, err = svc.GetBook(context.Background(), seeded.ID+100)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestSearchByAuthorMatchesSubstring(t *testing.T) {
	svc, conn, _ := newTestService(t)
	dbtest.SeedBook(t, conn, "War and Peace", "Leo Tolstoy")
	dbtest.SeedBook(t, conn, "Emma", "Jane Austen")

	all, err := svc.SearchByAuthor(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	matches, err := svc.SearchByAuthor(context.Background(), "  tol ")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Leo Tolstoy", matches[0].Author)
}

func TestDeleteBook(t *testing.T) {
	svc, conn, logs := newTestService(t)
	user := dbtest.SeedUser(t, conn, "reader@example.com")
	book := dbtest.SeedBook(t, conn, "Dune", "Frank Herbert")
	require.NoError(t, conn.Create(&models.Reservation{BookID: book.ID, UserID: user.ID}).Error)

	require.NoError(t, svc.DeleteBook(context.Background(), book.ID))
	assert.Contains(t, logs.String(), "book.deleted")

	var count int64
	require.NoError(t, conn.Model(&models.Reservation{}).Where("book_id = ?", book.ID).Count(&count).Error)
	assert.Zero(t, count)

	err := svc.DeleteBook(context.Background(), book.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "got %v", err)
}
