package books

import (
	"context"
	"testing"

	"github.com/angelmondragon/library-backend/pkg/db/dbtest"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryFindByIDMissingReturnsNil(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))

	book, err := repo.FindByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, book)
}

func TestRepositorySearchByAuthor(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.SeedBook(t, conn, "War and Peace", "Leo Tolstoy")
	dbtest.SeedBook(t, conn, "Emma", "Jane Austen")
	dbtest.SeedBook(t, conn, "Resurrection", "LEO TOLSTOY")
	dbtest.SeedBook(t, conn, "Odd Name", "Author_100%")
	repo := NewRepository(conn)
	ctx := context.Background()

	all, err := repo.SearchByAuthor(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID, "results must be ordered by id")
	}

	tol, err := repo.SearchByAuthor(ctx, "tol")
	require.NoError(t, err)
	require.Len(t, tol, 2)
	assert.Equal(t, "War and Peace", tol[0].Title)
	assert.Equal(t, "Resurrection", tol[1].Title)

	none, err := repo.SearchByAuthor(ctx, "dostoevsky")
	require.NoError(t, err)
	assert.Empty(t, none)

	literal, err := repo.SearchByAuthor(ctx, "_100%")
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "Odd Name", literal[0].Title)

	wildcard, err := repo.SearchByAuthor(ctx, "%")
	require.NoError(t, err)
	assert.Len(t, wildcard, 1, "percent must match literally")
}

func TestRepositorySearchByAuthorFoldsNonASCII(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.SeedBook(t, conn, "Война и мир", "Лев Толстой")
	dbtest.SeedBook(t, conn, "Идиот", "Фёдор Достоевский")
	repo := NewRepository(conn)

	matches, err := repo.SearchByAuthor(context.Background(), "толс")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Война и мир", matches[0].Title)

	matches, err = repo.SearchByAuthor(context.Background(), "ДОСТО")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Идиот", matches[0].Title)
}

func TestRepositoryDeleteWithReservations(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.SeedUser(t, conn, "reader@example.com")
	book := dbtest.SeedBook(t, conn, "Dune", "Frank Herbert")
	other := dbtest.SeedBook(t, conn, "Emma", "Jane Austen")
	for _, bookID := range []int64{book.ID, other.ID} {
		require.NoError(t, conn.Create(&models.Reservation{BookID: bookID, UserID: user.ID, IsReturned: true}).Error)
	}

	require.NoError(t, NewRepository(conn).DeleteWithReservations(context.Background(), book.ID))

	var bookCount, reservationCount int64
	require.NoError(t, conn.Model(&models.Book{}).Count(&bookCount).Error)
	require.NoError(t, conn.Model(&models.Reservation{}).Count(&reservationCount).Error)
	assert.Equal(t, int64(1), bookCount)
	assert.Equal(t, int64(1), reservationCount)
}
