package books

import (
	"context"
	"strings"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists catalog entries.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(tx)}
}

// FindByID loads a book. A missing book yields (nil, nil).
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	found, err := repo.FirstOrNil(r.DB(ctx), &book, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &book, nil
}

// FindByTitleAuthor looks up the exact (title, author) pair.
func (r *Repository) FindByTitleAuthor(ctx context.Context, title, author string) (*models.Book, error) {
	var book models.Book
	found, err := repo.FirstOrNil(r.DB(ctx), &book, "title = ? AND author = ?", title, author)
	if err != nil || !found {
		return nil, err
	}
	return &book, nil
}

// SearchByAuthor returns books whose author contains fragment, ignoring case.
// An empty fragment matches every book. sqlite's LOWER only folds ASCII, so on
// that dialect the match runs in Go over the ordered catalog.
func (r *Repository) SearchByAuthor(ctx context.Context, fragment string) ([]models.Book, error) {
	db := r.DB(ctx)
	needle := strings.ToLower(fragment)
	foldInGo := fragment != "" && db.Dialector != nil && db.Dialector.Name() == "sqlite"

	query := db.Model(&models.Book{})
	if fragment != "" && !foldInGo {
		query = query.Where(`LOWER(author) LIKE ? ESCAPE '\'`, "%"+escapeLike(needle)+"%")
	}
	var rows []models.Book
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if !foldInGo {
		return rows, nil
	}

	matched := rows[:0]
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Author), needle) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// Create inserts a book and returns the persisted row.
func (r *Repository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.DB(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteWithReservations removes the book and its reservations. Callers run it
// inside a transaction.
func (r *Repository) DeleteWithReservations(ctx context.Context, id int64) error {
	if err := r.DB(ctx).Where("book_id = ?", id).Delete(&models.Reservation{}).Error; err != nil {
		return err
	}
	return r.DB(ctx).Delete(&models.Book{}, "id = ?", id).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
