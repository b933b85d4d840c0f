package reservations

import (
	"context"
	"time"

	"github.com/angelmondragon/library-backend/internal/repo"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists reservations and the book availability they guard.
// Methods ending in ForUpdate take row locks and must run inside a
// transaction.
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

// FindBookForUpdate locks and loads a book. A missing book yields (nil, nil).
func (r *Repository) FindBookForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	found, err := repo.FirstOrNil(r.ForUpdate(ctx), &book, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &book, nil
}

// FindUserForUpdate locks and loads a user. A missing user yields (nil, nil).
func (r *Repository) FindUserForUpdate(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	found, err := repo.FirstOrNil(r.ForUpdate(ctx), &user, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// FindForUpdate locks and loads a reservation.
func (r *Repository) FindForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	found, err := repo.FirstOrNil(r.ForUpdate(ctx), &reservation, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &reservation, nil
}

// FindActiveByBook returns the unreturned reservation for a book, if any.
func (r *Repository) FindActiveByBook(ctx context.Context, bookID int64) (*models.Reservation, error) {
	var reservation models.Reservation
	found, err := repo.FirstOrNil(r.DB(ctx), &reservation, "book_id = ? AND is_returned = ?", bookID, false)
	if err != nil || !found {
		return nil, err
	}
	return &reservation, nil
}

// UserExists reports whether a user row exists.
func (r *Repository) UserExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns the user's reservations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	var rows []models.Reservation
	if err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("reserved_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOverdue returns active reservations that expired before now, oldest expiry first.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	if err := r.DB(ctx).
		Where("is_returned = ? AND expires_at < ?", false, now).
		Order("expires_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

const availabilityMismatchCondition = `(books.is_available = ? AND EXISTS (
	SELECT 1 FROM reservations r WHERE r.book_id = books.id AND r.is_returned = ?
)) OR (books.is_available = ? AND NOT EXISTS (
	SELECT 1 FROM reservations r WHERE r.book_id = books.id AND r.is_returned = ?
))`

// FindAvailabilityMismatches returns ids of books whose is_available flag
// disagrees with the presence of an active reservation.
func (r *Repository) FindAvailabilityMismatches(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.DB(ctx).
		Model(&models.Book{}).
		Where(availabilityMismatchCondition, true, false, false, false).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Create inserts a reservation.
func (r *Repository) Create(ctx context.Context, reservation *models.Reservation) (*models.Reservation, error) {
	if err := r.DB(ctx).Create(reservation).Error; err != nil {
		return nil, err
	}
	return reservation, nil
}

// SetBookAvailability flips books.is_available.
func (r *Repository) SetBookAvailability(ctx context.Context, bookID int64, available bool) error {
	return r.DB(ctx).
		Model(&models.Book{}).
		Where("id = ?", bookID).
		Update("is_available", available).Error
}

// MarkReturned closes the reservation. reserved_at is left untouched.
func (r *Repository) MarkReturned(ctx context.Context, reservation *models.Reservation, at time.Time) error {
	if err := r.DB(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", reservation.ID).
		Updates(map[string]any{"is_returned": true, "returned_at": at}).Error; err != nil {
		return err
	}
	reservation.IsReturned = true
	reservation.ReturnedAt = &at
	return nil
}
