package books

import (
	"strings"
	"time"

	"github.com/angelmondragon/library-backend/pkg/db/models"
)

// BookDTO is the transport shape for a catalog entry.
type BookDTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       *string   `json:"genre,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateBookInput holds the validated payload to add a book.
type CreateBookInput struct {
	Title  string
	Author string
	Genre  *string
}

func FromModel(b *models.Book) *BookDTO {
	if b == nil {
		return nil
	}
	return &BookDTO{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Genre:       b.Genre,
		IsAvailable: b.IsAvailable,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func FromModels(rows []models.Book) []BookDTO {
	out := make([]BookDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// ToModel trims the input and returns an available book.
func (in CreateBookInput) ToModel() *models.Book {
	var genre *string
	if in.Genre != nil {
		if trimmed := strings.TrimSpace(*in.Genre); trimmed != "" {
			genre = &trimmed
		}
	}
	return &models.Book{
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Genre:       genre,
		IsAvailable: true,
	}
}
