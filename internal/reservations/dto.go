package reservations

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/library-backend/internal/penalties"
	"github.com/angelmondragon/library-backend/pkg/db/models"
	"github.com/angelmondragon/library-backend/pkg/enums"
)

// ReservationDTO is the transport shape for a reservation. Status and Penalty
// are derived at read time.
type ReservationDTO struct {
	ID         int64                   `json:"id"`
	BookID     int64                   `json:"book_id"`
	UserID     int64                   `json:"user_id"`
	ReservedAt time.Time               `json:"reserved_at"`
	ExpiresAt  time.Time               `json:"expires_at"`
	IsReturned bool                    `json:"is_returned"`
	ReturnedAt *time.Time              `json:"returned_at,omitempty"`
	Status     enums.ReservationStatus `json:"status"`
	Penalty    json.Number             `json:"penalty"`
}

// CreateReservationInput holds the payload to reserve a book.
type CreateReservationInput struct {
	BookID int64
	UserID int64
	Days   int
}

// PenaltyDTO is the response for a penalty lookup.
type PenaltyDTO struct {
	Penalty json.Number `json:"penalty"`
}

// FromModel maps a reservation row. Returned reservations carry no penalty.
func FromModel(r *models.Reservation, calc penalties.Calculator, now time.Time) *ReservationDTO {
	if r == nil {
		return nil
	}
	penalty := "0"
	if !r.IsReturned {
		penalty = calc.Calculate(r.ExpiresAt, now).String()
	}
	return &ReservationDTO{
		ID:         r.ID,
		BookID:     r.BookID,
		UserID:     r.UserID,
		ReservedAt: r.ReservedAt,
		ExpiresAt:  r.ExpiresAt,
		IsReturned: r.IsReturned,
		ReturnedAt: r.ReturnedAt,
		Status:     enums.DeriveReservationStatus(r.IsReturned, r.ExpiresAt, now),
		Penalty:    json.Number(penalty),
	}
}

func FromModels(rows []models.Reservation, calc penalties.Calculator, now time.Time) []ReservationDTO {
	out := make([]ReservationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], calc, now))
	}
	return out
}
