package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/api/validators"
	"github.com/angelmondragon/library-backend/internal/reservations"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

type createReservationRequest struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	Days   int   `json:"days" validate:"required,gt=0,lte=365"`
}

func (r createReservationRequest) toInput() reservations.CreateReservationInput {
	return reservations.CreateReservationInput{BookID: r.BookID, UserID: r.UserID, Days: r.Days}
}

// CreateReservation reserves an available book for a user.
func CreateReservation(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		var payload createReservationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.CreateReservation(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, reservation)
	}
}

// ReservationPenalty reports the penalty of the active reservation on a book.
// Books without one report zero.
func ReservationPenalty(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		bookID, err := validators.ParseIDParam(r, "bookId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		penalty, err := svc.GetPenalty(r.Context(), bookID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, reservations.PenaltyDTO{Penalty: json.Number(penalty.String())})
	}
}

func ReturnBook(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.ReturnBook(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, reservation)
	}
}
