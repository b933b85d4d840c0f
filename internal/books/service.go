package books

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/library-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	maxTitleLen  = 100
	minAuthorLen = 2
	maxAuthorLen = 50
	maxGenreLen  = 30
)

// Service exposes catalog operations.
type Service interface {
	GetBook(ctx context.Context, id int64) (*BookDTO, error)
	SearchByAuthor(ctx context.Context, fragment string) ([]BookDTO, error)
	CreateBook(ctx context.Context, input CreateBookInput) (*BookDTO, error)
	DeleteBook(ctx context.Context, id int64) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	logg     *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, dbClient *db.Client, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("book repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, dbClient: dbClient, logg: logg}, nil
}

func (s *service) GetBook(ctx context.Context, id int64) (*BookDTO, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
	}
	if book == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
	}
	return FromModel(book), nil
}

func (s *service) SearchByAuthor(ctx context.Context, fragment string) ([]BookDTO, error) {
	rows, err := s.repo.SearchByAuthor(ctx, strings.TrimSpace(fragment))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search books")
	}
	return FromModels(rows), nil
}

// CreateBook adds an available book. A (title, author) pair already in the
// catalog is rejected with CONFLICT.
func (s *service) CreateBook(ctx context.Context, input CreateBookInput) (*BookDTO, error) {
	book := input.ToModel()
	if err := validateBook(book.Title, book.Author, book.Genre); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByTitleAuthor(ctx, book.Title, book.Author)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check duplicate book")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "book with this title and author already exists")
	}

	created, err := s.repo.Create(ctx, book)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "book with this title and author already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert book")
	}

	s.logg.Info(s.logg.WithBookID(ctx, created.ID), "book.created")
	return FromModel(created), nil
}

// DeleteBook removes the book together with its reservations.
func (s *service) DeleteBook(ctx context.Context, id int64) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		book, err := txRepo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load book")
		}
		if book == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		if err := txRepo.DeleteWithReservations(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete book")
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Internal(err, "delete book")
	}

	s.logg.Info(s.logg.WithBookID(ctx, id), "book.deleted")
	return nil
}

func validateBook(title, author string, genre *string) error {
	details := map[string]string{}
	if n := utf8.RuneCountInString(title); n < 1 || n > maxTitleLen {
		details["title"] = fmt.Sprintf("must be 1-%d characters", maxTitleLen)
	}
	if n := utf8.RuneCountInString(author); n < minAuthorLen || n > maxAuthorLen {
		details["author"] = fmt.Sprintf("must be %d-%d characters", minAuthorLen, maxAuthorLen)
	}
	if genre != nil && utf8.RuneCountInString(*genre) > maxGenreLen {
		details["genre"] = fmt.Sprintf("must be at most %d characters", maxGenreLen)
	}
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid book").WithDetails(details)
}
