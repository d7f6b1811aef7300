package book

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/Phelioume11/SymfonProject/app/observability/metrics"
	"github.com/Phelioume11/SymfonProject/internal/slugger"
	"github.com/Phelioume11/SymfonProject/internal/types"
)

// AssetStore is the cover-file collaborator of the lifecycle service.
// Implemented by assets.Store.
type AssetStore interface {
	Store(data []byte, originalFilename, baseNameHint string) (string, error)
	Delete(name string) error
	Replace(oldName string, data []byte, originalFilename, baseNameHint string) (string, error)
}

var _ BookService = (*BookServiceImpl)(nil)

// BookService orchestrates the catalogue record lifecycle: validation,
// slug derivation, cover asset management and repository writes, under
// owner-or-admin authorization.
type BookService interface {
	List(ctx context.Context, filter types.BookFilter) ([]types.Book, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter types.BookFilter) ([]types.Book, error)
	GetBySlug(ctx context.Context, slug string) (*types.Book, error)

	// Create validates the input, derives a unique slug from the title,
	// stores the optional cover and persists the record. A failed insert
	// cleans up the stored cover.
	Create(ctx context.Context, actor types.Actor, params types.CreateBookParams, upload *types.FileUpload) (*types.Book, error)
	// Update edits an existing record. Only the owner or an admin may
	// edit; the slug is recomputed when the title changes; a new cover is
	// stored before the old one is deleted.
	Update(ctx context.Context, actor types.Actor, slug string, params types.UpdateBookParams, upload *types.FileUpload) (*types.Book, error)
	// Delete removes a record and its cover asset. Owner-or-admin only.
	Delete(ctx context.Context, actor types.Actor, slug string) error
}

type BookServiceImpl struct {
	logger *slog.Logger
	repo   BookRepo
	store  AssetStore
	cache  *cache.Cache
}

func NewBookService(repo BookRepo, store AssetStore, logger *slog.Logger) *BookServiceImpl {
	return &BookServiceImpl{
		logger: logger,
		repo:   repo,
		store:  store,
		cache:  cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *BookServiceImpl) List(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	return s.repo.ListAll(ctx, filter)
}

func (s *BookServiceImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter types.BookFilter) ([]types.Book, error) {
	return s.repo.ListByOwner(ctx, ownerID, filter)
}

func (s *BookServiceImpl) GetBySlug(ctx context.Context, slug string) (*types.Book, error) {
	if cached, found := s.cache.Get(slug); found {
		return cached.(*types.Book), nil
	}

	book, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cache.Set(slug, book, cache.DefaultExpiration)
	return book, nil
}

func (s *BookServiceImpl) Create(ctx context.Context, actor types.Actor, params types.CreateBookParams, upload *types.FileUpload) (*types.Book, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.String("actorID", actor.ID.String()))

	if params.Title == "" || params.Author == "" {
		return nil, fmt.Errorf("title and author are required: %w", types.ErrValidation)
	}
	if !types.ValidGenre(params.Genre) {
		return nil, fmt.Errorf("unknown genre %q: %w", params.Genre, types.ErrValidation)
	}

	slug, err := s.uniqueSlug(ctx, params.Title)
	if err != nil {
		return nil, err
	}

	// Store the cover before touching the database; a storage failure
	// means no record is written at all.
	var coverName *string
	if upload != nil {
		name, err := s.store.Store(upload.Data, upload.Filename, params.Title)
		if err != nil {
			l.WarnContext(ctx, "Cover store failed", slog.Any("error", err))
			return nil, err
		}
		coverName = &name
		metrics.Get().CoverUploadBytesTotal.Add(ctx, int64(len(upload.Data)))
	}

	book := &types.Book{
		Title:       params.Title,
		Author:      params.Author,
		Description: params.Description,
		Genre:       params.Genre,
		Slug:        slug,
		CoverImage:  coverName,
		UserID:      actor.ID,
	}

	if err := s.repo.Insert(ctx, book); err != nil {
		// The stored cover would be orphaned; remove it before surfacing
		// the original error.
		if coverName != nil {
			if cleanupErr := s.store.Delete(*coverName); cleanupErr != nil {
				l.ErrorContext(ctx, "Failed to clean up orphaned cover", slog.String("cover", *coverName), slog.Any("error", cleanupErr))
			}
		}
		return nil, err
	}

	metrics.Get().BookWritesTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Book created", slog.String("slug", book.Slug))
	return book, nil
}

func (s *BookServiceImpl) Update(ctx context.Context, actor types.Actor, slug string, params types.UpdateBookParams, upload *types.FileUpload) (*types.Book, error) {
	l := s.logger.With(slog.String("method", "Update"), slog.String("actorID", actor.ID.String()), slog.String("slug", slug))

	book, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, book); err != nil {
		l.WarnContext(ctx, "Edit denied")
		return nil, err
	}

	oldSlug := book.Slug
	if params.Title != nil && *params.Title != book.Title {
		if *params.Title == "" {
			return nil, fmt.Errorf("title must not be empty: %w", types.ErrValidation)
		}
		newSlug, err := s.uniqueSlugFor(ctx, *params.Title, book.Slug)
		if err != nil {
			return nil, err
		}
		book.Title = *params.Title
		book.Slug = newSlug
	}
	if params.Author != nil {
		if *params.Author == "" {
			return nil, fmt.Errorf("author must not be empty: %w", types.ErrValidation)
		}
		book.Author = *params.Author
	}
	if params.Description != nil {
		book.Description = params.Description
	}
	if params.Genre != nil {
		if !types.ValidGenre(*params.Genre) {
			return nil, fmt.Errorf("unknown genre %q: %w", *params.Genre, types.ErrValidation)
		}
		book.Genre = *params.Genre
	}

	// New cover first: the old file stays until the record update commits,
	// so the record never references a deleted file.
	oldCover := book.CoverImage
	var newCover *string
	if upload != nil {
		name, err := s.store.Store(upload.Data, upload.Filename, book.Title)
		if err != nil {
			l.WarnContext(ctx, "Cover store failed", slog.Any("error", err))
			return nil, err
		}
		newCover = &name
		book.CoverImage = &name
		metrics.Get().CoverUploadBytesTotal.Add(ctx, int64(len(upload.Data)))
	}

	now := time.Now()
	book.UpdatedAt = &now

	if err := s.repo.Update(ctx, book); err != nil {
		if newCover != nil {
			if cleanupErr := s.store.Delete(*newCover); cleanupErr != nil {
				l.ErrorContext(ctx, "Failed to clean up orphaned cover", slog.String("cover", *newCover), slog.Any("error", cleanupErr))
			}
		}
		return nil, err
	}

	if newCover != nil && oldCover != nil {
		if err := s.store.Delete(*oldCover); err != nil {
			l.WarnContext(ctx, "Failed to delete replaced cover", slog.String("cover", *oldCover), slog.Any("error", err))
		}
	}

	s.cache.Delete(oldSlug)
	s.cache.Delete(book.Slug)
	metrics.Get().BookWritesTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Book updated", slog.String("slug", book.Slug))
	return book, nil
}

func (s *BookServiceImpl) Delete(ctx context.Context, actor types.Actor, slug string) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.String("actorID", actor.ID.String()), slog.String("slug", slug))

	book, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := authorize(actor, book); err != nil {
		l.WarnContext(ctx, "Delete denied")
		return err
	}

	if book.CoverImage != nil {
		if err := s.store.Delete(*book.CoverImage); err != nil {
			l.ErrorContext(ctx, "Failed to delete cover", slog.String("cover", *book.CoverImage), slog.Any("error", err))
			return err
		}
	}

	if err := s.repo.Delete(ctx, book.ID); err != nil {
		return err
	}

	s.cache.Delete(slug)
	metrics.Get().BookWritesTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Book deleted")
	return nil
}

// authorize allows admins and the owning user, nobody else.
func authorize(actor types.Actor, book *types.Book) error {
	if actor.IsAdmin() || actor.ID == book.UserID {
		return nil
	}
	return fmt.Errorf("actor %s may not modify book %s: %w", actor.ID, book.ID, types.ErrForbidden)
}

// uniqueSlug derives the slug for a title and disambiguates collisions
// with a numeric suffix: dune, dune-2, dune-3, ...
func (s *BookServiceImpl) uniqueSlug(ctx context.Context, title string) (string, error) {
	return s.uniqueSlugFor(ctx, title, "")
}

// uniqueSlugFor is uniqueSlug for an existing record: its current slug is
// treated as free, so saving an unchanged title keeps the slug stable.
func (s *BookServiceImpl) uniqueSlugFor(ctx context.Context, title, current string) (string, error) {
	base := slugger.Slugify(title)
	if base == "" {
		return "", fmt.Errorf("title yields an empty slug: %w", types.ErrValidation)
	}

	candidate := base
	for i := 2; ; i++ {
		if candidate == current {
			return candidate, nil
		}
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
