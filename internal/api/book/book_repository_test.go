package book

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phelioume11/SymfonProject/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresBookRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresBookRepo(mock, slog.Default()), mock
}

func bookRows(books ...types.Book) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "title", "author", "description", "genre", "slug",
		"cover_image", "user_id", "created_at", "updated_at",
	})
	for _, b := range books {
		rows.AddRow(b.ID, b.Title, b.Author, b.Description, b.Genre, b.Slug,
			b.CoverImage, b.UserID, b.CreatedAt, b.UpdatedAt)
	}
	return rows
}

func TestListQuery(t *testing.T) {
	ownerID := uuid.New()

	t.Run("NoFilter", func(t *testing.T) {
		query, args := listQuery(nil, types.BookFilter{})
		assert.Equal(t, "SELECT "+bookColumns+" FROM books ORDER BY created_at DESC", query)
		assert.Empty(t, args)
	})

	t.Run("GenreOnly", func(t *testing.T) {
		query, args := listQuery(nil, types.BookFilter{Genre: "SF"})
		assert.Equal(t, "SELECT "+bookColumns+" FROM books WHERE genre = $1 ORDER BY created_at DESC", query)
		assert.Equal(t, []any{"SF"}, args)
	})

	t.Run("TextSearchMatchesTitleOrAuthor", func(t *testing.T) {
		query, args := listQuery(nil, types.BookFilter{Query: "Herbert"})
		assert.Equal(t, "SELECT "+bookColumns+" FROM books WHERE (title ILIKE $1 OR author ILIKE $1) ORDER BY created_at DESC", query)
		assert.Equal(t, []any{"%Herbert%"}, args)
	})

	t.Run("OwnerGenreAndText", func(t *testing.T) {
		query, args := listQuery(&ownerID, types.BookFilter{Genre: "Roman", Query: "dune"})
		assert.Equal(t, "SELECT "+bookColumns+" FROM books WHERE user_id = $1 AND genre = $2 AND (title ILIKE $3 OR author ILIKE $3) ORDER BY created_at DESC", query)
		assert.Equal(t, []any{ownerID, "Roman", "%dune%"}, args)
	})
}

func TestListAll(t *testing.T) {
	ctx := context.Background()

	t.Run("OrderedNewestFirst", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		newer := types.Book{ID: uuid.New(), Title: "Dune", Author: "Frank Herbert", Genre: "SF", Slug: "dune", UserID: uuid.New(), CreatedAt: time.Now()}
		older := types.Book{ID: uuid.New(), Title: "Fondation", Author: "Isaac Asimov", Genre: "SF", Slug: "fondation", UserID: newer.UserID, CreatedAt: time.Now().Add(-time.Hour)}

		mock.ExpectQuery(regexp.QuoteMeta("SELECT "+bookColumns+" FROM books ORDER BY created_at DESC")).
			WillReturnRows(bookRows(newer, older))

		books, err := repo.ListAll(ctx, types.BookFilter{})
		require.NoError(t, err)
		require.Len(t, books, 2)
		assert.Equal(t, "dune", books[0].Slug)
		assert.Equal(t, "fondation", books[1].Slug)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyCatalogueReturnsEmptySlice", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT .+ FROM books").WillReturnRows(bookRows())

		books, err := repo.ListAll(ctx, types.BookFilter{})
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})

	t.Run("QueryError", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT .+ FROM books").WillReturnError(errors.New("connection refused"))

		_, err := repo.ListAll(ctx, types.BookFilter{})
		assert.Error(t, err)
	})
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)
	ownerID := uuid.New()

	mine := types.Book{ID: uuid.New(), Title: "Dune", Author: "Frank Herbert", Genre: "SF", Slug: "dune", UserID: ownerID, CreatedAt: time.Now()}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+bookColumns+" FROM books WHERE user_id = $1 ORDER BY created_at DESC")).
		WithArgs(ownerID).
		WillReturnRows(bookRows(mine))

	books, err := repo.ListByOwner(ctx, ownerID, types.BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, ownerID, books[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBySlug(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		want := types.Book{ID: uuid.New(), Title: "Dune", Author: "Frank Herbert", Genre: "SF", Slug: "dune", UserID: uuid.New(), CreatedAt: time.Now()}
		mock.ExpectQuery(regexp.QuoteMeta("SELECT "+bookColumns+" FROM books WHERE slug = $1")).
			WithArgs("dune").
			WillReturnRows(bookRows(want))

		got, err := repo.FindBySlug(ctx, "dune")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, "Dune", got.Title)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT .+ FROM books WHERE slug").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindBySlug(ctx, "missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestSlugExists(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM books WHERE slug = $1)")).
		WithArgs("dune").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.SlugExists(ctx, "dune")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("FillsIDAndCreatedAt", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		b := &types.Book{Title: "Dune", Author: "Frank Herbert", Genre: "SF", Slug: "dune", UserID: uuid.New()}
		newID := uuid.New()
		createdAt := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO books")).
			WithArgs(b.Title, b.Author, b.Description, b.Genre, b.Slug, b.CoverImage, b.UserID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(newID, createdAt))

		require.NoError(t, repo.Insert(ctx, b))
		assert.Equal(t, newID, b.ID)
		assert.Equal(t, createdAt, b.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SlugConflict", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		b := &types.Book{Title: "Dune", Author: "Frank Herbert", Genre: "SF", Slug: "dune", UserID: uuid.New()}

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO books")).
			WithArgs(b.Title, b.Author, b.Description, b.Genre, b.Slug, b.CoverImage, b.UserID).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "books_slug_key"})

		err := repo.Insert(ctx, b)
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()
		b := &types.Book{ID: uuid.New(), Title: "Dune", Author: "Frank Herbert", Genre: "SF", Slug: "dune", UserID: uuid.New(), UpdatedAt: &now}

		mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET")).
			WithArgs(b.Title, b.Author, b.Description, b.Genre, b.Slug, b.CoverImage, b.UpdatedAt, b.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Update(ctx, b))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingRecord", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		b := &types.Book{ID: uuid.New(), Title: "Dune", Author: "Frank Herbert", Genre: "SF", Slug: "dune"}

		mock.ExpectExec(regexp.QuoteMeta("UPDATE books SET")).
			WithArgs(b.Title, b.Author, b.Description, b.Genre, b.Slug, b.CoverImage, b.UpdatedAt, b.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.Update(ctx, b), types.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = $1")).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingRecord", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		id := uuid.New()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = $1")).
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), types.ErrNotFound)
	})
}
