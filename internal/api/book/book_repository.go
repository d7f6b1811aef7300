package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Phelioume11/SymfonProject/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock
// implements it too, which is what the repository tests run against.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ BookRepo = (*PostgresBookRepo)(nil)

// BookRepo defines the contract for catalogue persistence. Read operations
// return records ordered by creation timestamp, newest first. The write
// primitives are only called by the lifecycle service.
type BookRepo interface {
	// ListAll returns every record matching the filter.
	ListAll(ctx context.Context, filter types.BookFilter) ([]types.Book, error)
	// ListByOwner restricts ListAll to a single owning user.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter types.BookFilter) ([]types.Book, error)
	// FindBySlug returns the record with the exact slug.
	// Returns types.ErrNotFound on a miss.
	FindBySlug(ctx context.Context, slug string) (*types.Book, error)
	// SlugExists reports whether any record carries the slug.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Insert persists a new record and fills ID and CreatedAt.
	// Returns types.ErrConflict when the slug is already taken.
	Insert(ctx context.Context, book *types.Book) error
	// Update rewrites all mutable columns of an existing record.
	Update(ctx context.Context, book *types.Book) error
	// Delete removes a record by identifier.
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostgresBookRepo struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresBookRepo(db DB, logger *slog.Logger) *PostgresBookRepo {
	return &PostgresBookRepo{
		logger: logger,
		db:     db,
	}
}

const bookColumns = "id, title, author, description, genre, slug, cover_image, user_id, created_at, updated_at"

// listQuery builds the filtered listing statement. Substring matching uses
// ILIKE, so text filters are case-insensitive.
func listQuery(ownerID *uuid.UUID, filter types.BookFilter) (string, []any) {
	var whereClauses []string
	var args []any
	argID := 1

	if ownerID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("user_id = $%d", argID))
		args = append(args, *ownerID)
		argID++
	}
	if filter.Genre != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("genre = $%d", argID))
		args = append(args, filter.Genre)
		argID++
	}
	if filter.Query != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d)", argID, argID))
		args = append(args, "%"+filter.Query+"%")
		argID++
	}

	query := "SELECT " + bookColumns + " FROM books"
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	return query, args
}

func (r *PostgresBookRepo) list(ctx context.Context, ownerID *uuid.UUID, filter types.BookFilter) ([]types.Book, error) {
	query, args := listQuery(ownerID, filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing books: %w", err)
	}
	defer rows.Close()

	books := []types.Book{}
	for rows.Next() {
		var b types.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Genre, &b.Slug,
			&b.CoverImage, &b.UserID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}
	return books, nil
}

func (r *PostgresBookRepo) ListAll(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	ctx, span := otel.Tracer("BookRepo").Start(ctx, "ListAll", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "books"),
	))
	defer span.End()

	books, err := r.list(ctx, nil, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(books)))
	return books, nil
}

func (r *PostgresBookRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter types.BookFilter) ([]types.Book, error) {
	ctx, span := otel.Tracer("BookRepo").Start(ctx, "ListByOwner", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "books"),
		attribute.String("db.user.id", ownerID.String()),
	))
	defer span.End()

	books, err := r.list(ctx, &ownerID, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("db.rows", len(books)))
	return books, nil
}

func (r *PostgresBookRepo) FindBySlug(ctx context.Context, slug string) (*types.Book, error) {
	ctx, span := otel.Tracer("BookRepo").Start(ctx, "FindBySlug", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "books"),
		attribute.String("book.slug", slug),
	))
	defer span.End()

	var b types.Book
	err := r.db.QueryRow(ctx,
		"SELECT "+bookColumns+" FROM books WHERE slug = $1", slug).
		Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.Genre, &b.Slug,
			&b.CoverImage, &b.UserID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Book not found")
			return nil, fmt.Errorf("book %q: %w", slug, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching book by slug: %w", err)
	}
	return &b, nil
}

func (r *PostgresBookRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM books WHERE slug = $1)", slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking slug: %w", err)
	}
	return exists, nil
}

func (r *PostgresBookRepo) Insert(ctx context.Context, book *types.Book) error {
	ctx, span := otel.Tracer("BookRepo").Start(ctx, "Insert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "books"),
		attribute.String("book.slug", book.Slug),
	))
	defer span.End()

	err := r.db.QueryRow(ctx,
		`INSERT INTO books (title, author, description, genre, slug, cover_image, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		book.Title, book.Author, book.Description, book.Genre, book.Slug, book.CoverImage, book.UserID).
		Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Slug conflict")
			return fmt.Errorf("slug %q already taken: %w", book.Slug, types.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("failed to insert book: %w", err)
	}

	r.logger.InfoContext(ctx, "Book inserted", slog.String("bookID", book.ID.String()), slog.String("slug", book.Slug))
	return nil
}

func (r *PostgresBookRepo) Update(ctx context.Context, book *types.Book) error {
	ctx, span := otel.Tracer("BookRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "books"),
		attribute.String("book.id", book.ID.String()),
	))
	defer span.End()

	tag, err := r.db.Exec(ctx,
		`UPDATE books SET title = $1, author = $2, description = $3, genre = $4, slug = $5,
		 cover_image = $6, updated_at = $7 WHERE id = $8`,
		book.Title, book.Author, book.Description, book.Genre, book.Slug,
		book.CoverImage, book.UpdatedAt, book.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			span.SetStatus(codes.Error, "Slug conflict")
			return fmt.Errorf("slug %q already taken: %w", book.Slug, types.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("failed to update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Book not found")
		return fmt.Errorf("book %s: %w", book.ID, types.ErrNotFound)
	}
	return nil
}

func (r *PostgresBookRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("BookRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "books"),
		attribute.String("book.id", id.String()),
	))
	defer span.End()

	tag, err := r.db.Exec(ctx, "DELETE FROM books WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB DELETE failed")
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Book not found")
		return fmt.Errorf("book %s: %w", id, types.ErrNotFound)
	}

	r.logger.InfoContext(ctx, "Book deleted", slog.String("bookID", id.String()))
	return nil
}
