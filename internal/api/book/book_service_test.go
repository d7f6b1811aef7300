package book

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Phelioume11/SymfonProject/internal/assets"
	"github.com/Phelioume11/SymfonProject/internal/types"
)

// MockBookRepo is a mock implementation of the BookRepo interface
type MockBookRepo struct {
	mock.Mock
}

func (m *MockBookRepo) ListAll(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Book), args.Error(1)
}

func (m *MockBookRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter types.BookFilter) ([]types.Book, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Book), args.Error(1)
}

func (m *MockBookRepo) FindBySlug(ctx context.Context, slug string) (*types.Book, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Book), args.Error(1)
}

func (m *MockBookRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookRepo) Insert(ctx context.Context, book *types.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookRepo) Update(ctx context.Context, book *types.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(t *testing.T) (*BookServiceImpl, *MockBookRepo, *assets.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := assets.NewStore(dir, slog.Default())
	require.NoError(t, err)
	repo := new(MockBookRepo)
	return NewBookService(repo, store, slog.Default()), repo, store, dir
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	actor := types.Actor{ID: uuid.New(), Role: types.RoleUser}

	t.Run("WithoutCover", func(t *testing.T) {
		service, repo, _, dir := newTestService(t)

		repo.On("SlugExists", ctx, "dune").Return(false, nil).Once()
		repo.On("Insert", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

		book, err := service.Create(ctx, actor, types.CreateBookParams{
			Title:  "Dune",
			Author: "Frank Herbert",
			Genre:  "SF",
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, "dune", book.Slug)
		assert.Equal(t, actor.ID, book.UserID)
		assert.Nil(t, book.CoverImage)
		assert.Empty(t, storedFiles(t, dir))
		repo.AssertExpectations(t)
	})

	t.Run("WithCover", func(t *testing.T) {
		service, repo, _, dir := newTestService(t)

		repo.On("SlugExists", ctx, "dune").Return(false, nil).Once()
		repo.On("Insert", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

		book, err := service.Create(ctx, actor, types.CreateBookParams{
			Title:  "Dune",
			Author: "Frank Herbert",
			Genre:  "SF",
		}, &types.FileUpload{Data: []byte("jpeg-bytes"), Filename: "cover.jpg"})

		require.NoError(t, err)
		require.NotNil(t, book.CoverImage)
		assert.Contains(t, *book.CoverImage, "dune-")
		assert.Contains(t, storedFiles(t, dir), *book.CoverImage)
	})

	t.Run("InvalidGenreStoresNoAsset", func(t *testing.T) {
		service, repo, _, dir := newTestService(t)

		_, err := service.Create(ctx, actor, types.CreateBookParams{
			Title:  "Dune",
			Author: "Frank Herbert",
			Genre:  "Western",
		}, &types.FileUpload{Data: []byte("jpeg-bytes"), Filename: "cover.jpg"})

		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Empty(t, storedFiles(t, dir))
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("MissingTitle", func(t *testing.T) {
		service, _, _, _ := newTestService(t)

		_, err := service.Create(ctx, actor, types.CreateBookParams{
			Author: "Frank Herbert",
			Genre:  "SF",
		}, nil)

		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("SlugCollisionGetsNumericSuffix", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)

		repo.On("SlugExists", ctx, "dune").Return(true, nil).Once()
		repo.On("SlugExists", ctx, "dune-2").Return(true, nil).Once()
		repo.On("SlugExists", ctx, "dune-3").Return(false, nil).Once()
		repo.On("Insert", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

		book, err := service.Create(ctx, actor, types.CreateBookParams{
			Title:  "Dune",
			Author: "Frank Herbert",
			Genre:  "SF",
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, "dune-3", book.Slug)
		repo.AssertExpectations(t)
	})

	t.Run("InsertFailureRemovesStoredCover", func(t *testing.T) {
		service, repo, _, dir := newTestService(t)

		repo.On("SlugExists", ctx, "dune").Return(false, nil).Once()
		repo.On("Insert", ctx, mock.AnythingOfType("*types.Book")).Return(errors.New("db down")).Once()

		_, err := service.Create(ctx, actor, types.CreateBookParams{
			Title:  "Dune",
			Author: "Frank Herbert",
			Genre:  "SF",
		}, &types.FileUpload{Data: []byte("jpeg-bytes"), Filename: "cover.jpg"})

		assert.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrStorage)
		assert.Empty(t, storedFiles(t, dir), "orphaned cover must be cleaned up")
	})
}

func TestUpdate_Service(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	owner := types.Actor{ID: ownerID, Role: types.RoleUser}

	existing := func() *types.Book {
		return &types.Book{
			ID:     uuid.New(),
			Title:  "Dune",
			Author: "Frank Herbert",
			Genre:  "SF",
			Slug:   "dune",
			UserID: ownerID,
		}
	}

	t.Run("NonOwnerForbidden", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		stranger := types.Actor{ID: uuid.New(), Role: types.RoleUser}

		repo.On("FindBySlug", ctx, "dune").Return(existing(), nil).Once()

		_, err := service.Update(ctx, stranger, "dune", types.UpdateBookParams{}, nil)
		assert.ErrorIs(t, err, types.ErrForbidden)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("AdminMayEdit", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		admin := types.Actor{ID: uuid.New(), Role: types.RoleAdmin}
		newAuthor := "F. Herbert"

		repo.On("FindBySlug", ctx, "dune").Return(existing(), nil).Once()
		repo.On("Update", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

		book, err := service.Update(ctx, admin, "dune", types.UpdateBookParams{Author: &newAuthor}, nil)
		require.NoError(t, err)
		assert.Equal(t, newAuthor, book.Author)
		assert.NotNil(t, book.UpdatedAt)
	})

	t.Run("TitleChangeRecomputesSlug", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		newTitle := "Dune Messie"

		repo.On("FindBySlug", ctx, "dune").Return(existing(), nil).Once()
		repo.On("SlugExists", ctx, "dune-messie").Return(false, nil).Once()
		repo.On("Update", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

		book, err := service.Update(ctx, owner, "dune", types.UpdateBookParams{Title: &newTitle}, nil)
		require.NoError(t, err)
		assert.Equal(t, "dune-messie", book.Slug)
	})

	t.Run("UnchangedTitleKeepsSlug", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		sameTitle := "Dune"

		repo.On("FindBySlug", ctx, "dune").Return(existing(), nil).Once()
		repo.On("Update", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

		book, err := service.Update(ctx, owner, "dune", types.UpdateBookParams{Title: &sameTitle}, nil)
		require.NoError(t, err)
		assert.Equal(t, "dune", book.Slug)
		repo.AssertNotCalled(t, "SlugExists", mock.Anything, mock.Anything)
	})

	t.Run("NewCoverReplacesOldAfterCommit", func(t *testing.T) {
		service, repo, store, dir := newTestService(t)

		oldName, err := store.Store([]byte("old"), "old.jpg", "dune")
		require.NoError(t, err)
		b := existing()
		b.CoverImage = &oldName

		repo.On("FindBySlug", ctx, "dune").Return(b, nil).Once()
		repo.On("Update", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

		book, err := service.Update(ctx, owner, "dune", types.UpdateBookParams{},
			&types.FileUpload{Data: []byte("new"), Filename: "new.png"})
		require.NoError(t, err)
		require.NotNil(t, book.CoverImage)
		assert.NotEqual(t, oldName, *book.CoverImage)

		names := storedFiles(t, dir)
		assert.NotContains(t, names, oldName, "replaced cover must be deleted")
		assert.Contains(t, names, *book.CoverImage)
	})

	t.Run("UpdateFailureKeepsOldCoverAndRemovesNew", func(t *testing.T) {
		service, repo, store, dir := newTestService(t)

		oldName, err := store.Store([]byte("old"), "old.jpg", "dune")
		require.NoError(t, err)
		b := existing()
		b.CoverImage = &oldName

		repo.On("FindBySlug", ctx, "dune").Return(b, nil).Once()
		repo.On("Update", ctx, mock.AnythingOfType("*types.Book")).Return(errors.New("db down")).Once()

		_, err = service.Update(ctx, owner, "dune", types.UpdateBookParams{},
			&types.FileUpload{Data: []byte("new"), Filename: "new.png"})
		assert.Error(t, err)

		names := storedFiles(t, dir)
		assert.Equal(t, []string{oldName}, names, "old cover stays, new one is cleaned up")
	})
}

func TestDelete_Service(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	owner := types.Actor{ID: ownerID, Role: types.RoleUser}

	t.Run("RemovesRecordAndAsset", func(t *testing.T) {
		service, repo, store, dir := newTestService(t)

		coverName, err := store.Store([]byte("jpeg"), "cover.jpg", "dune")
		require.NoError(t, err)
		b := &types.Book{ID: uuid.New(), Title: "Dune", Slug: "dune", UserID: ownerID, CoverImage: &coverName}

		repo.On("FindBySlug", ctx, "dune").Return(b, nil).Once()
		repo.On("Delete", ctx, b.ID).Return(nil).Once()

		require.NoError(t, service.Delete(ctx, owner, "dune"))
		assert.Empty(t, storedFiles(t, dir))
		repo.AssertExpectations(t)
	})

	t.Run("AdminMayDeleteAnyRecord", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		admin := types.Actor{ID: uuid.New(), Role: types.RoleAdmin}
		b := &types.Book{ID: uuid.New(), Title: "Dune", Slug: "dune", UserID: ownerID}

		repo.On("FindBySlug", ctx, "dune").Return(b, nil).Once()
		repo.On("Delete", ctx, b.ID).Return(nil).Once()

		assert.NoError(t, service.Delete(ctx, admin, "dune"))
	})

	t.Run("NonOwnerForbidden", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)
		stranger := types.Actor{ID: uuid.New(), Role: types.RoleUser}
		b := &types.Book{ID: uuid.New(), Title: "Dune", Slug: "dune", UserID: ownerID}

		repo.On("FindBySlug", ctx, "dune").Return(b, nil).Once()

		assert.ErrorIs(t, service.Delete(ctx, stranger, "dune"), types.ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("MissingRecord", func(t *testing.T) {
		service, repo, _, _ := newTestService(t)

		repo.On("FindBySlug", ctx, "missing").Return(nil, types.ErrNotFound).Once()

		assert.ErrorIs(t, service.Delete(ctx, owner, "missing"), types.ErrNotFound)
	})
}

func TestGetBySlugCaching(t *testing.T) {
	ctx := context.Background()
	service, repo, _, _ := newTestService(t)

	b := &types.Book{ID: uuid.New(), Title: "Dune", Slug: "dune", UserID: uuid.New()}
	repo.On("FindBySlug", ctx, "dune").Return(b, nil).Once()

	first, err := service.GetBySlug(ctx, "dune")
	require.NoError(t, err)
	second, err := service.GetBySlug(ctx, "dune")
	require.NoError(t, err)

	assert.Same(t, first, second)
	repo.AssertNumberOfCalls(t, "FindBySlug", 1)
}

func TestCoverFileNaming(t *testing.T) {
	service, repo, _, dir := newTestService(t)
	ctx := context.Background()
	actor := types.Actor{ID: uuid.New(), Role: types.RoleUser}

	repo.On("SlugExists", ctx, "eloge-de-l-ombre").Return(false, nil).Once()
	repo.On("Insert", ctx, mock.AnythingOfType("*types.Book")).Return(nil).Once()

	book, err := service.Create(ctx, actor, types.CreateBookParams{
		Title:  "Éloge de l'ombre",
		Author: "Jun'ichirō Tanizaki",
		Genre:  "Roman",
	}, &types.FileUpload{Data: []byte("jpeg"), Filename: "Photo Couverture.JPG"})

	require.NoError(t, err)
	require.NotNil(t, book.CoverImage)
	assert.True(t, filepath.Ext(*book.CoverImage) == ".jpg", "extension is lowercased")
	assert.Contains(t, *book.CoverImage, "eloge-de-l-ombre-")
	assert.Contains(t, storedFiles(t, dir), *book.CoverImage)
}
