package productext

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, e *ProductExtension) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*ProductExtension, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProductExtension), args.Error(1)
}

func (m *MockRepository) ListByProduct(ctx context.Context, productID string) ([]*ProductExtension, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ProductExtension), args.Error(1)
}

func (m *MockRepository) SoftDelete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) Restore(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newTestService(repo Repository) *service {
	return &service{repo: repo, newID: func() string { return "prodext_test" }}
}

// --- Tests ---

func TestService_CreateCustoms(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo)

		repo.On("Create", ctx, mock.MatchedBy(func(e *ProductExtension) bool {
			return e.ID == "prodext_test" && e.ProductID == "prod_1" && e.CustomName == "Blue"
		})).Return(nil)

		ext, err := svc.CreateCustoms(ctx, CreateInput{ProductID: " prod_1 ", CustomName: " Blue "})

		require.NoError(t, err)
		assert.Equal(t, "prodext_test", ext.ID)
		assert.Equal(t, "Blue", ext.CustomName)
		repo.AssertExpectations(t)
	})

	t.Run("MissingProductID", func(t *testing.T) {
		repo := new(MockRepository)
		_, err := newTestService(repo).CreateCustoms(ctx, CreateInput{CustomName: "Blue"})

		assert.ErrorIs(t, err, ErrProductIDRequired)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("MissingCustomName", func(t *testing.T) {
		repo := new(MockRepository)
		_, err := newTestService(repo).CreateCustoms(ctx, CreateInput{ProductID: "prod_1", CustomName: "  "})

		assert.ErrorIs(t, err, ErrCustomNameRequired)
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", ctx, mock.Anything).Return(errors.New("db error"))

		_, err := newTestService(repo).CreateCustoms(ctx, CreateInput{ProductID: "prod_1", CustomName: "Blue"})

		assert.EqualError(t, err, "db error")
	})
}

func TestNewService_GeneratesPrefixedIDs(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("Create", ctx, mock.Anything).Return(nil)

	ext, err := NewService(repo).CreateCustoms(ctx, CreateInput{ProductID: "prod_1", CustomName: "Blue"})

	require.NoError(t, err)
	assert.Regexp(t, `^prodext_[0-9a-f-]{36}$`, ext.ID)
}

func TestService_DeleteAndRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("Delete", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SoftDelete", ctx, "prodext_1").Return(nil)

		assert.NoError(t, newTestService(repo).DeleteCustoms(ctx, "prodext_1"))
		repo.AssertExpectations(t)
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SoftDelete", ctx, "missing").Return(ErrNotFound)

		assert.ErrorIs(t, newTestService(repo).DeleteCustoms(ctx, "missing"), ErrNotFound)
	})

	t.Run("DeleteEmptyID", func(t *testing.T) {
		assert.ErrorIs(t, newTestService(new(MockRepository)).DeleteCustoms(ctx, ""), ErrExtensionIDRequired)
	})

	t.Run("Restore", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Restore", ctx, "prodext_1").Return(nil)

		assert.NoError(t, newTestService(repo).RestoreCustoms(ctx, "prodext_1"))
		repo.AssertExpectations(t)
	})
}

func TestService_RetrieveByProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsNewest", func(t *testing.T) {
		repo := new(MockRepository)
		newest := &ProductExtension{ID: "prodext_2"}
		repo.On("ListByProduct", ctx, "prod_1").Return([]*ProductExtension{newest, {ID: "prodext_1"}}, nil)

		ext, err := newTestService(repo).RetrieveByProduct(ctx, "prod_1")

		require.NoError(t, err)
		assert.Same(t, newest, ext)
	})

	t.Run("NoneFound", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByProduct", ctx, "prod_1").Return([]*ProductExtension{}, nil)

		_, err := newTestService(repo).RetrieveByProduct(ctx, "prod_1")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByProduct", ctx, "prod_1").Return(nil, errors.New("db error"))

		_, err := newTestService(repo).RetrieveByProduct(ctx, "prod_1")

		assert.Error(t, err)
	})
}
