package productext

import (
	"context"
	"errors"
	"testing"

	"salbar-be/internal/utils"
	"salbar-be/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateCustomStep(t *testing.T) {
	ctx := context.Background()

	t.Run("NoCustomNameIsNoop", func(t *testing.T) {
		repo := new(MockRepository)
		step := CreateCustomStep(newTestService(repo))

		out, err := workflow.Run(ctx, "test", []workflow.Step{step}, CustomInput{ProductID: "prod_1"})

		require.NoError(t, err)
		assert.Nil(t, out.(*ProductExtension))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("BlankCustomNameIsNoop", func(t *testing.T) {
		repo := new(MockRepository)
		step := CreateCustomStep(newTestService(repo))

		out, err := workflow.Run(ctx, "test", []workflow.Step{step},
			CustomInput{ProductID: "prod_1", CustomName: utils.StrPtr("   ")})

		require.NoError(t, err)
		assert.Nil(t, out.(*ProductExtension))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("CreatesExtension", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		step := CreateCustomStep(newTestService(repo))

		out, err := workflow.Run(ctx, "test", []workflow.Step{step},
			CustomInput{ProductID: "prod_1", CustomName: utils.StrPtr("Blue")})

		require.NoError(t, err)
		ext := out.(*ProductExtension)
		assert.Equal(t, "prod_1", ext.ProductID)
		assert.Equal(t, "Blue", ext.CustomName)
	})

	t.Run("LaterFailureSoftDeletes", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		repo.On("SoftDelete", mock.Anything, "prodext_test").Return(nil)

		failing := workflow.Step{
			Name: "link-product",
			Invoke: func(ctx context.Context, input any) (any, any, error) {
				return nil, nil, errors.New("link failed")
			},
		}

		_, err := workflow.Run(ctx, "test", []workflow.Step{CreateCustomStep(newTestService(repo)), failing},
			CustomInput{ProductID: "prod_1", CustomName: utils.StrPtr("Blue")})

		var stepErr *workflow.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, "link-product", stepErr.Step)
		repo.AssertCalled(t, "SoftDelete", mock.Anything, "prodext_test")
	})

	t.Run("CreateFailureSurfaces", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Create", ctx, mock.Anything).Return(errors.New("db error"))

		_, err := workflow.Run(ctx, "test", []workflow.Step{CreateCustomStep(newTestService(repo))},
			CustomInput{ProductID: "prod_1", CustomName: utils.StrPtr("Blue")})

		var stepErr *workflow.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, CreateCustomStepName, stepErr.Step)
		repo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
	})

	t.Run("WrongInputType", func(t *testing.T) {
		_, err := workflow.Run(ctx, "test", []workflow.Step{CreateCustomStep(newTestService(new(MockRepository)))}, "oops")
		assert.Error(t, err)
	})
}
