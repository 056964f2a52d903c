package productext

import (
	"context"
	"fmt"
	"strings"

	"salbar-be/internal/logger"
	"salbar-be/internal/workflow"

	"go.uber.org/zap"
)

const CreateCustomStepName = "create-custom"

// CustomInput is the additional data accepted when a product is created or updated.
type CustomInput struct {
	ProductID  string  `json:"product_id"`
	CustomName *string `json:"custom_name,omitempty"`
}

// CreateCustomStep creates the product extension when a custom name is given
// and soft-deletes it again if a later step fails.
func CreateCustomStep(svc Service) workflow.Step {
	return workflow.Step{
		Name: CreateCustomStepName,
		Invoke: func(ctx context.Context, input any) (any, any, error) {
			in, ok := input.(CustomInput)
			if !ok {
				return nil, nil, fmt.Errorf("%s: unexpected input %T", CreateCustomStepName, input)
			}
			if in.CustomName == nil {
				return (*ProductExtension)(nil), nil, nil
			}
			name := strings.TrimSpace(*in.CustomName)
			if name == "" {
				return (*ProductExtension)(nil), nil, nil
			}

			ext, err := svc.CreateCustoms(ctx, CreateInput{ProductID: in.ProductID, CustomName: name})
			if err != nil {
				return nil, nil, err
			}
			return ext, ext, nil
		},
		Compensate: func(ctx context.Context, compensation any) error {
			ext, ok := compensation.(*ProductExtension)
			if !ok || ext == nil {
				return nil
			}
			logger.FromCtx(ctx).Info("removing product extension", zap.String("extension_id", ext.ID))
			return svc.DeleteCustoms(ctx, ext.ID)
		},
	}
}
