package productext

import "errors"

var (
	ErrNotFound            = errors.New("product extension not found")
	ErrProductIDRequired   = errors.New("product_id is required")
	ErrCustomNameRequired  = errors.New("custom_name is required")
	ErrExtensionIDRequired = errors.New("product extension id is required")
)
