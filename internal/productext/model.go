package productext

import "time"

// ProductExtension carries store-specific fields linked to a product by ProductID.
type ProductExtension struct {
	ID         string     `json:"id"`
	ProductID  string     `json:"product_id"`
	CustomName string     `json:"custom_name"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

type CreateInput struct {
	ProductID  string `json:"product_id"`
	CustomName string `json:"custom_name"`
}
