package payment

import "context"

// Provider is implemented by every payment gateway integration registered in the Module.
type Provider interface {
	Identifier() string

	InitiatePayment(ctx context.Context, in InitiateInput) (*InitiateOutput, error)
	AuthorizePayment(ctx context.Context, in SessionInput) (*StatusOutput, error)
	CapturePayment(ctx context.Context, in SessionInput) (*DataOutput, error)
	CancelPayment(ctx context.Context, in SessionInput) (*DataOutput, error)
	DeletePayment(ctx context.Context, in SessionInput) (*DataOutput, error)
	GetPaymentStatus(ctx context.Context, in SessionInput) (*StatusOutput, error)
	RefundPayment(ctx context.Context, in RefundInput) (*DataOutput, error)
	RetrievePayment(ctx context.Context, in SessionInput) RetrieveResult
	UpdatePayment(ctx context.Context, in UpdateInput) (*DataOutput, error)

	// GetWebhookActionAndData must not fail; errors degrade to ActionNotSupported.
	GetWebhookActionAndData(ctx context.Context, payload WebhookPayload) WebhookActionResult
}
