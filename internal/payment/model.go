package payment

import (
	"encoding/json"
	"net/http"
	"time"
)

type SessionStatus string

const (
	StatusPending      SessionStatus = "pending"
	StatusAuthorized   SessionStatus = "authorized"
	StatusCaptured     SessionStatus = "captured"
	StatusRequiresMore SessionStatus = "requires_more"
	StatusCanceled     SessionStatus = "canceled"
	StatusError        SessionStatus = "error"
)

// Session is the persisted record of one payment attempt.
// Data is owned by the provider and round-tripped untouched.
type Session struct {
	ID           string          `json:"id"`
	ProviderID   string          `json:"provider_id"`
	ResourceID   string          `json:"resource_id"`
	RemoteID     string          `json:"remote_id"`
	Status       SessionStatus   `json:"status"`
	Amount       float64         `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Customer struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type InitiateInput struct {
	Amount       float64   `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
	ResourceID   string    `json:"resource_id"`
	Customer     *Customer `json:"customer,omitempty"`
	Email        string    `json:"email,omitempty"`
	Description  string    `json:"description,omitempty"`
}

type InitiateOutput struct {
	ID string
	// RemoteID is the provider-side reference webhooks are correlated by.
	RemoteID string
	Data     json.RawMessage
}

type SessionInput struct {
	Data json.RawMessage
}

type StatusOutput struct {
	Status SessionStatus
	Data   json.RawMessage
}

type DataOutput struct {
	Data json.RawMessage
}

// RetrieveResult never carries a hard failure: when the provider cannot
// refresh the session, SoftFail is set and Data is the last known session.
type RetrieveResult struct {
	Data     json.RawMessage
	SoftFail bool
	Cause    error
}

type RefundInput struct {
	Data json.RawMessage
	// Amount is in minor currency units.
	Amount int64
}

type UpdateContext struct {
	// Amount is in minor currency units.
	Amount       *int64 `json:"amount,omitempty"`
	CurrencyCode string `json:"currency_code,omitempty"`
}

type UpdateInput struct {
	Data    json.RawMessage
	Context UpdateContext
}

type WebhookPayload struct {
	Data    map[string]any
	RawData []byte
	Headers http.Header
}

type WebhookAction string

const (
	ActionAuthorized   WebhookAction = "authorized"
	ActionCaptured     WebhookAction = "captured"
	ActionFailed       WebhookAction = "failed"
	ActionNotSupported WebhookAction = "not_supported"
)

type WebhookActionData struct {
	SessionID string `json:"session_id"`
	// Amount is in minor currency units.
	Amount int64 `json:"amount"`
}

// WebhookActionResult is always a value: Cause records why processing
// degraded to ActionNotSupported, if it did.
type WebhookActionResult struct {
	Action WebhookAction     `json:"action"`
	Data   WebhookActionData `json:"data"`
	Cause  error             `json:"-"`
}
