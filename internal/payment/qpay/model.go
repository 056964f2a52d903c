package qpay

import (
	"time"

	"salbar-be/internal/payment"
)

// RemoteStatus is the payment_status reported by /v2/payment/check.
type RemoteStatus string

const (
	RemotePaid            RemoteStatus = "PAID"
	RemotePending         RemoteStatus = "PENDING"
	RemoteRefunded        RemoteStatus = "REFUNDED"
	RemotePartialRefunded RemoteStatus = "PARTIAL_REFUNDED"
)

type authResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type invoiceRequest struct {
	InvoiceCode         string `json:"invoice_code"`
	SenderInvoiceNo     string `json:"sender_invoice_no"`
	InvoiceReceiverCode string `json:"invoice_receiver_code"`
	InvoiceDescription  string `json:"invoice_description"`
	Amount              int64  `json:"amount"`
	CallbackURL         string `json:"callback_url"`
	SenderBranchCode    string `json:"sender_branch_code"`
}

type invoiceResponse struct {
	InvoiceID       string       `json:"invoice_id"`
	QPayPaymentID   string       `json:"qpay_payment_id"`
	QRText          string       `json:"qr_text"`
	QRImage         string       `json:"qr_image"`
	URLs            []PaymentURL `json:"urls"`
	InvoiceCode     string       `json:"invoice_code"`
	SenderInvoiceNo string       `json:"sender_invoice_no"`
}

// PaymentURL is a bank or wallet deep link returned with an invoice.
type PaymentURL struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Link        string `json:"link"`
}

type checkOffset struct {
	PageNumber int `json:"page_number"`
	PageLimit  int `json:"page_limit"`
}

type paymentCheckRequest struct {
	ObjectType string      `json:"object_type"`
	ObjectID   string      `json:"object_id"`
	Offset     checkOffset `json:"offset"`
}

type paymentCheckResponse struct {
	Count int          `json:"count"`
	Rows  []PaymentRow `json:"rows"`
}

// PaymentRow is one remote payment record. It is never cached.
type PaymentRow struct {
	PaymentID       string       `json:"payment_id"`
	PaymentStatus   RemoteStatus `json:"payment_status"`
	PaymentAmount   float64      `json:"payment_amount"`
	PaymentWallet   string       `json:"payment_wallet"`
	PaymentCurrency string       `json:"payment_currency"`
	PaymentType     string       `json:"payment_type"`
	CreatedDate     string       `json:"created_date"`
	TransactionID   string       `json:"transaction_id"`
}

type refundRequest struct {
	InvoiceID string `json:"invoice_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

type refundResponse struct {
	ErrorCode string `json:"error_code"`
	ErrorDesc string `json:"error_desc,omitempty"`
	RefundID  string `json:"refund_id,omitempty"`
}

type webhookData struct {
	QPayPaymentID string   `json:"qpay_payment_id"`
	PaymentStatus string   `json:"payment_status"`
	InvoiceID     string   `json:"invoice_id"`
	PaymentAmount *float64 `json:"payment_amount,omitempty"`
	PaymentWallet string   `json:"payment_wallet,omitempty"`
	TransactionID string   `json:"transaction_id,omitempty"`
}

// Session is the provider data stored on a payment session.
type Session struct {
	ID              string                `json:"id"`
	InvoiceID       string                `json:"qpay_invoice_id"`
	PaymentID       string                `json:"qpay_payment_id"`
	QRText          string                `json:"qr_text"`
	QRImage         string                `json:"qr_image"`
	URLs            []PaymentURL          `json:"urls"`
	InvoiceCode     string                `json:"invoice_code"`
	SenderInvoiceNo string                `json:"sender_invoice_no"`
	Amount          int64                 `json:"amount"`
	CurrencyCode    string                `json:"currency_code"`
	Status          payment.SessionStatus `json:"status"`
	CapturedAt      *time.Time            `json:"captured_at,omitempty"`
	CanceledAt      *time.Time            `json:"canceled_at,omitempty"`
	RefundedAt      *time.Time            `json:"refunded_at,omitempty"`
	UpdatedAt       *time.Time            `json:"updated_at,omitempty"`
}
