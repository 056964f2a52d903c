package qpay

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"

	"salbar-be/internal/payment"
)

func decodeSession(data json.RawMessage) (*Session, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, payment.NewInvalidDataError("QPay session data is empty", nil)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, payment.NewInvalidDataError("QPay session data is malformed", err)
	}
	switch s.Status {
	case "", payment.StatusPending, payment.StatusAuthorized, payment.StatusCaptured,
		payment.StatusRequiresMore, payment.StatusCanceled, payment.StatusError:
	default:
		return nil, payment.NewInvalidDataError(
			"QPay session data is malformed", fmt.Errorf("unknown status %q", s.Status))
	}
	return &s, nil
}

// decodeInvoiceSession is decodeSession for operations that talk to the gateway.
func decodeInvoiceSession(data json.RawMessage) (*Session, error) {
	s, err := decodeSession(data)
	if err != nil {
		return nil, err
	}
	if s.InvoiceID == "" {
		return nil, payment.NewInvalidDataError("QPay session data is missing qpay_invoice_id", ErrMissingInvoiceID)
	}
	return s, nil
}

func encodeSession(s *Session) (json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qpay session: %w", err)
	}
	return b, nil
}

// minorToGateway converts minor currency units to gateway units.
func minorToGateway(amount int64) int64 {
	return int64(math.Round(float64(amount) / 100))
}

// gatewayToMinor is the inverse used for webhook amounts.
func gatewayToMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func callbackURL(base, resourceID string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return base + "?payment_id=" + url.QueryEscape(resourceID)
	}
	q := u.Query()
	q.Set("payment_id", resourceID)
	u.RawQuery = q.Encode()
	return u.String()
}

func receiverCode(in payment.InitiateInput) string {
	var phone, email string
	if in.Customer != nil {
		phone, email = in.Customer.Phone, in.Customer.Email
	}
	return firstNonEmpty(phone, in.Email, email, "CUSTOMER")
}
