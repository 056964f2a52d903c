package qpay

import "salbar-be/internal/payment"

// MapStatus translates a remote payment status into a session status.
// Refunds keep the session authorized; there is no separate refunded state.
func MapStatus(s RemoteStatus) payment.SessionStatus {
	switch s {
	case RemotePaid:
		return payment.StatusAuthorized
	case RemotePending:
		return payment.StatusPending
	case RemoteRefunded, RemotePartialRefunded:
		return payment.StatusAuthorized
	default:
		return payment.StatusError
	}
}

// latestRow returns the first row of a check response, or nil when the
// gateway has not seen a payment for the invoice yet.
func latestRow(res *paymentCheckResponse) *PaymentRow {
	if res == nil || res.Count <= 0 || len(res.Rows) == 0 {
		return nil
	}
	return &res.Rows[0]
}

// statusOf is MapStatus over a whole check response; no rows means pending.
func statusOf(res *paymentCheckResponse) payment.SessionStatus {
	row := latestRow(res)
	if row == nil {
		return payment.StatusPending
	}
	return MapStatus(row.PaymentStatus)
}

func settled(s RemoteStatus) bool {
	return s == RemotePaid || s == RemoteRefunded || s == RemotePartialRefunded
}
