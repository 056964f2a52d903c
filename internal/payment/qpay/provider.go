package qpay

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"salbar-be/internal/logger"
	"salbar-be/internal/payment"

	"go.uber.org/zap"
)

var _ payment.Provider = (*Provider)(nil)

func (p *Provider) logFor(ctx context.Context) *zap.Logger {
	return logger.With(ctx, p.log)
}

func (p *Provider) senderInvoiceNo(resourceID string) string {
	if p.opts.DeterministicInvoiceNo {
		return "MEDUSA-" + resourceID
	}
	return fmt.Sprintf("MEDUSA-%s-%d", resourceID, p.now().UnixMilli())
}

func (p *Provider) stamp() *time.Time {
	t := p.now().UTC()
	return &t
}

// InitiatePayment creates a QPay invoice for the cart or order in in.ResourceID.
func (p *Provider) InitiatePayment(ctx context.Context, in payment.InitiateInput) (*payment.InitiateOutput, error) {
	log := p.logFor(ctx).With(
		zap.String("resource_id", in.ResourceID),
		zap.Float64("amount", in.Amount),
		zap.String("currency_code", in.CurrencyCode),
	)

	description := in.Description
	if description == "" {
		description = "Payment for Order " + in.ResourceID
	}

	req := invoiceRequest{
		InvoiceCode:         p.opts.InvoiceCode,
		SenderInvoiceNo:     p.senderInvoiceNo(in.ResourceID),
		InvoiceReceiverCode: receiverCode(in),
		InvoiceDescription:  description,
		Amount:              int64(math.Round(in.Amount)),
		CallbackURL:         callbackURL(p.opts.CallbackURL, in.ResourceID),
		SenderBranchCode:    SenderBranchCode,
	}

	log.Info("Creating QPay invoice", zap.String("sender_invoice_no", req.SenderInvoiceNo))

	var res invoiceResponse
	if err := p.call(ctx, pathInvoice, req, &res, bearerAuth); err != nil {
		log.Error("Failed to initiate QPay payment", zap.Error(err))
		return nil, payment.NewRequiresMoreError("Failed to initiate QPay payment", remoteStatusCode(err), err)
	}
	if res.InvoiceID == "" && res.QRText == "" {
		log.Error("QPay invoice response has neither invoice_id nor qr_text")
		return nil, payment.NewRequiresMoreError("Failed to initiate QPay payment", 0, ErrInvalidInvoiceResponse)
	}

	session := &Session{
		ID:              res.InvoiceID,
		InvoiceID:       res.InvoiceID,
		PaymentID:       res.QPayPaymentID,
		QRText:          res.QRText,
		QRImage:         res.QRImage,
		URLs:            res.URLs,
		InvoiceCode:     p.opts.InvoiceCode,
		SenderInvoiceNo: req.SenderInvoiceNo,
		Amount:          req.Amount,
		CurrencyCode:    in.CurrencyCode,
		Status:          payment.StatusPending,
		UpdatedAt:       p.stamp(),
	}
	data, err := encodeSession(session)
	if err != nil {
		log.Error("Failed to encode QPay session", zap.Error(err))
		return nil, payment.NewRequiresMoreError("Failed to initiate QPay payment", 0, err)
	}

	log.Info("QPay invoice created",
		zap.String("invoice_id", res.InvoiceID),
		zap.Int("url_count", len(res.URLs)),
	)
	return &payment.InitiateOutput{ID: in.ResourceID, RemoteID: res.InvoiceID, Data: data}, nil
}

// AuthorizePayment reconciles the session with the gateway.
func (p *Provider) AuthorizePayment(ctx context.Context, in payment.SessionInput) (*payment.StatusOutput, error) {
	return p.refreshStatus(ctx, in, "Failed to authorize QPay payment")
}

func (p *Provider) GetPaymentStatus(ctx context.Context, in payment.SessionInput) (*payment.StatusOutput, error) {
	return p.refreshStatus(ctx, in, "Failed to get QPay payment status")
}

func (p *Provider) refreshStatus(ctx context.Context, in payment.SessionInput, failure string) (*payment.StatusOutput, error) {
	s, err := decodeInvoiceSession(in.Data)
	if err != nil {
		p.logFor(ctx).Error(failure, zap.Error(err))
		return nil, err
	}
	log := p.logFor(ctx).With(zap.String("invoice_id", s.InvoiceID))

	res, err := p.checkRemoteStatus(ctx, s.InvoiceID)
	if err != nil {
		log.Error(failure, zap.Error(err))
		return nil, payment.NewAuthorizationError(failure, err)
	}

	s.Status = statusOf(res)
	s.UpdatedAt = p.stamp()
	data, err := encodeSession(s)
	if err != nil {
		return nil, payment.NewAuthorizationError(failure, err)
	}

	log.Info("QPay payment status refreshed", zap.String("status", string(s.Status)))
	return &payment.StatusOutput{Status: s.Status, Data: data}, nil
}

// RetrievePayment never fails: on any error the input data comes back
// unchanged with SoftFail set.
func (p *Provider) RetrievePayment(ctx context.Context, in payment.SessionInput) payment.RetrieveResult {
	log := p.logFor(ctx)
	soft := func(err error) payment.RetrieveResult {
		log.Warn("Failed to retrieve QPay payment, returning stored session", zap.Error(err))
		return payment.RetrieveResult{Data: in.Data, SoftFail: true, Cause: err}
	}

	s, err := decodeInvoiceSession(in.Data)
	if err != nil {
		return soft(err)
	}
	res, err := p.checkRemoteStatus(ctx, s.InvoiceID)
	if err != nil {
		return soft(err)
	}

	row := latestRow(res)
	if row == nil {
		return payment.RetrieveResult{Data: in.Data}
	}

	s.Status = MapStatus(row.PaymentStatus)
	s.PaymentID = firstNonEmpty(row.PaymentID, s.PaymentID)
	s.UpdatedAt = p.stamp()
	data, err := encodeSession(s)
	if err != nil {
		return soft(err)
	}
	return payment.RetrieveResult{Data: data}
}

// CapturePayment succeeds only when the gateway reports the invoice PAID.
func (p *Provider) CapturePayment(ctx context.Context, in payment.SessionInput) (*payment.DataOutput, error) {
	const failure = "Failed to capture QPay payment"

	s, err := decodeInvoiceSession(in.Data)
	if err != nil {
		p.logFor(ctx).Error(failure, zap.Error(err))
		return nil, err
	}
	log := p.logFor(ctx).With(zap.String("invoice_id", s.InvoiceID))

	res, err := p.checkRemoteStatus(ctx, s.InvoiceID)
	if err != nil {
		log.Error(failure, zap.Error(err))
		return nil, payment.NewAuthorizationError(failure, err)
	}

	row := latestRow(res)
	if row == nil {
		log.Warn("No QPay payment found for capture")
		return nil, payment.NewAuthorizationError(failure, ErrPaymentNotFound)
	}
	if row.PaymentStatus != RemotePaid {
		log.Warn("QPay payment not completed", zap.String("payment_status", string(row.PaymentStatus)))
		return nil, payment.NewAuthorizationError(failure,
			fmt.Errorf("%w, current status: %s", ErrPaymentNotCompleted, row.PaymentStatus))
	}

	s.Status = payment.StatusAuthorized
	s.PaymentID = firstNonEmpty(row.PaymentID, s.PaymentID)
	s.CapturedAt = p.stamp()
	s.UpdatedAt = s.CapturedAt
	data, err := encodeSession(s)
	if err != nil {
		return nil, payment.NewAuthorizationError(failure, err)
	}

	log.Info("QPay payment captured", zap.String("payment_id", s.PaymentID))
	return &payment.DataOutput{Data: data}, nil
}

// CancelPayment is local only; QPay invoices expire on their own.
func (p *Provider) CancelPayment(ctx context.Context, in payment.SessionInput) (*payment.DataOutput, error) {
	s, err := decodeSession(in.Data)
	if err != nil {
		p.logFor(ctx).Error("Failed to cancel QPay payment", zap.Error(err))
		return nil, err
	}
	s.Status = payment.StatusCanceled
	s.CanceledAt = p.stamp()
	s.UpdatedAt = s.CanceledAt

	data, err := encodeSession(s)
	if err != nil {
		return nil, err
	}
	p.logFor(ctx).Info("QPay payment canceled", zap.String("invoice_id", s.InvoiceID))
	return &payment.DataOutput{Data: data}, nil
}

// DeletePayment is CancelPayment; the gateway has no delete.
func (p *Provider) DeletePayment(ctx context.Context, in payment.SessionInput) (*payment.DataOutput, error) {
	return p.CancelPayment(ctx, in)
}

// RefundPayment refunds amount (minor units) against the session's invoice.
func (p *Provider) RefundPayment(ctx context.Context, in payment.RefundInput) (*payment.DataOutput, error) {
	const failure = "Failed to refund QPay payment"

	s, err := decodeInvoiceSession(in.Data)
	if err != nil {
		p.logFor(ctx).Error(failure, zap.Error(err))
		return nil, err
	}
	log := p.logFor(ctx).With(zap.String("invoice_id", s.InvoiceID), zap.Int64("amount", in.Amount))

	req := refundRequest{
		InvoiceID: s.InvoiceID,
		Amount:    minorToGateway(in.Amount),
		Reason:    "Customer requested refund",
	}
	var res refundResponse
	if err := p.call(ctx, pathRefund, req, &res, bearerAuth); err != nil {
		log.Error(failure, zap.Error(err))
		return nil, payment.NewAuthorizationError(failure, err)
	}
	if res.ErrorCode != "000" {
		desc := firstNonEmpty(res.ErrorDesc, "Unknown error")
		log.Error("QPay refund rejected", zap.String("error_code", res.ErrorCode), zap.String("error_desc", desc))
		return nil, payment.NewAuthorizationError(failure, fmt.Errorf("%w: %s", ErrRefundRejected, desc))
	}

	s.Status = payment.StatusAuthorized
	s.RefundedAt = p.stamp()
	s.UpdatedAt = s.RefundedAt
	data, err := encodeSession(s)
	if err != nil {
		return nil, payment.NewAuthorizationError(failure, err)
	}

	log.Info("QPay refund accepted", zap.String("refund_id", res.RefundID))
	return &payment.DataOutput{Data: data}, nil
}

// UpdatePayment applies amount and currency changes locally. The remote
// invoice keeps its original amount.
func (p *Provider) UpdatePayment(ctx context.Context, in payment.UpdateInput) (*payment.DataOutput, error) {
	s, err := decodeSession(in.Data)
	if err != nil {
		p.logFor(ctx).Error("Failed to update QPay payment", zap.Error(err))
		return nil, err
	}
	if in.Context.Amount != nil {
		s.Amount = minorToGateway(*in.Context.Amount)
	}
	if in.Context.CurrencyCode != "" {
		s.CurrencyCode = in.Context.CurrencyCode
	}
	s.UpdatedAt = p.stamp()

	data, err := encodeSession(s)
	if err != nil {
		return nil, err
	}
	return &payment.DataOutput{Data: data}, nil
}

// GetWebhookActionAndData turns a callback into an action by re-checking
// the invoice with the gateway. It never fails; problems yield
// ActionNotSupported with Cause set.
func (p *Provider) GetWebhookActionAndData(ctx context.Context, payload payment.WebhookPayload) (result payment.WebhookActionResult) {
	log := p.logFor(ctx)
	log.Info("Processing QPay webhook")

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing QPay webhook", zap.Any("panic", r))
			result = notSupported("", fmt.Errorf("panic: %v", r))
		}
	}()

	data, err := parseWebhook(payload)
	if err != nil {
		log.Error("Failed to parse QPay webhook", zap.Error(err))
		return notSupported("", err)
	}
	if data.QPayPaymentID == "" || data.InvoiceID == "" {
		log.Warn("QPay webhook missing payment or invoice id",
			zap.String("qpay_payment_id", data.QPayPaymentID),
			zap.String("invoice_id", data.InvoiceID),
		)
		return notSupported("", ErrInvalidWebhook)
	}
	log = log.With(zap.String("invoice_id", data.InvoiceID), zap.String("qpay_payment_id", data.QPayPaymentID))

	res, err := p.checkRemoteStatus(ctx, data.InvoiceID)
	if err != nil {
		log.Error("Failed to verify QPay webhook", zap.Error(err))
		return notSupported("", err)
	}

	row := latestRow(res)
	if row == nil {
		log.Warn("No QPay payment found for webhook")
		return notSupported(data.InvoiceID, ErrPaymentNotFound)
	}
	if !settled(row.PaymentStatus) {
		log.Info("QPay webhook for unsettled payment", zap.String("payment_status", string(row.PaymentStatus)))
		return notSupported(data.InvoiceID, nil)
	}

	amount := gatewayToMinor(row.PaymentAmount)
	log.Info("QPay webhook verified", zap.String("payment_status", string(row.PaymentStatus)), zap.Int64("amount", amount))
	return payment.WebhookActionResult{
		Action: payment.ActionAuthorized,
		Data:   payment.WebhookActionData{SessionID: data.InvoiceID, Amount: amount},
	}
}

func notSupported(sessionID string, cause error) payment.WebhookActionResult {
	return payment.WebhookActionResult{
		Action: payment.ActionNotSupported,
		Data:   payment.WebhookActionData{SessionID: sessionID},
		Cause:  cause,
	}
}

func parseWebhook(payload payment.WebhookPayload) (*webhookData, error) {
	raw := payload.RawData
	if payload.Data != nil {
		b, err := json.Marshal(payload.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
		}
		raw = b
	}
	var d webhookData
	if len(raw) == 0 {
		return &d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	return &d, nil
}
