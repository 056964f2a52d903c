package qpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"salbar-be/internal/logger"
	"salbar-be/internal/metrics"
	"salbar-be/internal/payment"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// Identifier is the provider id the adapter registers under.
	Identifier = "qpay-payment"

	DefaultBaseURL = "https://merchant.qpay.mn"
	// SenderBranchCode is sent with every invoice.
	SenderBranchCode = "SALBAR1"

	requestTimeout = 30 * time.Second

	pathAuth    = "/v2/auth/token"
	pathCheck   = "/v2/payment/check"
	pathInvoice = "/v2/invoice"
	pathRefund  = "/v2/payment/refund"
)

var (
	ErrMissingToken           = errors.New("qpay auth response has no access token")
	ErrMissingInvoiceID       = errors.New("session has no qpay invoice id")
	ErrInvalidInvoiceResponse = errors.New("invalid response from QPay invoice creation")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentNotCompleted    = errors.New("payment not completed")
	ErrRefundRejected         = errors.New("refund rejected")
	ErrInvalidWebhook         = errors.New("invalid webhook data")
)

// Options is the merchant configuration. It is copied at construction.
type Options struct {
	Username    string
	Password    string
	InvoiceCode string
	BaseURL     string
	CallbackURL string
	// Mock answers payment checks with a canned PAID row and skips the network.
	Mock bool
	// DeterministicInvoiceNo drops the timestamp from sender_invoice_no.
	DeterministicInvoiceNo bool
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Body)
	}
	if e.Code != "" {
		return fmt.Sprintf("qpay api error: status=%d code=%s message=%s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("qpay api error: status=%d message=%s", e.StatusCode, msg)
}

type credential struct {
	token      string
	obtainedAt time.Time
}

type authMode int

const (
	basicAuth authMode = iota
	bearerAuth
)

// Provider is the QPay payment provider. One instance is shared by all
// requests; only the credential changes after construction.
type Provider struct {
	opts       Options
	httpClient *http.Client
	log        *zap.Logger
	metrics    *metrics.Gateway
	now        func() time.Time

	cred atomic.Pointer[credential]
	sf   singleflight.Group
}

type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

func WithMetrics(m *metrics.Gateway) Option {
	return func(p *Provider) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New builds the provider and, outside mock mode, authenticates once.
// A failed warm-up is logged and never fails construction.
func New(ctx context.Context, log *zap.Logger, opts Options, options ...Option) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	p := &Provider{
		opts:       opts,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        logger.Or(log).With(zap.String("provider", Identifier)),
		metrics:    &metrics.Gateway{},
		now:        time.Now,
	}
	for _, o := range options {
		o(p)
	}

	p.log.Info("QPay provider initialized",
		zap.String("base_url", opts.BaseURL),
		zap.String("invoice_code", opts.InvoiceCode),
		zap.Bool("username_set", opts.Username != ""),
		zap.Bool("mock", opts.Mock),
	)

	if opts.Mock {
		p.log.Info("QPay mock mode enabled, skipping initial authentication")
		return p
	}
	if _, err := p.Authenticate(ctx); err != nil {
		p.log.Warn("Initial QPay authentication failed", zap.Error(err))
	}
	return p
}

func (p *Provider) Identifier() string { return Identifier }

func (p *Provider) Metrics() *metrics.Gateway { return p.metrics }

// Authenticate exchanges the merchant credentials for a bearer token.
// Concurrent callers share a single request. On failure the previous
// credential, if any, is left in place.
func (p *Provider) Authenticate(ctx context.Context) (string, error) {
	v, err, shared := p.sf.Do("token", func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
		defer cancel()

		var res authResponse
		if err := p.call(callCtx, pathAuth, struct{}{}, &res, basicAuth); err != nil {
			p.log.Error("Failed to authenticate with QPay", zap.Error(err))
			return "", payment.NewAuthorizationError("Failed to authenticate with QPay", err)
		}
		if res.AccessToken == "" {
			p.log.Error("QPay auth response missing access token")
			return "", payment.NewAuthorizationError("Failed to authenticate with QPay", ErrMissingToken)
		}

		p.cred.Store(&credential{token: res.AccessToken, obtainedAt: p.now()})
		p.metrics.AuthRefreshes.Inc()
		p.log.Info("Successfully authenticated with QPay")
		return res.AccessToken, nil
	})
	if shared {
		p.log.Debug("QPay authentication shared with concurrent caller")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (p *Provider) token(ctx context.Context) (string, error) {
	if c := p.cred.Load(); c != nil {
		return c.token, nil
	}
	return p.Authenticate(ctx)
}

// call posts in as JSON and decodes the answer into out.
func (p *Provider) call(ctx context.Context, path string, in, out any, mode authMode) error {
	var held *credential

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal qpay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create qpay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	switch mode {
	case basicAuth:
		req.SetBasicAuth(p.opts.Username, p.opts.Password)
	case bearerAuth:
		if _, err := p.token(ctx); err != nil {
			return err
		}
		held = p.cred.Load()
		if held == nil {
			return payment.NewAuthorizationError("Failed to authenticate with QPay", ErrMissingToken)
		}
		req.Header.Set("Authorization", "Bearer "+held.token)
	}

	log := p.log.With(zap.String("path", path))
	timer := metrics.StartTimer()
	p.metrics.Requests.Inc()
	defer p.metrics.Observe(timer)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.metrics.Failures.Inc()
		log.Error("QPay request failed", zap.Error(err))
		return fmt.Errorf("qpay request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		p.metrics.Failures.Inc()
		log.Error("Failed to read QPay response body", zap.Error(err))
		return fmt.Errorf("failed to read qpay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.metrics.Failures.Inc()
		apiErr := newAPIError(resp.StatusCode, raw)
		log.Error("QPay returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", raw),
			zap.Duration("duration", timer.Duration()),
		)
		if resp.StatusCode == http.StatusUnauthorized && held != nil {
			// Next call re-authenticates.
			if p.cred.CompareAndSwap(held, nil) {
				log.Warn("QPay rejected access token, credential dropped")
			}
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		p.metrics.Failures.Inc()
		log.Error("Failed decoding QPay response", zap.Error(err))
		return fmt.Errorf("failed to decode qpay response: %w", err)
	}
	log.Debug("QPay request succeeded", zap.Duration("duration", timer.Duration()))
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: body}
	var parsed struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		ErrorCode string `json:"error_code"`
		ErrorDesc string `json:"error_desc"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		e.Code = firstNonEmpty(parsed.Error, parsed.ErrorCode)
		e.Message = firstNonEmpty(parsed.Message, parsed.ErrorDesc)
	}
	return e
}

// remoteStatusCode is the gateway status behind err, if there is one.
func remoteStatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}

// checkRemoteStatus asks the gateway for the payments made against an invoice.
func (p *Provider) checkRemoteStatus(ctx context.Context, invoiceID string) (*paymentCheckResponse, error) {
	log := p.log.With(zap.String("invoice_id", invoiceID))

	if p.opts.Mock {
		p.metrics.MockResponses.Inc()
		log.Info("QPay mock mode, returning mock PAID payment")
		return mockCheckResponse(p.now()), nil
	}

	req := paymentCheckRequest{
		ObjectType: "INVOICE",
		ObjectID:   invoiceID,
		Offset:     checkOffset{PageNumber: 1, PageLimit: 100},
	}
	var res paymentCheckResponse
	if err := p.call(ctx, pathCheck, req, &res, bearerAuth); err != nil {
		log.Error("Failed to check QPay payment status", zap.Error(err))
		return nil, payment.NewAuthorizationError("Failed to check QPay payment status", err)
	}
	log.Info("QPay payment check", zap.Int("count", res.Count))
	return &res, nil
}

func mockCheckResponse(now time.Time) *paymentCheckResponse {
	return &paymentCheckResponse{
		Count: 1,
		Rows: []PaymentRow{{
			PaymentID:       "593744473409193",
			PaymentStatus:   RemotePaid,
			PaymentAmount:   100.00,
			PaymentWallet:   "0fc9b71c-cd87-4ffd-9cac-2279ebd9deb0",
			PaymentCurrency: "MNT",
			PaymentType:     "P2P",
			CreatedDate:     now.UTC().Format(time.RFC3339),
			TransactionID:   fmt.Sprintf("TXN-%d", now.UnixMilli()),
		}},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
