package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"salbar-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const webhookEventType = "payment.callback"

// Module resolves registered providers and keeps persisted sessions in step
// with what each provider reports.
type Module struct {
	repo Repository
	log  *zap.Logger

	mu        sync.RWMutex
	providers map[string]Provider
}

func NewModule(repo Repository, log *zap.Logger) *Module {
	return &Module{
		repo:      repo,
		log:       logger.Or(log).With(zap.String("module", "payment")),
		providers: make(map[string]Provider),
	}
}

func (m *Module) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Identifier()] = p
	m.log.Info("payment provider registered", zap.String("provider_id", p.Identifier()))
}

func (m *Module) Provider(id string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return p, nil
}

func (m *Module) CreateSession(ctx context.Context, providerID string, in InitiateInput) (*Session, error) {
	log := logger.With(ctx, m.log).With(
		zap.String("method", "CreateSession"),
		zap.String("provider_id", providerID),
		zap.String("resource_id", in.ResourceID),
	)

	if strings.TrimSpace(in.ResourceID) == "" {
		return nil, ErrMissingResourceID
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	p, err := m.Provider(providerID)
	if err != nil {
		return nil, err
	}

	out, err := p.InitiatePayment(ctx, in)
	if err != nil {
		log.Error("failed to initiate payment", zap.Error(err))
		return nil, err
	}

	s := &Session{
		ID:           "payses_" + uuid.NewString(),
		ProviderID:   providerID,
		ResourceID:   out.ID,
		RemoteID:     out.RemoteID,
		Status:       StatusPending,
		Amount:       in.Amount,
		CurrencyCode: in.CurrencyCode,
		Data:         out.Data,
	}
	if err := m.repo.CreateSession(ctx, s); err != nil {
		log.Error("failed to persist payment session", zap.Error(err))
		return nil, err
	}

	log.Info("payment session created", zap.String("session_id", s.ID), zap.String("remote_id", s.RemoteID))
	return s, nil
}

func (m *Module) AuthorizeSession(ctx context.Context, id string) (*Session, error) {
	return m.transition(ctx, id, "AuthorizeSession", func(p Provider, s *Session) error {
		out, err := p.AuthorizePayment(ctx, SessionInput{Data: s.Data})
		if err != nil {
			return err
		}
		s.Status, s.Data = out.Status, out.Data
		return nil
	})
}

func (m *Module) SessionStatus(ctx context.Context, id string) (*Session, error) {
	return m.transition(ctx, id, "SessionStatus", func(p Provider, s *Session) error {
		out, err := p.GetPaymentStatus(ctx, SessionInput{Data: s.Data})
		if err != nil {
			return err
		}
		s.Status, s.Data = out.Status, out.Data
		return nil
	})
}

func (m *Module) CaptureSession(ctx context.Context, id string) (*Session, error) {
	return m.transition(ctx, id, "CaptureSession", func(p Provider, s *Session) error {
		out, err := p.CapturePayment(ctx, SessionInput{Data: s.Data})
		if err != nil {
			return err
		}
		s.Data = out.Data
		s.Status = statusFromData(out.Data, StatusAuthorized)
		return nil
	})
}

func (m *Module) CancelSession(ctx context.Context, id string) (*Session, error) {
	return m.transition(ctx, id, "CancelSession", func(p Provider, s *Session) error {
		out, err := p.CancelPayment(ctx, SessionInput{Data: s.Data})
		if err != nil {
			return err
		}
		s.Status, s.Data = StatusCanceled, out.Data
		return nil
	})
}

func (m *Module) DeleteSession(ctx context.Context, id string) (*Session, error) {
	return m.transition(ctx, id, "DeleteSession", func(p Provider, s *Session) error {
		out, err := p.DeletePayment(ctx, SessionInput{Data: s.Data})
		if err != nil {
			return err
		}
		s.Status, s.Data = StatusCanceled, out.Data
		return nil
	})
}

// RefundSession refunds amount, given in minor units.
func (m *Module) RefundSession(ctx context.Context, id string, amount int64) (*Session, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return m.transition(ctx, id, "RefundSession", func(p Provider, s *Session) error {
		out, err := p.RefundPayment(ctx, RefundInput{Data: s.Data, Amount: amount})
		if err != nil {
			return err
		}
		s.Data = out.Data
		s.Status = statusFromData(out.Data, s.Status)
		return nil
	})
}

func (m *Module) UpdateSession(ctx context.Context, id string, uc UpdateContext) (*Session, error) {
	return m.transition(ctx, id, "UpdateSession", func(p Provider, s *Session) error {
		out, err := p.UpdatePayment(ctx, UpdateInput{Data: s.Data, Context: uc})
		if err != nil {
			return err
		}
		s.Data = out.Data
		if uc.Amount != nil {
			s.Amount = float64(*uc.Amount) / 100
		}
		if uc.CurrencyCode != "" {
			s.CurrencyCode = uc.CurrencyCode
		}
		return nil
	})
}

// RetrieveSession refreshes the session from its provider. A provider soft
// failure returns the stored session unchanged.
func (m *Module) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	log := logger.With(ctx, m.log).With(zap.String("method", "RetrieveSession"), zap.String("session_id", id))

	s, p, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	res := p.RetrievePayment(ctx, SessionInput{Data: s.Data})
	if res.SoftFail {
		log.Warn("provider could not refresh session, returning stored state", zap.Error(res.Cause))
		return s, nil
	}

	s.Data = res.Data
	s.Status = statusFromData(res.Data, s.Status)
	if err := m.repo.UpdateSession(ctx, s); err != nil {
		log.Error("failed to persist refreshed session", zap.Error(err))
		return nil, err
	}
	return s, nil
}

// WebhookOutcome reports what ProcessWebhook did with one delivery.
type WebhookOutcome struct {
	Result    WebhookActionResult
	Duplicate bool
	SessionID string
}

// ProcessWebhook records the raw delivery, asks the provider what it means
// and applies the resulting action to the matching session.
func (m *Module) ProcessWebhook(ctx context.Context, providerID string, payload WebhookPayload) (*WebhookOutcome, error) {
	log := logger.With(ctx, m.log).With(
		zap.String("method", "ProcessWebhook"),
		zap.String("provider_id", providerID),
	)

	p, err := m.Provider(providerID)
	if err != nil {
		log.Warn("webhook for unknown provider")
		return nil, err
	}

	m.correlate(ctx, providerID, &payload)

	body := webhookBody(payload)
	eventID := uuid.NewSHA1(uuid.NameSpaceURL, body).String()
	externalID := stringField(payload.Data, "invoice_id")

	webhookID, processed, err := m.repo.SavePaymentWebhook(ctx, providerID, eventID, webhookEventType, externalID, body)
	if err != nil {
		log.Error("failed to record webhook", zap.Error(err))
		return nil, err
	}
	if processed {
		log.Info("duplicate webhook ignored", zap.String("event_id", eventID))
		return &WebhookOutcome{Duplicate: true, Result: WebhookActionResult{Action: ActionNotSupported}}, nil
	}

	result := p.GetWebhookActionAndData(ctx, payload)
	outcome := &WebhookOutcome{Result: result}

	var next SessionStatus
	switch result.Action {
	case ActionAuthorized:
		next = StatusAuthorized
	case ActionCaptured:
		next = StatusCaptured
	case ActionFailed:
		next = StatusError
	default:
		// Unprocessed rows are retried on redelivery.
		log.Info("webhook action not supported", zap.NamedError("cause", result.Cause))
		if result.Cause != nil {
			m.markFailed(ctx, log, webhookID, result.Cause.Error())
		}
		return outcome, nil
	}

	s, err := m.repo.GetSessionByRemoteID(ctx, providerID, result.Data.SessionID)
	if err != nil {
		log.Error("no session for webhook", zap.String("remote_id", result.Data.SessionID), zap.Error(err))
		m.markFailed(ctx, log, webhookID, err.Error())
		return outcome, err
	}
	outcome.SessionID = s.ID

	if s.Status == next || (s.Status == StatusCaptured && next == StatusAuthorized) {
		log.Info("session already in target status", zap.String("session_id", s.ID), zap.String("status", string(s.Status)))
		m.markProcessed(ctx, log, webhookID)
		return outcome, nil
	}

	s.Status = next
	if err := m.repo.UpdateSession(ctx, s); err != nil {
		log.Error("failed to update session from webhook", zap.String("session_id", s.ID), zap.Error(err))
		m.markFailed(ctx, log, webhookID, err.Error())
		return outcome, err
	}

	log.Info("session updated from webhook",
		zap.String("session_id", s.ID),
		zap.String("status", string(next)),
		zap.Int64("amount", result.Data.Amount),
	)
	m.markProcessed(ctx, log, webhookID)
	return outcome, nil
}

// correlate fills invoice_id from the stored session when the delivery only
// carries the resource id the callback URL was built with.
func (m *Module) correlate(ctx context.Context, providerID string, payload *WebhookPayload) {
	if payload.Data == nil || stringField(payload.Data, "invoice_id") != "" {
		return
	}
	resourceID := stringField(payload.Data, "resource_id")
	if resourceID == "" {
		return
	}
	s, err := m.repo.GetLatestSessionByResource(ctx, providerID, resourceID)
	if err != nil {
		m.log.Debug("webhook correlation miss", zap.String("resource_id", resourceID), zap.Error(err))
		return
	}
	payload.Data["invoice_id"] = s.RemoteID
}

func (m *Module) markProcessed(ctx context.Context, log *zap.Logger, webhookID int64) {
	if err := m.repo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Error("failed to mark webhook processed", zap.Int64("webhook_id", webhookID), zap.Error(err))
	}
}

func (m *Module) markFailed(ctx context.Context, log *zap.Logger, webhookID int64, reason string) {
	if err := m.repo.MarkWebhookFailed(ctx, webhookID, reason); err != nil {
		log.Error("failed to mark webhook failed", zap.Int64("webhook_id", webhookID), zap.Error(err))
	}
}

func (m *Module) load(ctx context.Context, id string) (*Session, Provider, error) {
	s, err := m.repo.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := m.Provider(s.ProviderID)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

func (m *Module) transition(ctx context.Context, id, method string, apply func(Provider, *Session) error) (*Session, error) {
	log := logger.With(ctx, m.log).With(zap.String("method", method), zap.String("session_id", id))

	s, p, err := m.load(ctx, id)
	if err != nil {
		log.Warn("failed to load session", zap.Error(err))
		return nil, err
	}

	before := s.Status
	if err := apply(p, s); err != nil {
		log.Error("provider operation failed", zap.Error(err))
		return nil, err
	}

	if err := m.repo.UpdateSession(ctx, s); err != nil {
		log.Error("failed to persist session", zap.Error(err))
		return nil, err
	}

	log.Info("session saved", zap.String("from", string(before)), zap.String("to", string(s.Status)))
	return s, nil
}

// statusFromData reads the status field a provider keeps inside its session data.
func statusFromData(data json.RawMessage, fallback SessionStatus) SessionStatus {
	var probe struct {
		Status SessionStatus `json:"status"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.Status == "" {
		return fallback
	}
	return probe.Status
}

// webhookBody is the stored delivery. Its hash is the event id, so
// redeliveries of the same body collapse into one inbox row.
func webhookBody(payload WebhookPayload) json.RawMessage {
	if len(payload.RawData) > 0 {
		return payload.RawData
	}
	raw, err := json.Marshal(payload.Data)
	if err != nil || payload.Data == nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

