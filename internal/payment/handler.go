package payment

import (
	"context"
	"net/http"

	"salbar-be/internal/logger"
	"salbar-be/internal/utils"

	"go.uber.org/zap"
)

// SessionService is the part of Module the HTTP layer drives.
type SessionService interface {
	Provider(id string) (Provider, error)
	CreateSession(ctx context.Context, providerID string, in InitiateInput) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	AuthorizeSession(ctx context.Context, id string) (*Session, error)
	CaptureSession(ctx context.Context, id string) (*Session, error)
	CancelSession(ctx context.Context, id string) (*Session, error)
	RefundSession(ctx context.Context, id string, amount int64) (*Session, error)
}

type Handler struct {
	svc             SessionService
	defaultProvider string
	log             *zap.Logger
}

func NewHandler(svc SessionService, defaultProvider string, log *zap.Logger) *Handler {
	return &Handler{
		svc:             svc,
		defaultProvider: defaultProvider,
		log:             logger.Or(log).With(zap.String("handler", "payment")),
	}
}

type createSessionRequest struct {
	ProviderID   string    `json:"provider_id,omitempty"`
	Amount       float64   `json:"amount" validate:"gt=0"`
	CurrencyCode string    `json:"currency_code" validate:"omitempty,len=3"`
	ResourceID   string    `json:"resource_id" validate:"required"`
	Customer     *Customer `json:"customer,omitempty"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	Description  string    `json:"description,omitempty" validate:"max=255"`
}

type refundRequest struct {
	// Amount is in minor currency units.
	Amount int64 `json:"amount" validate:"gt=0"`
}

type Instructions struct {
	Method string   `json:"method"`
	Steps  []string `json:"steps"`
}

type sessionResponse struct {
	Session      *Session      `json:"payment_session"`
	Instructions *Instructions `json:"instructions,omitempty"`
}

// CreateSession handles POST /store/payment-sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	providerID := req.ProviderID
	if providerID == "" {
		providerID = h.defaultProvider
	}

	s, err := h.svc.CreateSession(r.Context(), providerID, InitiateInput{
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		ResourceID:   req.ResourceID,
		Customer:     req.Customer,
		Email:        req.Email,
		Description:  req.Description,
	})
	if err != nil {
		h.fail(w, r, "create payment session", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, h.response(s))
}

// GetSession handles GET /store/payment-sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.RetrieveSession(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "retrieve payment session", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.response(s))
}

func (h *Handler) AuthorizeSession(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "authorize payment session", h.svc.AuthorizeSession)
}

func (h *Handler) CaptureSession(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "capture payment session", h.svc.CaptureSession)
}

func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "cancel payment session", h.svc.CancelSession)
}

// RefundSession handles POST /admin/payment-sessions/{id}/refund.
func (h *Handler) RefundSession(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s, err := h.svc.RefundSession(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		h.fail(w, r, "refund payment session", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.response(s))
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, action string, op func(context.Context, string) (*Session, error)) {
	s, err := op(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, action, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.response(s))
}

func (h *Handler) response(s *Session) sessionResponse {
	res := sessionResponse{Session: s}
	p, err := h.svc.Provider(s.ProviderID)
	if err != nil {
		return res
	}
	if ip, ok := p.(InstructionProvider); ok && s.Status == StatusPending {
		method, steps := ip.Instructions(s.Data)
		res.Instructions = &Instructions{Method: method, Steps: steps}
	}
	return res
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	code := HTTPStatus(err)
	log := logger.With(r.Context(), h.log)
	if code >= http.StatusInternalServerError {
		log.Error("failed to "+action, zap.Error(err))
	} else {
		log.Warn("failed to "+action, zap.Int("status", code), zap.Error(err))
	}
	utils.WriteJSONError(w, err.Error(), code)
}
