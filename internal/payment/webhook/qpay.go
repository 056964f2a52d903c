package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"salbar-be/internal/logger"
	"salbar-be/internal/payment"
	"salbar-be/internal/utils"

	"go.uber.org/zap"
)

const maxWebhookBytes = 1 << 20

// Processor applies a gateway callback to the stored payment sessions.
type Processor interface {
	ProcessWebhook(ctx context.Context, providerID string, payload payment.WebhookPayload) (*payment.WebhookOutcome, error)
}

// Response is the body of every callback answer. QPay only needs a 200.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler receives QPay payment callbacks.
type Handler struct {
	processor  Processor
	providerID string
	log        *zap.Logger
}

func NewHandler(processor Processor, providerID string, log *zap.Logger) *Handler {
	return &Handler{
		processor:  processor,
		providerID: providerID,
		log:        logger.Or(log).With(zap.String("handler", "qpay_webhook")),
	}
}

// Receive always answers 200; failures are reported in the body so the
// gateway does not keep retrying a delivery we cannot use.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logger.With(r.Context(), h.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		log.Error("failed to read webhook body", zap.Error(err))
		utils.WriteJSON(w, http.StatusOK, Response{Success: false, Message: "Webhook processing failed"})
		return
	}
	defer r.Body.Close()

	log.Info("QPay webhook received",
		zap.ByteString("body", body),
		zap.String("query", r.URL.RawQuery),
	)

	data := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		log.Warn("invalid webhook JSON", zap.Error(err))
		utils.WriteJSON(w, http.StatusOK, Response{Success: false, Message: "Invalid webhook data"})
		return
	}
	if id, _ := data["qpay_payment_id"].(string); id == "" {
		log.Warn("webhook missing qpay_payment_id")
		utils.WriteJSON(w, http.StatusOK, Response{Success: false, Message: "Invalid webhook data"})
		return
	}

	// payment_id is the resource id the callback URL was built with.
	if resourceID := r.URL.Query().Get("payment_id"); resourceID != "" {
		if _, ok := data["resource_id"]; !ok {
			data["resource_id"] = resourceID
		}
	}

	outcome, err := h.processor.ProcessWebhook(r.Context(), h.providerID, payment.WebhookPayload{
		Data:    data,
		RawData: body,
		Headers: r.Header.Clone(),
	})
	if err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		utils.WriteJSON(w, http.StatusOK, Response{Success: false, Message: "Webhook processing failed"})
		return
	}

	log.Info("QPay webhook processed",
		zap.String("action", string(outcome.Result.Action)),
		zap.Bool("duplicate", outcome.Duplicate),
		zap.String("session_id", outcome.SessionID),
	)
	utils.WriteJSON(w, http.StatusOK, Response{Success: true, Message: "Webhook received"})
}

// Status is the liveness probe QPay merchants configure against the callback URL.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "QPay webhook endpoint is active"})
}
