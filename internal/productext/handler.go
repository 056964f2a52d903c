package productext

import (
	"errors"
	"net/http"

	"salbar-be/internal/logger"
	"salbar-be/internal/utils"
	"salbar-be/internal/workflow"

	"go.uber.org/zap"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type extensionResponse struct {
	ProductExtension *ProductExtension `json:"product_extension"`
}

type additionalData struct {
	CustomName *string `json:"custom_name,omitempty" validate:"omitempty,max=255"`
}

// Attach runs the create-custom workflow for the product in the path.
func (h *Handler) Attach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := r.PathValue("id")
	log := logger.FromCtx(ctx).With(zap.String("product_id", productID))

	var body additionalData
	if err := utils.DecodeJSON(r, &body); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := workflow.Run(ctx, "attach-product-custom", []workflow.Step{CreateCustomStep(h.svc)},
		CustomInput{ProductID: productID, CustomName: utils.TrimmedPtr(body.CustomName)})
	if err != nil {
		log.Error("attach product extension failed", zap.Error(err))
		h.fail(w, err)
		return
	}

	ext, _ := out.(*ProductExtension)
	if ext == nil {
		utils.WriteJSON(w, http.StatusOK, extensionResponse{})
		return
	}
	utils.WriteJSON(w, http.StatusCreated, extensionResponse{ProductExtension: ext})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ext, err := h.svc.RetrieveByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, extensionResponse{ProductExtension: ext})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCustoms(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RestoreCustoms(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrProductIDRequired), errors.Is(err, ErrCustomNameRequired), errors.Is(err, ErrExtensionIDRequired):
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
