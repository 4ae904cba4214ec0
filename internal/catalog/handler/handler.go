// Package handler exposes the catalog over HTTP: read-only rulebook views
// and the rule-admin toggle commands.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docgate/internal/catalog"
	"docgate/pkg/platform/httputil"
	"docgate/pkg/requestcontext"
)

type Handler struct {
	svc    *catalog.Service
	logger *slog.Logger
}

func New(svc *catalog.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRead mounts the read-only rulebook views. Capability gating
// happens in the router; every route here assumes an authenticated actor.
func (h *Handler) RegisterRead(r chi.Router) {
	r.Get("/catalog/snapshot", h.snapshot)
	r.Get("/catalog/document-types", h.listDocumentTypes)
	r.Get("/catalog/products", h.listProducts)
}

// RegisterAdmin mounts the rule toggle commands.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/catalog/document-types/{docCode}/rules/{ruleID}/enabled", h.setDocumentRuleEnabled)
	r.Put("/catalog/document-types/{docCode}/rules/{ruleID}/required", h.setDocumentRuleRequired)
	r.Put("/catalog/products/{productCode}/rules/{ruleID}/enabled", h.setProductRuleEnabled)
	r.Put("/catalog/products/{productCode}/rules/{ruleID}/required", h.setProductRuleRequired)
	r.Put("/catalog/document-versions/{docID}/active", h.setDocumentTypeActive)
	r.Put("/catalog/products/{productCode}/active", h.setProductActive)
}

// flagRequest carries the new value for a single rule flag.
type flagRequest struct {
	Value bool `json:"value"`
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) listDocumentTypes(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocumentTypes(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"document_types": docs})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) setDocumentRuleEnabled(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(req flagRequest) error {
		return h.svc.SetDocumentRuleEnabled(r.Context(), chi.URLParam(r, "docCode"), chi.URLParam(r, "ruleID"), req.Value)
	})
}

func (h *Handler) setDocumentRuleRequired(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(req flagRequest) error {
		return h.svc.SetDocumentRuleRequired(r.Context(), chi.URLParam(r, "docCode"), chi.URLParam(r, "ruleID"), req.Value)
	})
}

func (h *Handler) setProductRuleEnabled(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(req flagRequest) error {
		return h.svc.SetProductRuleEnabled(r.Context(), chi.URLParam(r, "productCode"), chi.URLParam(r, "ruleID"), req.Value)
	})
}

func (h *Handler) setProductRuleRequired(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(req flagRequest) error {
		return h.svc.SetProductRuleRequired(r.Context(), chi.URLParam(r, "productCode"), chi.URLParam(r, "ruleID"), req.Value)
	})
}

func (h *Handler) setDocumentTypeActive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(req flagRequest) error {
		return h.svc.SetDocumentTypeActive(r.Context(), chi.URLParam(r, "docID"), req.Value)
	})
}

func (h *Handler) setProductActive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(req flagRequest) error {
		return h.svc.SetProductActive(r.Context(), chi.URLParam(r, "productCode"), req.Value)
	})
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, apply func(flagRequest) error) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[flagRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := apply(req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
