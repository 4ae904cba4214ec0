// Package handler exposes roster administration over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docgate/internal/assignment"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/platform/httputil"
	"docgate/pkg/requestcontext"
)

type Handler struct {
	svc    *assignment.Service
	logger *slog.Logger
}

func New(svc *assignment.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/handlers", h.list)
	r.Post("/handlers", h.add)
	r.Put("/handlers/{employeeCode}/status", h.setStatus)
	r.Put("/handlers/{employeeCode}/position", h.reorder)
}

type addRequest struct {
	EmployeeCode string `json:"employee_code"`
	Name         string `json:"name"`
}

type statusRequest struct {
	Active bool `json:"active"`
}

type positionRequest struct {
	Position int `json:"position"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roster, err := h.svc.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roster)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[addRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.EmployeeCode == "" || req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "employee_code and name are required"))
		return
	}

	added, err := h.svc.Add(ctx, req.EmployeeCode, req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, added)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[statusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	updated, err := h.svc.SetStatus(ctx, chi.URLParam(r, "employeeCode"), req.Active)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[positionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	roster, err := h.svc.Reorder(ctx, chi.URLParam(r, "employeeCode"), req.Position)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, roster)
}
