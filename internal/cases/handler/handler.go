// Package handler exposes the case workflow over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"docgate/internal/assignment"
	"docgate/internal/cases"
	dErrors "docgate/pkg/domain-errors"
	"docgate/pkg/platform/httputil"
	pstrings "docgate/pkg/platform/strings"
	"docgate/pkg/requestcontext"
)

// RosterReader resolves employee codes for manual reassignment.
type RosterReader interface {
	List(ctx context.Context) (assignment.Roster, error)
}

type Handler struct {
	svc    *cases.Service
	roster RosterReader
	logger *slog.Logger
}

func New(svc *cases.Service, roster RosterReader, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, roster: roster, logger: logger}
}

// RegisterRead mounts the read-only case routes.
func (h *Handler) RegisterRead(r chi.Router) {
	r.Get("/cases", h.query)
	r.Get("/cases/{caseID}", h.detail)
}

// RegisterReview mounts intake and every reviewer operation.
func (h *Handler) RegisterReview(r chi.Router) {
	r.Post("/cases", h.create)
	r.Post("/cases/{caseID}/submit", h.submit)
	r.Post("/cases/{caseID}/reject", h.reject)
	r.Post("/cases/{caseID}/supplement", h.requestSupplement)
	r.Post("/cases/{caseID}/resubmit", h.resubmit)
	r.Post("/cases/{caseID}/reevaluate", h.reevaluate)
	r.Put("/cases/{caseID}/documents/{docID}/fields/{fieldName}", h.setManualValue)
	r.Put("/cases/{caseID}/documents/{docID}/supplement-flag", h.setSupplementFlag)
	r.Put("/cases/{caseID}/documents/{docID}/pages/{imageID}/invalid", h.setImageInvalid)
}

// RegisterReassign mounts manual reassignment, a roster-admin operation.
func (h *Handler) RegisterReassign(r chi.Router) {
	r.Post("/cases/{caseID}/reassign", h.reassign)
}

type createRequest struct {
	ProductCode   string           `json:"product_code"`
	ApplicantName string           `json:"applicant_name"`
	ApplicantID   string           `json:"applicant_id"`
	Documents     []cases.Document `json:"documents"`
}

type versionedRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

type noteRequest struct {
	ExpectedVersion int64  `json:"expected_version"`
	Note            string `json:"note"`
}

type resubmitRequest struct {
	ExpectedVersion int64            `json:"expected_version"`
	Documents       []cases.Document `json:"documents"`
}

type reassignRequest struct {
	ExpectedVersion int64  `json:"expected_version"`
	EmployeeCode    string `json:"employee_code"`
}

type fieldValueRequest struct {
	ExpectedVersion int64   `json:"expected_version"`
	Value           *string `json:"value"`
}

type flagRequest struct {
	ExpectedVersion int64  `json:"expected_version"`
	Flagged         bool   `json:"flagged"`
	Note            string `json:"note"`
}

type invalidRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
	Invalid         bool  `json:"invalid"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[createRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	c, err := h.svc.Create(ctx, cases.IntakeRequest{
		ProductCode:   req.ProductCode,
		ApplicantName: req.ApplicantName,
		ApplicantID:   req.ApplicantID,
		Documents:     req.Documents,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

// detailResponse augments the case with its processing duration, so the
// review console need not compute elapsed time client-side.
type detailResponse struct {
	*cases.Case
	ProcessingSeconds float64 `json:"processing_seconds"`
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.svc.Detail(ctx, chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detailResponse{
		Case:              c,
		ProcessingSeconds: c.ProcessingDuration(requestcontext.Now(ctx)).Seconds(),
	})
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.svc.Query(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": list, "count": len(list)})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[noteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.Submit(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion, req.Note)
	h.respond(w, c, err)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[noteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.Reject(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion, req.Note)
	h.respond(w, c, err)
}

func (h *Handler) requestSupplement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[noteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.RequestSupplement(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion, req.Note)
	h.respond(w, c, err)
}

func (h *Handler) resubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[resubmitRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.Resubmit(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion, req.Documents)
	h.respond(w, c, err)
}

func (h *Handler) reassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[reassignRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	roster, err := h.roster.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var target *assignment.Handler
	for i, handler := range roster.Handlers {
		if handler.EmployeeCode == req.EmployeeCode {
			target = &roster.Handlers[i]
			break
		}
	}
	if target == nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "employee code %s not on roster", req.EmployeeCode))
		return
	}
	c, err := h.svc.Reassign(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion, *target)
	h.respond(w, c, err)
}

func (h *Handler) reevaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[versionedRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.Reevaluate(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion)
	h.respond(w, c, err)
}

func (h *Handler) setManualValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[fieldValueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.SetManualValue(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion,
		chi.URLParam(r, "docID"), chi.URLParam(r, "fieldName"), req.Value)
	h.respond(w, c, err)
}

func (h *Handler) setSupplementFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[flagRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.SetSupplementFlag(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion,
		chi.URLParam(r, "docID"), req.Flagged, req.Note)
	h.respond(w, c, err)
}

func (h *Handler) setImageInvalid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[invalidRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.svc.SetImageInvalid(ctx, chi.URLParam(r, "caseID"), req.ExpectedVersion,
		chi.URLParam(r, "docID"), chi.URLParam(r, "imageID"), req.Invalid)
	h.respond(w, c, err)
}

func (h *Handler) respond(w http.ResponseWriter, c *cases.Case, err error) {
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// parseFilter builds a query filter from URL parameters. Dates accept both
// date-only and RFC 3339 forms.
func parseFilter(r *http.Request) (cases.Filter, error) {
	q := r.URL.Query()
	filter := cases.Filter{
		HandlerCode: q.Get("handler"),
		Keyword:     q.Get("q"),
	}

	if raw := q.Get("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return cases.Filter{}, err
		}
		filter.SubmitFrom = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return cases.Filter{}, err
		}
		filter.SubmitTo = &t
	}
	if raw := q.Get("status"); raw != "" {
		for _, s := range pstrings.DedupeAndTrim(strings.Split(raw, ",")) {
			filter.Statuses = append(filter.Statuses, cases.Status(s))
		}
	}
	if raw := q.Get("type"); raw != "" {
		for _, t := range pstrings.DedupeAndTrim(strings.Split(raw, ",")) {
			filter.Types = append(filter.Types, cases.CaseType(t))
		}
	}

	switch q.Get("sort") {
	case "", string(cases.SortBySubmitDate):
		filter.SortBy = cases.SortBySubmitDate
	case string(cases.SortByUpdateDate):
		filter.SortBy = cases.SortByUpdateDate
	default:
		return cases.Filter{}, dErrors.Newf(dErrors.CodeValidation, "unknown sort field %q", q.Get("sort"))
	}
	filter.Descending = q.Get("order") == "desc"

	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "invalid date %q", raw)
	}
	return t, nil
}
