package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/ctxutil"
	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/export"
	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/models"
)

const maxBodyBytes = 1 << 20

// AuditService операции, которые отдаёт API; реализуется *audits.Service.
type AuditService interface {
	SaveResponse(ctx context.Context, orgID string, in audits.ResponseInput) audits.Result
	CompleteAudit(ctx context.Context, orgID, auditID, signature string) audits.Result
	StartAudit(ctx context.Context, orgID, auditorID string, in audits.StartInput) audits.StartResult
	GetAudit(ctx context.Context, orgID, auditID string) (*models.Audit, error)
	ListAudits(ctx context.Context, orgID string, f models.AuditFilter) ([]models.Audit, error)
	DeleteAudit(ctx context.Context, orgID, auditID string) audits.Result
	Stats(ctx context.Context, orgID string) (models.AuditStats, error)
	Report(ctx context.Context, orgID, auditID string) (*audits.Report, error)

	CreateTemplate(ctx context.Context, orgID string, d models.TemplateDraft) audits.TemplateResult
	UpdateTemplate(ctx context.Context, orgID, id string, d models.TemplateDraft) audits.TemplateResult
	GetTemplate(ctx context.Context, orgID, id string) (*models.Template, error)
	ListTemplates(ctx context.Context, orgID string) ([]models.TemplateSummary, error)
	DeleteTemplate(ctx context.Context, orgID, id string) audits.Result
	DuplicateTemplate(ctx context.Context, orgID, id string) audits.TemplateResult
}

var _ AuditService = (*audits.Service)(nil)

type api struct {
	svc   AuditService
	log   *zap.Logger
	locks *auditLocks
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/templates", a.tenant(a.listTemplates))
	mux.HandleFunc("POST /api/templates", a.tenant(a.createTemplate))
	mux.HandleFunc("GET /api/templates/{id}", a.tenant(a.getTemplate))
	mux.HandleFunc("PUT /api/templates/{id}", a.tenant(a.updateTemplate))
	mux.HandleFunc("DELETE /api/templates/{id}", a.tenant(a.deleteTemplate))
	mux.HandleFunc("POST /api/templates/{id}/duplicate", a.tenant(a.duplicateTemplate))

	mux.HandleFunc("GET /api/audits", a.tenant(a.listAudits))
	mux.HandleFunc("POST /api/audits", a.tenant(a.startAudit))
	mux.HandleFunc("GET /api/audits/{id}", a.tenant(a.getAudit))
	mux.HandleFunc("DELETE /api/audits/{id}", a.tenant(a.deleteAudit))
	mux.HandleFunc("PUT /api/audits/{id}/responses/{questionId}", a.tenant(a.saveResponse))
	mux.HandleFunc("POST /api/audits/{id}/complete", a.tenant(a.completeAudit))
	mux.HandleFunc("GET /api/audits/{id}/report", a.tenant(a.report))
	mux.HandleFunc("GET /api/audits/{id}/export", a.tenant(a.exportReport))

	mux.HandleFunc("GET /api/stats", a.tenant(a.stats))
}

func orgOf(r *http.Request) string {
	id, _ := ctxutil.OrgID(r.Context())
	return id
}

// ---- templates ----

func (a *api) listTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListTemplates(r.Context(), orgOf(r))
	if err != nil {
		a.internal(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, nonNil(list))
}

func (a *api) createTemplate(w http.ResponseWriter, r *http.Request) {
	var d models.TemplateDraft
	if !a.decode(w, r, &d) {
		return
	}
	res := a.svc.CreateTemplate(r.Context(), orgOf(r), d)
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusCreated), res)
}

func (a *api) getTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := a.svc.GetTemplate(r.Context(), orgOf(r), r.PathValue("id"))
	if err != nil {
		a.lookupFailed(w, r, err, audits.MsgTemplateNotFound)
		return
	}
	a.writeJSON(w, r, http.StatusOK, t)
}

func (a *api) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var d models.TemplateDraft
	if !a.decode(w, r, &d) {
		return
	}
	res := a.svc.UpdateTemplate(r.Context(), orgOf(r), r.PathValue("id"), d)
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusCreated), res)
}

func (a *api) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	res := a.svc.DeleteTemplate(r.Context(), orgOf(r), r.PathValue("id"))
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusOK), res)
}

func (a *api) duplicateTemplate(w http.ResponseWriter, r *http.Request) {
	res := a.svc.DuplicateTemplate(r.Context(), orgOf(r), r.PathValue("id"))
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusCreated), res)
}

// ---- audits ----

func (a *api) listAudits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.AuditFilter{SiteID: q.Get("siteId"), TemplateID: q.Get("templateId")}
	for _, raw := range q["status"] {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.TrimSpace(st); st != "" {
				f.Statuses = append(f.Statuses, models.AuditStatus(st))
			}
		}
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			a.writeError(w, r, http.StatusBadRequest, "Invalid status filter")
			return
		}
	}
	list, err := a.svc.ListAudits(r.Context(), orgOf(r), f)
	if err != nil {
		a.internal(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, nonNil(list))
}

func (a *api) startAudit(w http.ResponseWriter, r *http.Request) {
	var in audits.StartInput
	if !a.decode(w, r, &in) {
		return
	}
	userID, _ := ctxutil.UserID(r.Context())
	res := a.svc.StartAudit(r.Context(), orgOf(r), userID, in)
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusCreated), res)
}

func (a *api) getAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := a.svc.GetAudit(r.Context(), orgOf(r), r.PathValue("id"))
	if err != nil {
		a.lookupFailed(w, r, err, audits.MsgAuditNotFound)
		return
	}
	a.writeJSON(w, r, http.StatusOK, audit)
}

func (a *api) deleteAudit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	defer a.locks.lock(id)()
	res := a.svc.DeleteAudit(r.Context(), orgOf(r), id)
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusOK), res)
}

type responseBody struct {
	Value        *string  `json:"value"`
	BoolValue    *bool    `json:"boolValue"`
	NumericValue *float64 `json:"numericValue"`
	Notes        *string  `json:"notes"`
	Flagged      bool     `json:"flagged"`
}

func (a *api) saveResponse(w http.ResponseWriter, r *http.Request) {
	var b responseBody
	if !a.decode(w, r, &b) {
		return
	}
	in := audits.ResponseInput{
		AuditID:      r.PathValue("id"),
		QuestionID:   r.PathValue("questionId"),
		Value:        b.Value,
		BoolValue:    b.BoolValue,
		NumericValue: b.NumericValue,
		Notes:        b.Notes,
		Flagged:      b.Flagged,
	}
	defer a.locks.lock(in.AuditID)()
	res := a.svc.SaveResponse(r.Context(), orgOf(r), in)
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusOK), res)
}

type completeBody struct {
	Signature string `json:"signature"`
}

func (a *api) completeAudit(w http.ResponseWriter, r *http.Request) {
	var b completeBody
	if !a.decodeOptional(w, r, &b) {
		return
	}
	id := r.PathValue("id")
	defer a.locks.lock(id)()
	res := a.svc.CompleteAudit(r.Context(), orgOf(r), id, b.Signature)
	a.writeJSON(w, r, statusFor(res.Success, res.Error, http.StatusOK), res)
}

func (a *api) report(w http.ResponseWriter, r *http.Request) {
	rep, err := a.svc.Report(r.Context(), orgOf(r), r.PathValue("id"))
	if err != nil {
		a.lookupFailed(w, r, err, audits.MsgAuditNotFound)
		return
	}
	a.writeJSON(w, r, http.StatusOK, rep)
}

func (a *api) exportReport(w http.ResponseWriter, r *http.Request) {
	rep, err := a.svc.Report(r.Context(), orgOf(r), r.PathValue("id"))
	if err != nil {
		a.lookupFailed(w, r, err, audits.MsgAuditNotFound)
		return
	}
	buf, err := export.AuditReportExcel(rep)
	if err != nil {
		a.internal(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": export.AuditReportFilename(rep)}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Stats(r.Context(), orgOf(r))
	if err != nil {
		a.internal(w, r, err)
		return
	}
	a.writeJSON(w, r, http.StatusOK, st)
}

// ---- helpers ----

func (a *api) lookupFailed(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if errors.Is(err, db.ErrNotFound) {
		a.writeError(w, r, http.StatusNotFound, notFoundMsg)
		return
	}
	a.internal(w, r, err)
}

func (a *api) internal(w http.ResponseWriter, r *http.Request, err error) {
	logging.WithContext(r.Context(), a.log).Error("api request failed",
		zap.String("path", r.URL.Path), zap.Error(err))
	a.writeError(w, r, http.StatusInternalServerError, "Internal error")
}

// statusFor HTTP-код для Result по тексту ошибки.
func statusFor(success bool, msg string, okCode int) int {
	if success {
		return okCode
	}
	switch msg {
	case audits.MsgAuditNotFound, audits.MsgQuestionNotFound, audits.MsgTemplateNotFound:
		return http.StatusNotFound
	case audits.MsgTemplateInUse, audits.MsgTemplateOutdated:
		return http.StatusConflict
	case audits.MsgInvalidType:
		return http.StatusUnprocessableEntity
	case audits.MsgSaveFailed, audits.MsgCompleteFailed, audits.MsgStartFailed,
		audits.MsgDeleteFailed, audits.MsgTemplateSave, audits.MsgTemplateDelete, audits.MsgTemplateDuplicate:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		a.writeError(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeOptional как decode, но пустое тело допустимо.
func (a *api) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		a.writeError(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeJSON сначала кодирует тело: ошибка кодирования даёт 500, а не пустой 200.
func (a *api) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.WithContext(r.Context(), a.log).Error("encode response",
			zap.String("path", r.URL.Path), zap.Int("code", code), zap.Error(err))
		code = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"Internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logging.WithContext(r.Context(), a.log).Debug("write response", zap.Error(err))
	}
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	a.writeJSON(w, r, code, map[string]any{"success": false, "error": msg})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
