package web

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/kuitang/country-form/internal/archive"
	"github.com/kuitang/country-form/internal/countries"
	"github.com/kuitang/country-form/internal/errs"
	"github.com/kuitang/country-form/internal/obs"
	"github.com/kuitang/country-form/internal/validation"
)

const (
	termsTitle = "Nutzungsbedingungen"
	formTitle  = "Länderauswahl Formular"

	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

// PageData is shared by every page template.
type PageData struct {
	Title string
}

// TermsPageData is rendered by page1.html.
type TermsPageData struct {
	PageData
	Terms template.HTML
}

// FormValues are the submitted values echoed back into page2.html.
type FormValues struct {
	Acronym string
	Country string
	EUYes   bool
	EUNo    bool
	Consent bool
}

// FormPageData is rendered by page2.html.
type FormPageData struct {
	PageData
	Countries []countries.Country
	Form      FormValues
	Result    *validation.Result
}

// ErrorPageData is rendered by error.html.
type ErrorPageData struct {
	PageData
	Error     string
	ErrorCode int
}

// Archiver records validation outcomes. *archive.Archive implements it.
type Archiver interface {
	Save(ctx context.Context, in validation.Input, result validation.Result) (archive.Record, error)
	Get(ctx context.Context, id string) (archive.Record, error)
	RecentIDs(ctx context.Context, limit int) ([]string, error)
}

// FormHandler serves both pages and the validation API.
type FormHandler struct {
	renderer  *Renderer
	catalog   *countries.Catalog
	validator *validation.Validator
	archive   Archiver
	terms     template.HTML
}

// NewFormHandler wires the handler. archiver may be nil to disable archiving.
func NewFormHandler(renderer *Renderer, catalog *countries.Catalog, archiver Archiver) *FormHandler {
	return &FormHandler{
		renderer:  renderer,
		catalog:   catalog,
		validator: validation.New(catalog),
		archive:   archiver,
		terms:     renderMarkdown(termsMarkdown),
	}
}

// RegisterRoutes registers page and API routes on mux. limit wraps the
// submission endpoints.
func (h *FormHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /page1.html", h.HandleTermsPage)
	mux.HandleFunc("GET /terms.md", h.HandleTermsMarkdown)
	mux.HandleFunc("GET /page2.html", h.HandleFormPage)
	mux.Handle("POST /page2.html", limit(http.HandlerFunc(h.HandleFormSubmit)))

	mux.Handle("POST /api/validate", limit(http.HandlerFunc(h.HandleValidate)))
	mux.HandleFunc("GET /api/countries", h.HandleCountries)
	if h.archive != nil {
		mux.HandleFunc("GET /api/submissions", h.HandleListSubmissions)
		mux.HandleFunc("GET /api/submissions/{id}", h.HandleGetSubmission)
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFiles())))
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("/", h.HandleNotFound)
}

// HandleIndex sends visitors to the terms page.
func (h *FormHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/page1.html", http.StatusFound)
}

// HandleTermsPage renders the terms page.
func (h *FormHandler) HandleTermsPage(w http.ResponseWriter, r *http.Request) {
	data := TermsPageData{
		PageData: PageData{Title: termsTitle},
		Terms:    h.terms,
	}
	h.render(w, r, http.StatusOK, "page1.html", data)
}

// HandleTermsMarkdown serves the terms source for agents and scripts.
func (h *FormHandler) HandleTermsMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(termsMarkdown)
}

// HandleFormPage renders an empty country form.
func (h *FormHandler) HandleFormPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "page2.html", h.formPage(FormValues{}, nil))
}

// HandleFormSubmit validates a browser form post and re-renders the form with the result.
func (h *FormHandler) HandleFormSubmit(w http.ResponseWriter, r *http.Request) {
	in, values, err := parseFormSubmission(w, r)
	if err != nil {
		obs.From(r.Context()).Info("form_rejected", "pkg", "web", "code", errs.CodeOf(err), "field", errs.FieldOf(err))
		result := validation.Result{Message: "Fehler: " + errs.MessageOf(err)}
		h.render(w, r, errs.HTTPStatus(errs.CodeOf(err)), "page2.html", h.formPage(values, &result))
		return
	}

	result := h.validate(r.Context(), in)
	h.render(w, r, http.StatusOK, "page2.html", h.formPage(values, &result))
}

// HandleValidate validates a JSON submission. Every well-formed request gets 200;
// the outcome is in the body.
func (h *FormHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeJSONSubmission(w, r)
	if err != nil {
		obs.From(r.Context()).Info("validate_rejected", "pkg", "web", "code", errs.CodeOf(err), "field", errs.FieldOf(err))
		errs.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.validate(r.Context(), in))
}

// HandleCountries returns the catalog.
func (h *FormHandler) HandleCountries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"countries": h.catalog.All()})
}

// HandleListSubmissions returns the newest archived submission ids.
func (h *FormHandler) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs.WriteJSON(w, errs.Invalid("limit", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	ids, err := h.archive.RecentIDs(r.Context(), limit)
	if err != nil {
		h.logStorageError(r, "list_submissions_failed", err)
		errs.WriteJSON(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

// HandleGetSubmission returns one archived submission.
func (h *FormHandler) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	rec, err := h.archive.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logStorageError(r, "get_submission_failed", err)
		errs.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleHealth reports liveness.
func (h *FormHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleNotFound renders the 404 page.
func (h *FormHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderError(w, http.StatusNotFound, "Seite nicht gefunden")
}

// validate runs the validator and archives the outcome. Archive failures are
// logged and do not change the result.
func (h *FormHandler) validate(ctx context.Context, in validation.Input) validation.Result {
	result := h.validator.Validate(in)
	log := obs.From(ctx)
	log.Info("form_validated",
		"pkg", "web",
		"country", in.Country,
		"category", result.Category,
		"success", result.Success,
	)

	if h.archive != nil {
		if _, err := h.archive.Save(ctx, in, result); err != nil {
			log.Error("archive_failed", "pkg", "web", "error", err)
		}
	}
	return result
}

func (h *FormHandler) formPage(values FormValues, result *validation.Result) FormPageData {
	return FormPageData{
		PageData:  PageData{Title: formTitle},
		Countries: h.catalog.All(),
		Form:      values,
		Result:    result,
	}
}

func (h *FormHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.renderer.Render(w, status, name, data); err != nil {
		obs.From(r.Context()).Error("render_failed", "pkg", "web", "template", name, "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "Seite konnte nicht angezeigt werden")
	}
}

func (h *FormHandler) logStorageError(r *http.Request, event string, err error) {
	code := errs.CodeOf(err)
	if code == errs.NotFound || code == errs.InvalidArgument {
		return
	}
	obs.From(r.Context()).Error(event, "pkg", "web", "error", err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
