// Package web serves the advisor form and streams analyses back to it.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/Lllllllleong/seoanalyser/internal/document"
	"github.com/Lllllllleong/seoanalyser/internal/instruction"
	"github.com/Lllllllleong/seoanalyser/internal/models"
	"github.com/Lllllllleong/seoanalyser/internal/report"
	"github.com/Lllllllleong/seoanalyser/internal/services"
	"github.com/google/uuid"
)

const (
	ndjsonType = "application/x-ndjson"

	// Memory kept for multipart parts before they spill to temp files.
	maxFormMemory = 32 << 20

	msgAccessDenied     = "⛔ Adgang nægtet."
	msgMissingAhrefs    = "Du skal som minimum uploade Ahrefs-rapporter (Performance og Organic Keywords for kunden)."
	msgInvalidInput     = "Formularen indeholder ugyldige værdier."
	msgTooLarge         = "De uploadede filer er for store."
	msgGenerationFailed = "Der opstod en fejl under genereringen af analysen."
	msgEmptyReport      = "Modellen returnerede ingen tekst. Prøv igen."
	msgInternal         = "Der opstod en intern fejl."
)

var errAccessDenied = errors.New("access denied")

//go:embed templates/form.html
var templateFS embed.FS

// Analyser is the pipeline the handler drives.
type Analyser interface {
	Validate(in services.AnalysisInput) error
	Run(ctx context.Context, in services.AnalysisInput, onDelta func(string)) (*services.AnalysisResult, error)
}

// Handler serves the form and the analysis endpoint behind the access gate.
type Handler struct {
	config   Config
	analyser Analyser
	form     *template.Template
	mux      *http.ServeMux
}

func NewHandler(cfg Config, analyser Analyser) (*Handler, error) {
	form, err := template.ParseFS(templateFS, "templates/form.html")
	if err != nil {
		return nil, err
	}
	h := &Handler{
		config:   cfg,
		analyser: analyser,
		form:     form,
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /{$}", h.serveForm)
	h.mux.HandleFunc("POST /analyses", h.analyse)
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r); err != nil {
		slog.Warn("Rejected request.", "path", r.URL.Path, "error", err)
		http.Error(w, msgAccessDenied, http.StatusForbidden)
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) checkAccess(r *http.Request) error {
	given := r.URL.Query().Get("access")
	if given == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.config.AccessKey)) != 1 {
		return errAccessDenied
	}
	return nil
}

type topicField struct {
	Index int
	Label string
}

type formData struct {
	Access string
	Topics []topicField
}

func (h *Handler) serveForm(w http.ResponseWriter, r *http.Request) {
	data := formData{Access: r.URL.Query().Get("access")}
	for i, t := range instruction.Topics {
		data.Topics = append(data.Topics, topicField{Index: i, Label: t})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.form.Execute(w, data); err != nil {
		slog.Error("Failed to render form", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}

// readInput parses the multipart form into pipeline input.
func (h *Handler) readInput(w http.ResponseWriter, r *http.Request, logCtx *slog.Logger) (services.AnalysisInput, int, string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.AnalysisInput{}, http.StatusRequestEntityTooLarge, msgTooLarge
		}
		logCtx.Warn("Could not parse form.", "error", err)
		return services.AnalysisInput{}, http.StatusBadRequest, msgInvalidInput
	}
	form := r.MultipartForm

	profile, err := report.ParseProfile(r.FormValue("model_profile"))
	if err != nil {
		return services.AnalysisInput{}, http.StatusBadRequest, msgInvalidInput
	}
	format, err := document.ParseFormat(r.FormValue("format"))
	if err != nil {
		return services.AnalysisInput{}, http.StatusBadRequest, msgInvalidInput
	}

	in := services.AnalysisInput{
		CustomerName:   strings.TrimSpace(r.FormValue("customer_name")),
		CustomerURL:    strings.TrimSpace(r.FormValue("customer_url")),
		Ahrefs:         uploads(form, "ahrefs_files"),
		GSC:            uploads(form, "gsc_files"),
		Profile:        profile,
		Format:         format,
		SelectedTopics: form.Value["topics"],
		ExtraNotes:     r.FormValue("extra_notes"),
		TopicNotes:     topicNotes(form),
		Images:         topicImages(logCtx, form),
	}
	if crawl := uploads(form, "crawl_file"); len(crawl) > 0 {
		in.Crawl = crawl[0]
	}
	return in, 0, ""
}

func (h *Handler) analyse(w http.ResponseWriter, r *http.Request) {
	runID := uuid.NewString()
	logCtx := slog.With("runId", runID)

	in, status, msg := h.readInput(w, r, logCtx)
	if status != 0 {
		http.Error(w, msg, status)
		return
	}
	defer r.MultipartForm.RemoveAll()
	in.RunID = runID

	if err := h.analyser.Validate(in); err != nil {
		status, msg := errorResponse(err)
		logCtx.Info("Analysis input rejected.", "error", err)
		http.Error(w, msg, status)
		return
	}
	logCtx.Info("Starting analysis.", "customer", in.CustomerName, "ahrefsFiles", len(in.Ahrefs), "gscFiles", len(in.GSC), "images", len(in.Images))

	if strings.Contains(r.Header.Get("Accept"), ndjsonType) {
		h.stream(w, r, logCtx, in)
		return
	}

	result, err := h.analyser.Run(r.Context(), in, nil)
	if err != nil {
		status, msg := errorResponse(err)
		logCtx.Error("Analysis failed", "error", err)
		http.Error(w, msg, status)
		return
	}
	w.Header().Set("Content-Type", result.File.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.File.Name}))
	if _, err := w.Write(result.File.Data); err != nil {
		logCtx.Error("Failed to write document", "error", err)
	}
}

// stream runs the analysis and reports progress as NDJSON events.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, logCtx *slog.Logger, in services.AnalysisInput) {
	w.Header().Set("Content-Type", ndjsonType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events := newEventWriter(w)
	events.send(models.StreamEvent{Type: models.EventStart, RunID: in.RunID})

	result, err := h.analyser.Run(r.Context(), in, func(delta string) {
		events.send(models.StreamEvent{Type: models.EventDelta, Text: delta})
	})
	if err != nil {
		_, msg := errorResponse(err)
		logCtx.Error("Analysis failed", "error", err)
		events.send(models.StreamEvent{Type: models.EventError, RunID: in.RunID, Message: msg})
		return
	}
	events.send(models.StreamEvent{
		Type:        models.EventDone,
		RunID:       result.RunID,
		FileName:    result.File.Name,
		ContentType: result.File.ContentType,
		Document:    result.File.Data,
		HTML:        result.PreviewHTML,
	})
}

type eventWriter struct {
	enc     *json.Encoder
	flusher http.Flusher
	failed  bool
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	flusher, _ := w.(http.Flusher)
	return &eventWriter{enc: enc, flusher: flusher}
}

// send writes one event line. After the first write error the client is
// gone and further events are dropped.
func (e *eventWriter) send(ev models.StreamEvent) {
	if e.failed {
		return
	}
	if err := e.enc.Encode(ev); err != nil {
		slog.Warn("Failed to write stream event", "type", ev.Type, "error", err)
		e.failed = true
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

// errorResponse maps a pipeline error to a status code and a message for
// the advisor.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrMissingAhrefs):
		return http.StatusBadRequest, msgMissingAhrefs
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidInput
	case errors.Is(err, services.ErrEmptyReport):
		return http.StatusBadGateway, msgEmptyReport
	case errors.Is(err, services.ErrGenerationFailed):
		return http.StatusBadGateway, msgGenerationFailed
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
