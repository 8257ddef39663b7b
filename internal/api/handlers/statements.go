package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/documents"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/workspace"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const defaultStatementName = "statement"

// StatementsHandler accepts statements for parsing and runs the parse jobs.
type StatementsHandler struct {
	ws             *workspace.Workspace
	publisher      jobs.Publisher
	store          jobs.JobStore
	validate       *validator.Validate
	maxUploadBytes int64
	log            zerolog.Logger

	// gate admits one statement at a time from the busy check until its job
	// is stored as pending.
	gate *semaphore.Weighted
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(ws *workspace.Workspace, publisher jobs.Publisher, store jobs.JobStore, validate *validator.Validate, maxUploadBytes int64, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		ws:             ws,
		publisher:      publisher,
		store:          store,
		validate:       validate,
		maxUploadBytes: maxUploadBytes,
		log:            log,
		gate:           semaphore.NewWeighted(1),
	}
}

// Upload handles POST /api/statements
// The statement is either a multipart "file" field or the raw request body,
// named by the "filename" query parameter.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}
	defer h.gate.Release(1)

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	name, data, err := readStatement(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Statement is too large")
			return
		}
		h.log.Warn().Err(err).Msg("Failed to read statement upload")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid statement upload")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Statement is empty")
		return
	}

	doc := documents.NewDocument(name, data)
	h.enqueue(w, r, &jobs.ParseStatementJob{Filename: name, Document: &doc})
}

type gcsStatementRequest struct {
	GCSURI string `json:"gcs_uri" validate:"required,startswith=gs://"`
}

// EnqueueGCS handles POST /api/statements/gcs
func (h *StatementsHandler) EnqueueGCS(w http.ResponseWriter, r *http.Request) {
	var req gcsStatementRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if _, _, err := documents.ParseGCSURI(req.GCSURI); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.admit(w, r) {
		return
	}
	defer h.gate.Release(1)

	h.enqueue(w, r, &jobs.ParseStatementJob{URI: req.GCSURI})
}

// Process is the job handler: it ingests the job's statement into the workspace.
func (h *StatementsHandler) Process(ctx context.Context, job *jobs.ParseStatementJob) error {
	src := pipeline.Source{URI: job.URI}
	if job.Document != nil {
		src.Document = *job.Document
	}

	added, err := h.ws.IngestStatement(ctx, src)
	if err != nil {
		return err
	}
	job.TransactionCount = len(added)
	return nil
}

// admit rejects a new statement while another one is being accepted, queued
// or parsed. On success the caller holds the gate and must release it after
// the job is published.
func (h *StatementsHandler) admit(w http.ResponseWriter, r *http.Request) bool {
	if !h.gate.TryAcquire(1) {
		middleware.WriteError(w, http.StatusConflict, workspace.ErrBusy.Error())
		return false
	}

	active, err := h.store.HasActive(r.Context())
	if err != nil {
		h.gate.Release(1)
		h.log.Error().Err(err).Msg("Failed to check active jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to check active jobs")
		return false
	}
	if active || h.ws.Status().Ingesting {
		h.gate.Release(1)
		middleware.WriteError(w, http.StatusConflict, workspace.ErrBusy.Error())
		return false
	}
	return true
}

func (h *StatementsHandler) enqueue(w http.ResponseWriter, r *http.Request, job *jobs.ParseStatementJob) {
	ctx := r.Context()

	if err := h.publisher.PublishParseStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue parsing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue parsing job")
		return
	}

	// The worker owns job from here on; read back the stored copy.
	jobID := job.JobID
	stored, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to read enqueued job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read enqueued job")
		return
	}

	h.log.Info().Str("job_id", jobID).Str("uri", stored.URI).Str("filename", stored.Filename).Msg("Parsing job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, stored)
}

func readStatement(r *http.Request) (string, []byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		return cleanFilename(header.Filename), data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	return cleanFilename(r.URL.Query().Get("filename")), data, nil
}

// cleanFilename drops any directory part of a client-supplied name.
func cleanFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultStatementName
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return defaultStatementName
	}
	return name
}
