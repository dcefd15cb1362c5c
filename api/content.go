package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gurukul-labs/gurukul/internal/log"
	"github.com/gurukul-labs/gurukul/internal/retrieval"
)

// maxBodyBytes bounds request bodies; textbook chapters are large but finite.
const maxBodyBytes = 8 << 20

// ContentService is the retrieval surface the handlers consume. Implemented
// by *retrieval.System; defined here so handlers are testable with fakes.
type ContentService interface {
	Ingest(ctx context.Context, input retrieval.ChunkInput) (string, error)
	IngestDocument(ctx context.Context, doc retrieval.DocumentInput) (retrieval.Report, error)
	Search(ctx context.Context, query string, classNo int, subject string, k int) ([]retrieval.SearchResult, error)
	Answer(ctx context.Context, query string, classNo int, subject string) (string, error)
}

// contentHandler serves ingestion, search, and answer endpoints.
type contentHandler struct {
	service ContentService
	logger  log.Logger
}

type ingestChunkRequest struct {
	Subject   string `json:"subject"`
	ClassNo   int    `json:"class_no"`
	Chapter   string `json:"chapter"`
	Text      string `json:"text"`
	SourcePDF string `json:"source_pdf,omitempty"`
	Page      *int   `json:"page,omitempty"`
}

type ingestChunkResponse struct {
	ID string `json:"id"`
}

type pageRequest struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

type ingestDocumentRequest struct {
	Subject   string        `json:"subject"`
	ClassNo   int           `json:"class_no"`
	Chapter   string        `json:"chapter"`
	SourcePDF string        `json:"source_pdf,omitempty"`
	Pages     []pageRequest `json:"pages"`
}

type ingestDocumentResponse struct {
	Chunks int `json:"chunks"`
	Failed int `json:"failed"`
}

type searchRequest struct {
	Query   string `json:"query"`
	ClassNo int    `json:"class_no"`
	Subject string `json:"subject"`
	K       int    `json:"k,omitempty"`
}

type searchResponse struct {
	Results []retrieval.SearchResult `json:"results"`
}

type answerRequest struct {
	Query   string `json:"query"`
	ClassNo int    `json:"class_no"`
	Subject string `json:"subject"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// decodeBody decodes a bounded JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Trailing garbage after the JSON value is a malformed request.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (h *contentHandler) ingestChunk(w http.ResponseWriter, r *http.Request) {
	var req ingestChunkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Chapter) == "" || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "subject, chapter, and text are required", h.logger)
		return
	}

	id, err := h.service.Ingest(r.Context(), retrieval.ChunkInput{
		Subject:   req.Subject,
		ClassNo:   req.ClassNo,
		Chapter:   req.Chapter,
		Text:      req.Text,
		SourcePDF: req.SourcePDF,
		Page:      req.Page,
	})
	if err != nil {
		h.logger.Error("ingesting chunk", "subject", req.Subject, "chapter", req.Chapter, "error", err)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "failed to ingest chunk", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, ingestChunkResponse{ID: id}, h.logger)
}

func (h *contentHandler) ingestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestDocumentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Chapter) == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "subject and chapter are required", h.logger)
		return
	}
	if len(req.Pages) == 0 {
		writeError(w, http.StatusBadRequest, "missing_field", "at least one page is required", h.logger)
		return
	}

	doc := retrieval.DocumentInput{
		Subject:   req.Subject,
		ClassNo:   req.ClassNo,
		Chapter:   req.Chapter,
		SourcePDF: req.SourcePDF,
	}
	for _, p := range req.Pages {
		doc.Pages = append(doc.Pages, retrieval.PageText{Number: p.Number, Text: p.Text})
	}

	report, err := h.service.IngestDocument(r.Context(), doc)
	if err != nil && report.Chunks == 0 {
		h.logger.Error("ingesting document", "subject", req.Subject, "chapter", req.Chapter, "error", err)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "failed to ingest document", h.logger)
		return
	}
	if err != nil {
		// Partial success: some chunks landed, the rest are reported in Failed.
		h.logger.Warn("document ingested with failures",
			"subject", req.Subject, "chapter", req.Chapter,
			"chunks", report.Chunks, "failed", report.Failed, "error", err)
	}

	writeJSON(w, http.StatusOK, ingestDocumentResponse{Chunks: report.Chunks, Failed: report.Failed}, h.logger)
}

func (h *contentHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.Subject) == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "query and subject are required", h.logger)
		return
	}

	results, err := h.service.Search(r.Context(), req.Query, req.ClassNo, req.Subject, req.K)
	if err != nil {
		h.logger.Error("searching content", "subject", req.Subject, "error", err)
		writeError(w, http.StatusInternalServerError, "search_failed", "failed to search content", h.logger)
		return
	}
	if results == nil {
		// No matches is an empty list, not null.
		results = []retrieval.SearchResult{}
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results}, h.logger)
}

func (h *contentHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.Subject) == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "query and subject are required", h.logger)
		return
	}

	answer, err := h.service.Answer(r.Context(), req.Query, req.ClassNo, req.Subject)
	if err != nil {
		h.logger.Error("answering query", "subject", req.Subject, "error", err)
		writeError(w, http.StatusInternalServerError, "answer_failed", "failed to answer query", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{Answer: answer}, h.logger)
}
