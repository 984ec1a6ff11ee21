package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summaries/internal/schema"
	"github.com/JakeFAU/article-summaries/internal/summary"
)

const (
	notFoundDetail      = "Summary not found"
	internalErrorDetail = "Internal Server Error"
)

func (s *Server) createSummary(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	payload, errs := schema.DecodeSummaryPayload(body)
	if verr := schema.NewValidationError(errs); verr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, verr)
		return
	}

	now := s.clock.Now()
	record, err := s.store.Create(r.Context(), payload.URL, now)
	if err != nil {
		s.internalError(w, r, "create summary failed", err)
		return
	}
	resp := schema.NewSummaryResponse(record)
	if errs := resp.Validate(); len(errs) > 0 {
		s.logger.Error("stored summary failed response validation",
			zap.Int64("summary_id", record.ID),
			zap.Error(schema.NewValidationError(errs)),
		)
		writeDetail(w, http.StatusInternalServerError, internalErrorDetail)
		return
	}

	s.enqueue(r.Context(), summary.Task{
		SummaryID: record.ID,
		URL:       record.URL,
		Submitted: now.Unix(),
	})
	writeJSON(w, http.StatusCreated, resp)
}

// enqueue hands the record to the background summarizer. Failures leave the
// record pending and are only logged.
func (s *Server) enqueue(ctx context.Context, task summary.Task) {
	if s.enqueuer == nil {
		s.logger.Warn("no queue configured; summary stays pending", zap.Int64("summary_id", task.SummaryID))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	if err := s.enqueuer.Enqueue(ctx, task); err != nil {
		s.logger.Error("enqueue summary task failed",
			zap.Int64("summary_id", task.SummaryID),
			zap.String("url", task.URL),
			zap.Error(err),
		)
	}
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.internalError(w, r, "list summaries failed", err)
		return
	}
	out := make([]schema.SummaryRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, schema.NewSummaryRecord(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	id, errs := schema.ParseID(chi.URLParam(r, "id"))
	if verr := schema.NewValidationError(errs); verr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, verr)
		return
	}
	record, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "get summary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, schema.NewSummaryRecord(record))
}

func (s *Server) updateSummary(w http.ResponseWriter, r *http.Request) {
	id, idErrs := schema.ParseID(chi.URLParam(r, "id"))
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	payload, bodyErrs := schema.DecodeSummaryUpdatePayload(body)
	if verr := schema.NewValidationError(idErrs, bodyErrs); verr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, verr)
		return
	}
	record, err := s.store.Update(r.Context(), id, payload.URL, payload.Summary)
	if err != nil {
		s.storeError(w, r, "update summary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, schema.NewSummaryRecord(record))
}

func (s *Server) deleteSummary(w http.ResponseWriter, r *http.Request) {
	id, errs := schema.ParseID(chi.URLParam(r, "id"))
	if verr := schema.NewValidationError(errs); verr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, verr)
		return
	}
	record, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.storeError(w, r, "delete summary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, schema.NewSummaryResponse(record))
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		s.internalError(w, r, "read request body failed", err)
		return nil, false
	}
	return body, true
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, summary.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, notFoundDetail)
		return
	}
	s.internalError(w, r, msg, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg,
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeDetail(w, http.StatusInternalServerError, internalErrorDetail)
}
