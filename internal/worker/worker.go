// Package worker runs the background summarization pipeline: fetch the
// article, extract and summarize its text, store the result and archive the
// raw page.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summaries/internal/metrics"
	"github.com/JakeFAU/article-summaries/internal/summary"
)

const tracerName = "github.com/JakeFAU/article-summaries/internal/worker"

// Config controls Worker behavior.
type Config struct {
	ContentType string
	BlobPrefix  string
	// HeadlessMinText is the extracted text length below which the page is
	// rendered again in headless Chrome.
	HeadlessMinText int
}

// result is what a successful attempt leaves behind for the completion event.
type result struct {
	blobURI     string
	contentHash string
}

// Worker consumes tasks and writes summaries back to the store.
type Worker struct {
	queue           summary.Queue
	store           summary.Store
	blobStore       summary.BlobStore
	publisher       summary.Publisher
	hasher          summary.Hasher
	clock           summary.Clock
	fetcher         summary.Fetcher
	headlessFetcher summary.Fetcher
	detector        summary.RenderDetector
	limiter         summary.HostLimiter
	extractor       summary.Extractor
	summarizer      summary.Summarizer
	retry           summary.RetryPolicy
	cfg             Config
	logger          *zap.Logger
}

// New constructs a Worker. blobStore, publisher, hasher, headless, detector
// and limiter may be nil.
func New(
	queue summary.Queue,
	store summary.Store,
	blobStore summary.BlobStore,
	publisher summary.Publisher,
	hasher summary.Hasher,
	clock summary.Clock,
	fetcher summary.Fetcher,
	headless summary.Fetcher,
	detector summary.RenderDetector,
	limiter summary.HostLimiter,
	extractor summary.Extractor,
	summarizer summary.Summarizer,
	retry summary.RetryPolicy,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry == nil {
		retry = summary.NewExponentialRetryPolicy(0, 0, 0)
	}
	return &Worker{
		queue:           queue,
		store:           store,
		blobStore:       blobStore,
		publisher:       publisher,
		hasher:          hasher,
		clock:           clock,
		fetcher:         fetcher,
		headlessFetcher: headless,
		detector:        detector,
		limiter:         limiter,
		extractor:       extractor,
		summarizer:      summarizer,
		retry:           retry,
		cfg:             cfg,
		logger:          logger,
	}
}

// Run blocks, consuming tasks until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if !sleepContext(ctx, time.Second) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued task", zap.Int64("summary_id", task.SummaryID))
		w.Process(ctx, task)
	}
}

// Process runs one task to completion, retrying failed attempts per the
// retry policy. Exhausted or permanent failures mark the record failed.
func (w *Worker) Process(ctx context.Context, task summary.Task) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "summary.process",
		trace.WithAttributes(
			attribute.Int64("summary.id", task.SummaryID),
			attribute.String("url.full", task.URL),
		),
	)
	defer span.End()

	logger := w.logger.With(zap.Int64("summary_id", task.SummaryID), zap.String("url", task.URL))
	start := w.clock.Now()

	attempt := task.Attempt
	for {
		attempt++
		res, err := w.attempt(ctx, task)
		if err == nil {
			metrics.ObserveTask(metrics.TaskCompleted, w.clock.Now().Sub(start))
			span.SetAttributes(attribute.Int("summary.attempts", attempt))
			logger.Info("summary completed", zap.Int("attempt", attempt), zap.String("blob_uri", res.blobURI))
			w.publish(ctx, logger, summary.Event{
				SummaryID:   task.SummaryID,
				URL:         task.URL,
				Status:      summary.StatusCompleted,
				BlobURI:     res.blobURI,
				ContentHash: res.contentHash,
			})
			return
		}
		span.RecordError(err, trace.WithAttributes(attribute.Int("summary.attempt", attempt)))
		if ctx.Err() != nil {
			logger.Warn("task interrupted by shutdown; record stays pending", zap.Error(err))
			return
		}
		if discarded(err) {
			metrics.ObserveTask(metrics.TaskDiscarded, 0)
			logger.Info("record changed before completion; result dropped", zap.Error(err))
			return
		}
		if !w.retry.ShouldRetry(err, attempt) {
			span.SetStatus(codes.Error, err.Error())
			w.fail(ctx, logger, task, err, attempt, start)
			return
		}
		delay := w.retry.Backoff(attempt)
		metrics.ObserveTask(metrics.TaskRetried, 0)
		logger.Warn("attempt failed; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if !sleepContext(ctx, delay) {
			logger.Warn("retry interrupted by shutdown; record stays pending")
			return
		}
	}
}

// attempt runs the pipeline once.
func (w *Worker) attempt(ctx context.Context, task summary.Task) (result, error) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx, task.URL); err != nil {
			return result{}, err
		}
	}
	resp, err := w.fetcher.Fetch(ctx, summary.FetchRequest{SummaryID: task.SummaryID, URL: task.URL})
	if err != nil {
		return result{}, fmt.Errorf("fetch: %w", err)
	}
	metrics.ObserveFetch(task.URL, len(resp.Body))

	article, extractErr := w.extractor.Extract(resp.URL, resp.Body)
	if w.wantsHeadless(resp, article, extractErr) {
		if rendered, renderedArticle, ok := w.renderHeadless(ctx, task); ok {
			resp, article, extractErr = rendered, renderedArticle, nil
		}
	}
	if extractErr != nil {
		return result{}, fmt.Errorf("extract: %w", extractErr)
	}

	text, err := w.summarizer.Summarize(ctx, article)
	if err != nil {
		return result{}, fmt.Errorf("summarize: %w", err)
	}
	if err := w.store.CompleteSummary(ctx, task.SummaryID, text); err != nil {
		return result{}, fmt.Errorf("complete summary: %w", err)
	}
	// Archive only after the record is written; a retried attempt never uploads.
	return result{
		blobURI:     w.archive(ctx, task, resp),
		contentHash: w.fingerprint(resp.Body),
	}, nil
}

func (w *Worker) wantsHeadless(resp summary.FetchResponse, article summary.Article, extractErr error) bool {
	if w.headlessFetcher == nil {
		return false
	}
	if extractErr != nil {
		return errors.Is(extractErr, summary.ErrNoContent)
	}
	if len(article.Text) < w.cfg.HeadlessMinText {
		return true
	}
	return w.detector != nil && w.detector.ShouldRender(resp)
}

func (w *Worker) fingerprint(body []byte) string {
	if w.hasher == nil {
		return ""
	}
	sum, err := w.hasher.Hash(body)
	if err != nil {
		w.logger.Warn("hash page failed", zap.Error(err))
		return ""
	}
	return sum
}

// renderHeadless re-fetches the page in a browser and keeps the result only
// when it yields more text.
func (w *Worker) renderHeadless(ctx context.Context, task summary.Task) (summary.FetchResponse, summary.Article, bool) {
	metrics.ObserveHeadlessFallback()
	resp, err := w.headlessFetcher.Fetch(ctx, summary.FetchRequest{
		SummaryID:   task.SummaryID,
		URL:         task.URL,
		UseHeadless: true,
	})
	if err != nil {
		w.logger.Warn("headless fetch failed",
			zap.Int64("summary_id", task.SummaryID),
			zap.String("url", task.URL),
			zap.Error(err),
		)
		return summary.FetchResponse{}, summary.Article{}, false
	}
	article, err := w.extractor.Extract(resp.URL, resp.Body)
	if err != nil {
		return summary.FetchResponse{}, summary.Article{}, false
	}
	resp.UsedHeadless = true
	return resp, article, true
}

// archive stores the raw page. A failed upload is logged and does not stop
// the summary from being written.
func (w *Worker) archive(ctx context.Context, task summary.Task, resp summary.FetchResponse) string {
	if w.blobStore == nil {
		return ""
	}
	path := w.buildBlobPath(task.SummaryID, w.clock.Now())
	uri, err := w.blobStore.PutObject(ctx, path, w.cfg.ContentType, bytes.NewReader(resp.Body))
	if err != nil {
		w.logger.Warn("archive page failed",
			zap.Int64("summary_id", task.SummaryID),
			zap.String("path", path),
			zap.Error(err),
		)
		return ""
	}
	return uri
}

func (w *Worker) buildBlobPath(id int64, at time.Time) string {
	prefix := strings.Trim(w.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%d/%d.html", id, at.UnixNano())
	}
	return fmt.Sprintf("%s/%d/%d.html", prefix, id, at.UnixNano())
}

func (w *Worker) fail(ctx context.Context, logger *zap.Logger, task summary.Task, cause error, attempt int, start time.Time) {
	err := w.store.FailSummary(ctx, task.SummaryID, cause.Error())
	if discarded(err) {
		metrics.ObserveTask(metrics.TaskDiscarded, 0)
		logger.Info("record changed before failure was recorded", zap.Error(err))
		return
	}
	if err != nil {
		logger.Error("mark summary failed", zap.NamedError("cause", cause), zap.Error(err))
		return
	}
	metrics.ObserveTask(metrics.TaskFailed, w.clock.Now().Sub(start))
	logger.Error("summary failed", zap.Int("attempts", attempt), zap.Error(cause))
	w.publish(ctx, logger, summary.Event{
		SummaryID: task.SummaryID,
		URL:       task.URL,
		Status:    summary.StatusFailed,
		Error:     cause.Error(),
	})
}

func (w *Worker) publish(ctx context.Context, logger *zap.Logger, event summary.Event) {
	if w.publisher == nil {
		return
	}
	event.Timestamp = w.clock.Now().UTC()
	id, err := w.publisher.Publish(ctx, event)
	if err != nil {
		logger.Warn("publish event failed", zap.Error(err))
		return
	}
	logger.Debug("event published", zap.String("message_id", id), zap.String("status", string(event.Status)))
}

func discarded(err error) bool {
	return errors.Is(err, summary.ErrNotFound) || errors.Is(err, summary.ErrNotPending)
}

func sleepContext(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
