// Package main is the summaries service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the summaries CRUD routes plus
//     /ping, /healthz, /readyz and /metrics. Payloads are validated by
//     internal/schema before anything reaches the store; invalid input gets a
//     422 listing every field error.
//   - Persistence: records live in Postgres (pgx) when database_url is set and
//     in an in-memory store otherwise, which is only allowed in dev.
//   - Background summarizer: Create enqueues a task on the memory or Redis
//     queue. The dispatcher fans tasks out to worker.concurrency workers that
//     fetch the article with Colly (falling back to headless Chrome for thin
//     pages), archive the raw HTML, extract readable text, summarize it and
//     write the summary back while the record is still pending. Completion
//     events go to Pub/Sub when a topic is configured.
//   - Configuration & plumbing: Viper loads config from env and an optional
//     --config file; zap provides structured logging; Prometheus metrics are
//     exported via the metrics middleware and /metrics.
//
// Operational notes:
//   - Failed attempts are retried with jittered exponential backoff up to
//     worker.max_retries. Permanent failures and exhausted retries mark the
//     record failed; nothing is reported back to the HTTP client.
//   - SIGINT/SIGTERM drains the HTTP server, then cancels the workers. A task
//     interrupted by shutdown leaves its record pending.
//
// Quick checklist:
//   - Configure env vars: ENVIRONMENT, TESTING, DATABASE_URL, SERVER_PORT,
//     WORKER_CONCURRENCY, QUEUE_BACKEND and QUEUE_REDIS_ADDR, STORAGE_GCS_BUCKET
//     or STORAGE_LOCAL_DIR, PUBSUB_PROJECT_ID and PUBSUB_TOPIC.
//   - Run locally: go run ./cmd/summaries serve (add --config config.yaml to
//     read a file).
//   - Create the table ahead of a deploy: go run ./cmd/summaries migrate.
package main

import (
	"github.com/JakeFAU/article-summaries/cmd"
)

func main() {
	cmd.Execute()
}
