// Package summary defines the record type, lifecycle states, and the ports
// (store, queue, fetcher, extractor, summarizer, blob store, publisher) shared
// by the HTTP API and the background summarization pipeline.
package summary
