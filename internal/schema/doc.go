// Package schema defines the JSON payloads exchanged over HTTP and the
// validation that runs on them before anything reaches the store.
//
// Validation never stops at the first problem: every decoder returns the full
// list of FieldError values so the API can answer with a single 422 body of
// the form {"detail": [...]}.
package schema
