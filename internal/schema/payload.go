package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

// SummaryPayload is the create request body.
type SummaryPayload struct {
	URL string `json:"url"`
}

// SummaryResponse is returned by create and delete.
type SummaryResponse struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// SummaryUpdatePayload is the update request body.
type SummaryUpdatePayload struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// SummaryRecord is the full record returned by read and update.
type SummaryRecord struct {
	ID        int64          `json:"id"`
	URL       string         `json:"url"`
	Summary   string         `json:"summary"`
	Status    summary.Status `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewSummaryResponse builds the short response for a stored record.
func NewSummaryResponse(s summary.Summary) SummaryResponse {
	return SummaryResponse{ID: s.ID, URL: s.URL}
}

// NewSummaryRecord builds the full response for a stored record.
func NewSummaryRecord(s summary.Summary) SummaryRecord {
	return SummaryRecord{
		ID:        s.ID,
		URL:       s.URL,
		Summary:   s.Summary,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
	}
}

// Validate checks the server-assigned fields before they leave the API.
func (r SummaryResponse) Validate() []FieldError {
	var errs []FieldError
	if r.ID <= 0 {
		errs = append(errs, greaterThanZero([]any{"response", "id"}, r.ID))
	}
	if _, err := NormalizeURL(r.URL); err != nil {
		errs = append(errs, urlFieldError([]any{"response", "url"}, r.URL, err))
	}
	return errs
}

// DecodeSummaryPayload parses and validates a create body.
func DecodeSummaryPayload(body []byte) (SummaryPayload, []FieldError) {
	fields, errs := decodeObject(body)
	if errs != nil {
		return SummaryPayload{}, errs
	}
	var p SummaryPayload
	p.URL, errs = urlField(fields, "url")
	return p, errs
}

// DecodeSummaryUpdatePayload parses and validates an update body.
func DecodeSummaryUpdatePayload(body []byte) (SummaryUpdatePayload, []FieldError) {
	fields, errs := decodeObject(body)
	if errs != nil {
		return SummaryUpdatePayload{}, errs
	}
	var p SummaryUpdatePayload
	var urlErrs, summaryErrs []FieldError
	p.URL, urlErrs = urlField(fields, "url")
	p.Summary, summaryErrs = stringField(fields, "summary")
	return p, append(urlErrs, summaryErrs...)
}

// ParseID validates a path id, which must be an integer greater than zero.
func ParseID(raw string) (int64, []FieldError) {
	loc := []any{"path", "id"}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, []FieldError{{
			Type:  TypeIntParsing,
			Loc:   loc,
			Msg:   "Input should be a valid integer, unable to parse string as an integer",
			Input: raw,
		}}
	}
	if id <= 0 {
		return 0, []FieldError{greaterThanZero(loc, raw)}
	}
	return id, nil
}

// decodedObject keeps the raw field values next to the generic form used as
// the "input" echo in error messages.
type decodedObject struct {
	raw   map[string]json.RawMessage
	input map[string]any
}

func decodeObject(body []byte) (decodedObject, []FieldError) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return decodedObject{}, []FieldError{missing([]any{"body"}, nil)}
	}
	var generic any
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		var offset int64
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			offset = syntaxErr.Offset
		}
		return decodedObject{}, []FieldError{{
			Type:  TypeJSONInvalid,
			Loc:   []any{"body", offset},
			Msg:   "JSON decode error",
			Input: map[string]any{},
			Ctx:   map[string]any{"error": err.Error()},
		}}
	}
	input, ok := generic.(map[string]any)
	if !ok {
		return decodedObject{}, []FieldError{{
			Type:  TypeModelAttributesType,
			Loc:   []any{"body"},
			Msg:   "Input should be a valid dictionary or object to extract fields from",
			Input: generic,
		}}
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return decodedObject{}, []FieldError{{
			Type:  TypeJSONInvalid,
			Loc:   []any{"body", 0},
			Msg:   "JSON decode error",
			Input: map[string]any{},
			Ctx:   map[string]any{"error": err.Error()},
		}}
	}
	return decodedObject{raw: raw, input: input}, nil
}

func stringField(obj decodedObject, name string) (string, []FieldError) {
	loc := []any{"body", name}
	value, ok := obj.raw[name]
	if !ok {
		return "", []FieldError{missing(loc, obj.input)}
	}
	var s string
	if err := unmarshalString(value, &s); err != nil {
		return "", []FieldError{{
			Type:  TypeStringType,
			Loc:   loc,
			Msg:   "Input should be a valid string",
			Input: obj.input[name],
		}}
	}
	return s, nil
}

func urlField(obj decodedObject, name string) (string, []FieldError) {
	loc := []any{"body", name}
	value, ok := obj.raw[name]
	if !ok {
		return "", []FieldError{missing(loc, obj.input)}
	}
	var s string
	if err := unmarshalString(value, &s); err != nil {
		return "", []FieldError{{
			Type:  TypeURLType,
			Loc:   loc,
			Msg:   "URL input should be a string or URL",
			Input: obj.input[name],
		}}
	}
	normalized, err := NormalizeURL(s)
	if err != nil {
		return "", []FieldError{urlFieldError(loc, s, err)}
	}
	return normalized, nil
}

// unmarshalString rejects JSON null, which encoding/json would silently
// accept as a no-op.
func unmarshalString(value json.RawMessage, s *string) error {
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return errors.New("null is not a string")
	}
	return json.Unmarshal(value, s)
}

func urlFieldError(loc []any, input string, err error) FieldError {
	fe := FieldError{Type: TypeURLParsing, Loc: loc, Msg: err.Error(), Input: input}
	var urlErr *URLError
	if errors.As(err, &urlErr) {
		fe.Type = urlErr.Type
		fe.Ctx = urlErr.Ctx
	}
	return fe
}

func greaterThanZero(loc []any, input any) FieldError {
	return FieldError{
		Type:  TypeGreaterThan,
		Loc:   loc,
		Msg:   "Input should be greater than 0",
		Input: input,
		Ctx:   map[string]any{"gt": 0},
	}
}
