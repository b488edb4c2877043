package server

import (
	"time"

	"github.com/poiesic/sigmatch/core"
)

// matchRequest is the POST /match request body. Filter criteria arrive in
// the nested "filters" object; the flat fields are accepted as aliases.
type matchRequest struct {
	StartupDescription string        `json:"startup_description"`
	TopN               *int          `json:"top_n,omitempty"`
	Filters            *matchFilters `json:"filters,omitempty"`
	Agency             string        `json:"agency,omitempty"`
	CategoryCodes      []string      `json:"category_codes,omitempty"`
	IncludeExpired     bool          `json:"include_expired,omitempty"`
}

type matchFilters struct {
	Agency         string   `json:"agency,omitempty"`
	CategoryCodes  []string `json:"category_codes,omitempty"`
	IncludeExpired bool     `json:"include_expired,omitempty"`
}

// filter resolves the effective criteria. The nested object wins when both
// forms are present.
func (r matchRequest) filter() core.Filter {
	if r.Filters != nil {
		return core.Filter{
			Agency:         r.Filters.Agency,
			CategoryCodes:  r.Filters.CategoryCodes,
			IncludeExpired: r.Filters.IncludeExpired,
		}
	}
	return core.Filter{
		Agency:         r.Agency,
		CategoryCodes:  r.CategoryCodes,
		IncludeExpired: r.IncludeExpired,
	}
}

// matchResponse is the POST /match response body.
type matchResponse struct {
	Matches []matchPayload `json:"matches"`
}

type matchPayload struct {
	Signal    signalPayload `json:"signal"`
	Score     float64       `json:"score"`
	Reasoning string        `json:"reasoning"`
}

// signalPayload is the wire form of a signal.
type signalPayload struct {
	Id            string   `json:"id"`
	SourceType    string   `json:"source_type"`
	Agency        string   `json:"agency,omitempty"`
	CategoryCodes []string `json:"category_codes,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	PublishedAt   string   `json:"published_at"`
	ResponseDueAt string   `json:"response_due_at,omitempty"`
}

// signalInput is one record of a POST /signals batch.
type signalInput struct {
	Id            string   `json:"id"`
	SourceType    string   `json:"source_type"`
	Agency        string   `json:"agency,omitempty"`
	CategoryCodes []string `json:"category_codes,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	PublishedAt   string   `json:"published_at"`
	ResponseDueAt string   `json:"response_due_at,omitempty"`
}

// ingestRequest is the POST /signals request body.
type ingestRequest struct {
	Signals []signalInput `json:"signals"`
}

// ingestResponse reports per-record batch outcomes.
type ingestResponse struct {
	Accepted []string         `json:"accepted"`
	Rejected []rejectedRecord `json:"rejected"`
}

type rejectedRecord struct {
	Id    string `json:"id"`
	Error string `json:"error"`
}

// errorResponse is the error envelope for all non-2xx responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable error codes clients can branch on.
const (
	codeInvalidInput     = "invalid_input"
	codeInvalidArgument  = "invalid_argument"
	codeMatchUnavailable = "match_unavailable"
	codeInternalError    = "internal_error"
	codeNotFound         = "not_found"
)

func toSignalPayload(signal *core.Signal) signalPayload {
	p := signalPayload{
		Id:            string(signal.Id),
		SourceType:    signal.SourceType.String(),
		Agency:        signal.Agency,
		CategoryCodes: signal.CategoryCodes,
		Title:         signal.Title,
		Description:   signal.Description,
		PublishedAt:   signal.PublishedAt.UTC().Format(time.RFC3339),
	}
	if !signal.ResponseDueAt.IsZero() {
		p.ResponseDueAt = signal.ResponseDueAt.UTC().Format(time.RFC3339)
	}
	return p
}

// toSignal converts one ingest record to the domain model. Parse failures
// reject the single record, not the batch.
func (in signalInput) toSignal() (*core.Signal, error) {
	sourceType, err := core.ParseSourceType(in.SourceType)
	if err != nil {
		return nil, err
	}

	publishedAt, err := time.Parse(time.RFC3339, in.PublishedAt)
	if err != nil {
		return nil, err
	}

	signal := &core.Signal{
		Id:            core.ID(in.Id),
		SourceType:    sourceType,
		Agency:        in.Agency,
		CategoryCodes: in.CategoryCodes,
		Title:         in.Title,
		Description:   in.Description,
		PublishedAt:   publishedAt,
	}

	if in.ResponseDueAt != "" {
		dueAt, err := time.Parse(time.RFC3339, in.ResponseDueAt)
		if err != nil {
			return nil, err
		}
		signal.ResponseDueAt = dueAt
	}

	return signal, nil
}
