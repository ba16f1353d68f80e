package chi

import (
	"time"

	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

// ErrorCode is a machine-readable error code in error responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnknownType      ErrorCode = "unknown_type"
	CodeRecordNotFound   ErrorCode = "record_not_found"
	CodeMappingFailed    ErrorCode = "mapping_failed"
	CodeInvalidQuery     ErrorCode = "invalid_query"
	CodeRebuildRunning   ErrorCode = "rebuild_running"
	CodeSearchUnavail    ErrorCode = "search_unavailable"
	CodeBadSearchReply   ErrorCode = "bad_search_response"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// RecordRequest is the body of PUT /records/{type}/{id}.
type RecordRequest struct {
	Fields map[string]any `json:"fields"`
}

// RecordResponse is a stored record.
type RecordResponse struct {
	Type    string         `json:"type"`
	ID      string         `json:"id"`
	Fields  map[string]any `json:"fields"`
	Indexed *bool          `json:"indexed,omitempty"`
	Warning string         `json:"warning,omitempty"`
}

// BatchRecord is one item of a batch save.
type BatchRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// BatchRequest is the body of POST /records/{type}/batch.
type BatchRequest struct {
	Records []BatchRecord `json:"records"`
}

// BatchResultItem is the outcome of one batch item.
type BatchResultItem struct {
	ID      string    `json:"id"`
	Status  string    `json:"status"`
	Indexed bool      `json:"indexed"`
	Code    ErrorCode `json:"code,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BatchResponse lists per-item outcomes in request order.
type BatchResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// ConditionJSON is the wire form of a condition tree. Exactly one of a
// leaf (Field + Op) or a combinator (And, Or, Not) must be set.
type ConditionJSON struct {
	Field     string          `json:"field,omitempty"`
	Op        string          `json:"op,omitempty"`
	Value     any             `json:"value,omitempty"`
	Low       any             `json:"low,omitempty"`
	High      any             `json:"high,omitempty"`
	Exclusive bool            `json:"exclusive,omitempty"`
	And       []ConditionJSON `json:"and,omitempty"`
	Or        []ConditionJSON `json:"or,omitempty"`
	Not       *ConditionJSON  `json:"not,omitempty"`
}

// SortJSON orders results by one field.
type SortJSON struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"`
}

// FacetJSON requests value counts for a field.
type FacetJSON struct {
	Field    string `json:"field"`
	Limit    int    `json:"limit,omitempty"`
	MinCount int    `json:"min_count,omitempty"`
}

// SearchRequest is the body of POST /records/{type}/search.
type SearchRequest struct {
	Query   ConditionJSON   `json:"query"`
	Filters []ConditionJSON `json:"filters,omitempty"`
	Sort    []SortJSON      `json:"sort,omitempty"`
	Offset  int             `json:"offset,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Fields  []string        `json:"fields,omitempty"`
	Facets  []FacetJSON     `json:"facets,omitempty"`
}

// SearchHit is one raw index hit.
type SearchHit struct {
	ID     string         `json:"id"`
	Score  *float64       `json:"score,omitempty"`
	Fields map[string]any `json:"fields"`
}

// FacetCountJSON is one facet bucket.
type FacetCountJSON struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// SearchResponse is one page of search results. Hits is set for index-only
// searches, Records for rehydrated ones.
type SearchResponse struct {
	Total      int64                       `json:"total"`
	Offset     int64                       `json:"offset"`
	MaxScore   *float64                    `json:"max_score,omitempty"`
	HasMore    bool                        `json:"has_more"`
	NextOffset *int64                      `json:"next_offset,omitempty"`
	Hits       []SearchHit                 `json:"hits,omitempty"`
	Records    []RecordResponse            `json:"records,omitempty"`
	Stale      int                         `json:"stale,omitempty"`
	Facets     map[string][]FacetCountJSON `json:"facets,omitempty"`
	QTimeMs    int                         `json:"qtime_ms"`
}

// RebuildResponse reports rebuild progress.
type RebuildResponse struct {
	Type       string     `json:"type"`
	State      string     `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Indexed    int        `json:"indexed"`
	Skipped    int        `json:"skipped"`
	Error      string     `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	PendingWrites int               `json:"pending_writes"`
}

func recordToResponse(rec domrec.Record) RecordResponse {
	return RecordResponse{Type: rec.Type(), ID: rec.ID(), Fields: rec.Fields()}
}

func rebuildToResponse(st domrec.RebuildStatus) RebuildResponse {
	resp := RebuildResponse{
		Type:      st.Type,
		State:     string(st.State),
		StartedAt: st.StartedAt,
		Indexed:   st.Indexed,
		Skipped:   st.Skipped,
		Error:     st.Error,
	}
	if !st.FinishedAt.IsZero() {
		t := st.FinishedAt
		resp.FinishedAt = &t
	}
	return resp
}
