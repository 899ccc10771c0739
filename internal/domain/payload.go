package domain

// Error codes surfaced in ResponsePayload.ErrorCode. Each failure stage
// has its own code so callers can decide whether a retry makes sense.
const (
	ErrCodeConfig            = "CONFIG_ERROR"
	ErrCodeEmbeddingFailed   = "EMBEDDING_FAILED"
	ErrCodeCollectionMissing = "COLLECTION_NOT_FOUND"
	ErrCodeVectorQueryFailed = "VECTORDB_QUERY_FAILED"
	ErrCodeGenerationBlocked = "GENERATION_BLOCKED"
	ErrCodeResponseUnread    = "GENERATION_RESPONSE_ERROR"
	ErrCodeGenerationFailed  = "LLM_GENERATION_FAILED"
	ErrCodeRateLimited       = "API_RATE_LIMIT_GENERATION"
	ErrCodeAPIError          = "API_ERROR_GENERATION"
	ErrCodeSQLExecution      = "SQL_EXECUTION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeEmptyQuery        = "EMPTY_QUERY"
)

// FallbackReason explains why the pipeline re-routed a structured intent
// into the semantic path. Logged on every such transition.
type FallbackReason string

const (
	FallbackNone                  FallbackReason = ""
	FallbackUnresolvedBeneficiary FallbackReason = "beneficiary_unresolved"
	FallbackNoAggregationData     FallbackReason = "aggregation_no_data"
)

// ResponsePayload is the single externally observable result of a
// question. Transports serialize it verbatim (HTTP JSON, SSE result
// event, websocket frame) and it is the unit stored in the cache.
//
// Invariant: Success implies ErrorCode is nil and Answer is non-nil.
type ResponsePayload struct {
	Success      bool             `json:"success"`
	Answer       *string          `json:"answer"`
	References   []map[string]any `json:"references"`
	TableData    []map[string]any `json:"table_data"`
	ErrorCode    *string          `json:"error_code"`
	ErrorMessage *string          `json:"error_message"`
}

// NewResponsePayload returns an empty failed payload with a non-nil
// references slice, matching the wire contract (references is [] when
// nothing was retrieved, never null).
func NewResponsePayload() *ResponsePayload {
	return &ResponsePayload{References: []map[string]any{}}
}

// SetAnswer marks the payload successful with the given answer text.
func (p *ResponsePayload) SetAnswer(text string) {
	p.Success = true
	p.Answer = &text
	p.ErrorCode = nil
	p.ErrorMessage = nil
}

// SetError marks the payload failed with a typed code and a
// human-readable message. Any previously set answer is cleared.
func (p *ResponsePayload) SetError(code, message string) {
	p.Success = false
	p.Answer = nil
	p.ErrorCode = &code
	p.ErrorMessage = &message
}

// Cacheable reports whether the payload may be written to the response
// cache: only fully successful, error-free outcomes qualify.
func (p *ResponsePayload) Cacheable() bool {
	return p != nil && p.Success && p.ErrorCode == nil
}
