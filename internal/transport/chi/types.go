package chi

import "time"

// ErrorResponseCode is the machine-readable error code returned to clients.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest               ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized             ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed         ErrorResponseCode = "validation_failed"
	ErrorResponseCodeNotFound                 ErrorResponseCode = "not_found"
	ErrorResponseCodeCorpusUnavailable        ErrorResponseCode = "corpus_unavailable"
	ErrorResponseCodeFeedbackStoreUnavailable ErrorResponseCode = "feedback_store_unavailable"
	ErrorResponseCodeInternalError            ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query    string  `json:"query"`
	Location *string `json:"location,omitempty"`
	Limit    *int    `json:"limit,omitempty"`
	TopK     *int    `json:"top_k,omitempty"`
}

// SearchParams are the query parameters of GET /api/v1/search.
type SearchParams struct {
	Q        string  `form:"q" json:"q"`
	Location *string `form:"location,omitempty" json:"location,omitempty"`
	Limit    *int    `form:"limit,omitempty" json:"limit,omitempty"`
	TopK     *int    `form:"top_k,omitempty" json:"top_k,omitempty"`
}

// SearchResultItem is one ranked video.
type SearchResultItem struct {
	Id           string  `json:"id"`
	Score        float64 `json:"score"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Location     string  `json:"location"`
	ThumbnailUrl *string `json:"thumbnail_url,omitempty"`
	VideoUrl     *string `json:"video_url,omitempty"`
}

// SearchResponse is the result of a search.
type SearchResponse struct {
	SearchId  string             `json:"search_id"`
	Query     string             `json:"query"`
	Location  string             `json:"location,omitempty"`
	Items     []SearchResultItem `json:"items"`
	Fallbacks []string           `json:"fallbacks"`
	Limit     int                `json:"limit"`
	Total     int                `json:"total"`
}

// FeedbackRequest is the body of POST /api/v1/searches/{searchID}/feedback.
type FeedbackRequest struct {
	UserId  string `json:"user_id"`
	Helpful *bool  `json:"helpful"`
}

// FeedbackResponse is one stored feedback record.
type FeedbackResponse struct {
	Id        string    `json:"id"`
	SearchId  string    `json:"search_id"`
	UserId    string    `json:"user_id"`
	Helpful   bool      `json:"helpful"`
	ItemIds   []string  `json:"item_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackListResponse lists the feedback for one search.
type FeedbackListResponse struct {
	Items []FeedbackResponse `json:"items"`
	Total int                `json:"total"`
}

// BudgetStatus is the token budget state for a period.
type BudgetStatus struct {
	TokensLimit       int64            `json:"tokens_limit"`
	TokensUsed        int64            `json:"tokens_used"`
	TokensRemaining   int64            `json:"tokens_remaining"`
	TokensByOperation map[string]int64 `json:"tokens_by_operation,omitempty"`
	IsExhausted       bool             `json:"is_exhausted"`
	ResetsAt          *time.Time       `json:"resets_at,omitempty"`
}

// UsageResponse is the body of GET /api/v1/usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Provider      string       `json:"provider,omitempty"`
	PeriodStartAt time.Time    `json:"period_start_at"`
	PeriodEndAt   time.Time    `json:"period_end_at"`
	Budget        BudgetStatus `json:"budget"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
