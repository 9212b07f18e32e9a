package api

// Error body types. Clients switch on these.
const (
	ErrTypeGeneric      = "generic_error"
	ErrTypeSession      = "session_error"
	ErrTypeInvalidToken = "invalid_token"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// SessionGrantResponse answers a successful /mksession.
type SessionGrantResponse struct {
	SessionID string `json:"session_id"`
	Expiry    int64  `json:"expiry"` // Unix milliseconds
}

type WhoAmIResponse struct {
	GitHubID          int64  `json:"github_id"`
	GitHubLogin       string `json:"github_login"`
	GitHubDisplayName string `json:"github_display_name"`
	TokenID           string `json:"token_id"`
	Expiry            int64  `json:"expiry"` // Unix milliseconds
}
