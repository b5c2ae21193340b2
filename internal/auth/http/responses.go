package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/oriento/auth/pkg/httpx"
)

// apiError is the JSON error shape every failure responds with.
// It implements the error interface and knows how to write itself.
type apiError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is a stable machine-readable error code
	Code string `json:"error"`

	// Message is a human-readable description of the error
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes this apiError to an HTTP response writer.
func (e *apiError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   e.Code,
		"message": e.Message,
	})
}

var (
	errInvalidRequest = &apiError{
		StatusCode: http.StatusBadRequest,
		Code:       "invalid_request",
		Message:    "the request is malformed or missing required parameters",
	}

	// errInvalidCredentials deliberately says nothing about which part of
	// the credentials was wrong.
	errInvalidCredentials = &apiError{
		StatusCode: http.StatusUnauthorized,
		Code:       "invalid_credentials",
		Message:    "invalid credentials",
	}

	errInvalidSession = &apiError{
		StatusCode: http.StatusUnauthorized,
		Code:       "invalid_session",
		Message:    "session is invalid or expired",
	}

	errInvalidToken = &apiError{
		StatusCode: http.StatusUnauthorized,
		Code:       "invalid_token",
		Message:    "invalid or missing access token",
	}

	errAlreadyExists = &apiError{
		StatusCode: http.StatusConflict,
		Code:       "already_exists",
		Message:    "an account with that identifier already exists",
	}

	errServerError = &apiError{
		StatusCode: http.StatusInternalServerError,
		Code:       "server_error",
		Message:    "an unexpected error occurred",
	}

	errServiceUnavailable = &apiError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       "service_unavailable",
		Message:    "a backing service is unavailable, try again shortly",
	}
)

// tokenResponse is the body of a successful login or refresh.
type tokenResponse struct {
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
	TokenType    string             `json:"tokenType"`
	ExpiresIn    int64              `json:"expiresIn"`
	Principal    *principalResponse `json:"principal,omitempty"`
}

// principalResponse is the public view of a principal.
type principalResponse struct {
	ID        string  `json:"id"`
	Email     *string `json:"email,omitempty"`
	TaxID     *string `json:"taxId,omitempty"`
	Name      string  `json:"name"`
	CreatedAt string  `json:"createdAt"`
}

// healthResponse is shared by the livez and readyz probes.
type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

type healthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
