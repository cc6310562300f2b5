// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import "net/http"

// Envelope wraps every JSON response. Code mirrors the HTTP status; Error
// carries the machine-readable error code on failures.
type Envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Data    any            `json:"data,omitempty"`
}

// Success wraps data in a 200 envelope.
func Success(data any) Envelope {
	return Envelope{Code: http.StatusOK, Message: "success", Data: data}
}

// IDResponse is returned by create.
type IDResponse struct {
	ID any `json:"id"`
}

// AffectedResponse is returned by update and deleteMany.
type AffectedResponse struct {
	Affected int64 `json:"affected"`
}

// DeleteManyRequest is the body of a batch delete.
type DeleteManyRequest struct {
	IDs []any `json:"ids" binding:"required,min=1"`
}
