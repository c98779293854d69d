// Package types holds the JSON envelopes shared by every API response.
package types

// SuccessEnvelope wraps a successful payload under a data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a coded error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError for error responses.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
