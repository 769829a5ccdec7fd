package types

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// APIError is the errors payload of a failed response.
type APIError struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
