package types

// SuccessEnvelope is the JSON body wrapping every 2xx response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a failure: a stable code plus a message
// safe to show end users.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the JSON body wrapping every error response.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
