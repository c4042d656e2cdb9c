package types

// SuccessEnvelope wraps every successful onboarding response.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a coded error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// WebhookAck is the bare acknowledgement payment processors expect back.
// It is written without the success envelope.
type WebhookAck struct {
	Received bool `json:"received"`
}
