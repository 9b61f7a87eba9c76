package generation

import "errors"

// Common errors returned by generation clients
var (
	// ErrTransport is returned when the generation service is unreachable,
	// times out, or rejects the request. It surfaces as a job failure; no
	// automatic retry is attempted.
	ErrTransport = errors.New("generation service transport failure")

	// ErrEmptyResponse is returned when the service answers with no usable
	// text at all.
	ErrEmptyResponse = errors.New("empty response from generation service")

	// ErrContentBlocked is returned when the service refuses the request on
	// safety grounds.
	ErrContentBlocked = errors.New("content blocked by generation service safety filters")

	// ErrInvalidHistory is a caller error: a conversation history must be an
	// ordered list of user/assistant turns ending with a user turn.
	ErrInvalidHistory = errors.New("conversation history must end with a user turn")

	// ErrInvalidConfig is returned when the client configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generation client configuration")
)
