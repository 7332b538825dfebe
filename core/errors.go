package core

import "errors"

// Stable error kinds surfaced by the engine. Callers classify failures with
// errors.Is; everything else wrapped around these kinds is diagnostic detail.
var (
	// ErrInvalidInput rejects missing or malformed identifiers/messages
	// before any state is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTenantNotFound reports an unknown tenant id.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrConversationNotFound reports an unknown conversation id within the
	// tenant's scope.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConversationClosed reports a message sent to a closed conversation.
	ErrConversationClosed = errors.New("conversation closed")

	// ErrNoProviderConfigured means no language-model provider has valid
	// credentials and none was explicitly configured.
	ErrNoProviderConfigured = errors.New("no model provider configured")

	// ErrProviderUnavailable is surfaced after retries and fallbacks across
	// all providers are exhausted.
	ErrProviderUnavailable = errors.New("model provider unavailable")

	// ErrTimeout bounds the whole message-processing call.
	ErrTimeout = errors.New("processing timed out")

	// ErrPersistence marks a storage failure. It is kept distinct from
	// generation failures so a caller can re-submit without ambiguity about
	// whether the model call succeeded.
	ErrPersistence = errors.New("persistence failure")
)
