// Package model defines the provider abstraction the invoker drives: a
// normalized request/response pair and a small Provider interface implemented
// by vendor adapters (model/anthropic, model/openai) and by the deterministic
// mock used in tests.
package model

import (
	"context"
	"errors"
)

// Role labels one message of the replayed history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of replayed conversation history.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Params are the tunable generation options carried on a request. Zero
// values defer to the adapter's defaults.
type Params struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// Request captures the normalized model input produced by the prompt
// composer: system instructions plus ordered history ending with the new
// user message.
type Request struct {
	Instructions string    `json:"instructions"`
	Messages     []Message `json:"messages"`
	Params       Params    `json:"params"`
}

// TokenUsage captures token accounting for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion returned by a provider.
type Response struct {
	Text         string      `json:"text"`
	Model        string      `json:"model"`
	Provider     string      `json:"provider"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`     // configured model identifier
	Provider string `json:"provider"` // "anthropic", "openai", "mock", ...
}

// Provider is the capability interface one language-model vendor adapter
// implements. Generate blocks until completion or ctx is done.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Info() Info
}

// ErrorClass separates failures the invoker may retry from those it must
// surface immediately.
type ErrorClass int

const (
	// ClassTransient covers network faults, timeouts and rate limits.
	ClassTransient ErrorClass = iota
	// ClassFatal covers authentication and invalid-request failures.
	ClassFatal
)

// classifiedError wraps a provider failure with its retry class.
type classifiedError struct {
	err   error
	class ErrorClass
}

func (c *classifiedError) Error() string { return c.err.Error() }
func (c *classifiedError) Unwrap() error { return c.err }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTransient}
}

// Fatal marks err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassFatal}
}

// Classify returns the retry class of a provider error. Unclassified errors
// are treated as transient: retrying an unknown fault is cheaper than
// dropping a recoverable reply.
func Classify(err error) ErrorClass {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class
	}
	return ClassTransient
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool { return err != nil && Classify(err) == ClassFatal }

// ClassifyStatus maps an HTTP status code from a vendor API to a retry
// class: auth and request-shape errors are fatal, everything else (429, 5xx,
// transport-level zero) is transient.
func ClassifyStatus(status int) ErrorClass {
	switch status {
	case 400, 401, 403, 404, 413, 422:
		return ClassFatal
	default:
		return ClassTransient
	}
}
