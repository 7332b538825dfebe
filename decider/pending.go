package decider

import (
	"strings"

	"github.com/zapdesk/zapdesk/core"
)

// PendingResolver decides whether a message plausibly answers a pending
// action. The rule is agent-specific: a sales confirmation accepts "sim", an
// option picker accepts one of its option labels. A message the resolver
// rejects falls through to fresh intent classification; free-text answers do
// not automatically resolve the action.
type PendingResolver interface {
	Resolves(action core.PendingAction, message string) bool
}

// PendingResolverFunc adapts an ordinary function to a PendingResolver.
type PendingResolverFunc func(action core.PendingAction, message string) bool

// Resolves implements PendingResolver.
func (f PendingResolverFunc) Resolves(action core.PendingAction, message string) bool {
	return f(action, message)
}

var affirmations = map[string]bool{
	"sim": true, "s": true, "claro": true, "pode": true, "confirmo": true,
	"confirmar": true, "ok": true, "isso": true,
	"yes": true, "y": true, "sure": true, "confirm": true, "yep": true,
}

var negations = map[string]bool{
	"não": true, "nao": true, "n": true, "cancela": true, "cancelar": true,
	"no": true, "nope": true, "cancel": true,
}

// DefaultPendingResolver accepts short yes/no style confirmations (Portuguese
// and English) and, when the action enumerates options, an exact
// case-insensitive option label. Anything else is treated as not answering.
type DefaultPendingResolver struct{}

// Resolves implements PendingResolver.
func (DefaultPendingResolver) Resolves(action core.PendingAction, message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.Trim(normalized, ".,!?")

	if affirmations[normalized] || negations[normalized] {
		return true
	}
	for _, opt := range action.Options {
		if strings.EqualFold(strings.TrimSpace(opt), normalized) {
			return true
		}
	}
	return false
}
