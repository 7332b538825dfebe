// Package invoker drives language-model generation against an ordered list
// of provider adapters: bounded exponential-backoff retries for transient
// failures, immediate surfacing of fatal ones, and failover to the next
// provider once the current one is exhausted. Every attempt is recorded for
// diagnostics.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/zapdesk/zapdesk/core"
	"github.com/zapdesk/zapdesk/logging"
	"github.com/zapdesk/zapdesk/model"
)

// Options tunes retry and timeout behavior.
type Options struct {
	// MaxAttempts bounds calls per provider (first try included).
	MaxAttempts uint
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the growing delay between retries.
	MaxBackoff time.Duration
	// AttemptTimeout bounds each individual provider call. Exceeding it
	// counts as a transient failure.
	AttemptTimeout time.Duration
	Logger         logging.Logger
}

// Invoker fans a request over its providers in priority order. The provider
// list is fixed at construction (selected once at startup from configuration,
// not re-derived per call).
type Invoker struct {
	providers []model.Provider
	opts      Options
}

// New constructs an Invoker over the given priority-ordered providers.
func New(providers []model.Provider, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		AttemptTimeout: 30 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Invoker{providers: providers, opts: opts}
}

// Attempt records one provider call for diagnostics.
type Attempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"err,omitempty"`
	Fatal    bool          `json:"fatal,omitempty"`
}

// Result is the outcome of an invocation plus the full attempt trail
// (including failed attempts on earlier providers). On failure Response is
// nil but the trail is still populated, so callers always have the
// diagnostics.
type Result struct {
	Response *model.Response
	Attempts []Attempt
}

// Invoke generates a completion. Error contract:
//   - core.ErrNoProviderConfigured when the provider list is empty,
//   - the classified provider error, immediately, on a fatal failure,
//   - core.ErrTimeout when ctx expires before any provider succeeds,
//   - core.ErrProviderUnavailable after all providers are exhausted.
//
// Retries never extend past ctx's deadline. On every error except the
// no-provider case the returned Result is non-nil and carries the attempt
// trail recorded so far.
func (inv *Invoker) Invoke(ctx context.Context, req model.Request) (*Result, error) {
	if len(inv.providers) == 0 {
		return nil, core.ErrNoProviderConfigured
	}

	res := &Result{}
	var lastErr error

	for _, p := range inv.providers {
		info := p.Info()
		resp, err := inv.invokeProvider(ctx, p, req, res)
		if err == nil {
			res.Response = resp
			inv.opts.Logger.Debug("model call succeeded",
				"provider", info.Provider, "model", resp.Model, "attempts", len(res.Attempts))
			return res, nil
		}
		if model.IsFatal(err) {
			inv.opts.Logger.Error("fatal provider error, not retrying",
				"provider", info.Provider, "error", err)
			return res, err
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%w: %v", core.ErrTimeout, err)
		}
		inv.opts.Logger.Warn("provider exhausted, failing over",
			"provider", info.Provider, "error", err)
		lastErr = err
	}

	return res, fmt.Errorf("%w: %v", core.ErrProviderUnavailable, lastErr)
}

// invokeProvider retries a single provider with exponential backoff until it
// succeeds, fails fatally, runs out of attempts, or ctx is done.
func (inv *Invoker) invokeProvider(ctx context.Context, p model.Provider, req model.Request, res *Result) (*model.Response, error) {
	info := p.Info()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = inv.opts.InitialBackoff
	bo.MaxInterval = inv.opts.MaxBackoff

	operation := func() (*model.Response, error) {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if inv.opts.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, inv.opts.AttemptTimeout)
			defer cancel()
		}

		start := time.Now()
		resp, err := p.Generate(attemptCtx, req)
		attempt := Attempt{
			Provider: info.Provider,
			Model:    info.Name,
			Duration: time.Since(start),
		}
		if err != nil {
			attempt.Err = err.Error()
			attempt.Fatal = model.IsFatal(err)
		}
		res.Attempts = append(res.Attempts, attempt)

		if err == nil {
			return resp, nil
		}
		// A per-attempt deadline that fired is transient; the overall ctx
		// expiring is not worth retrying against.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = model.Transient(err)
		}
		if model.IsFatal(err) {
			return nil, backoff.Permanent(err)
		}
		inv.opts.Logger.Debug("transient provider error",
			"provider", info.Provider, "error", err)
		return nil, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(inv.opts.MaxAttempts),
	)
}
