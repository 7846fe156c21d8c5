package chorus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/shillcollin/chorus/core"
	"github.com/shillcollin/chorus/obs"
)

// DefaultPerProviderTimeout bounds each provider call in a broadcast round.
const DefaultPerProviderTimeout = 60 * time.Second

// BroadcastResult aggregates one fan-out round across providers.
// Responses and Failures are keyed by canonical provider name; a provider
// appears in at most one of the two maps.
type BroadcastResult struct {
	// ID uniquely identifies this round for logging and correlation.
	ID string

	// Attempted lists the canonical provider names in request order.
	Attempted []string

	// Responses holds the reply of every provider that answered.
	Responses map[string]*Result

	// Failures records why the remaining providers produced no reply,
	// including providers skipped for missing credentials.
	Failures map[string]error

	// Elapsed is the wall-clock duration of the whole round.
	Elapsed time.Duration
}

// Response returns the reply text of one provider. The name may be any
// accepted alias.
func (r *BroadcastResult) Response(provider string) (string, bool) {
	canonical, err := CanonicalProvider(provider)
	if err != nil {
		return "", false
	}
	result, ok := r.Responses[canonical]
	if !ok {
		return "", false
	}
	return result.Text(), true
}

// Succeeded returns the providers that answered, in attempt order.
func (r *BroadcastResult) Succeeded() []string {
	names := make([]string, 0, len(r.Responses))
	for _, name := range r.Attempted {
		if _, ok := r.Responses[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Failed returns the providers that produced no reply, in attempt order.
func (r *BroadcastResult) Failed() []string {
	names := make([]string, 0, len(r.Failures))
	for _, name := range r.Attempted {
		if _, ok := r.Failures[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// BroadcastOption configures a single Broadcast call.
type BroadcastOption func(*broadcastOptions)

type broadcastOptions struct {
	maxParallel int
	timeout     time.Duration
	prompts     func(provider string) string
	stagger     time.Duration
	logger      *zerolog.Logger
}

// WithMaxParallel caps how many providers are queried concurrently.
// Zero or negative means no cap.
func WithMaxParallel(n int) BroadcastOption {
	return func(o *broadcastOptions) { o.maxParallel = n }
}

// WithPerProviderTimeout bounds each provider call. The default is
// DefaultPerProviderTimeout.
func WithPerProviderTimeout(d time.Duration) BroadcastOption {
	return func(o *broadcastOptions) { o.timeout = d }
}

// WithPrompts derives a per-provider prompt. Providers for which fn returns
// an empty string fall back to the shared prompt.
func WithPrompts(fn func(provider string) string) BroadcastOption {
	return func(o *broadcastOptions) { o.prompts = fn }
}

// WithStagger delays successive provider launches, spreading the round out
// to stay under per-account rate limits.
func WithStagger(d time.Duration) BroadcastOption {
	return func(o *broadcastOptions) { o.stagger = d }
}

// WithBroadcastLogger overrides the client logger for one round.
func WithBroadcastLogger(logger zerolog.Logger) BroadcastOption {
	return func(o *broadcastOptions) { o.logger = &logger }
}

// Broadcast sends one prompt to several providers concurrently and collects
// every reply that arrives. A provider that cannot answer (missing
// credential, failed connect, failed send) is recorded in Failures and
// never blocks the others.
//
// The returned error is non-nil only for unrecognized provider names or a
// canceled parent context; per-provider failures are data, not errors.
func (c *Client) Broadcast(ctx context.Context, prompt string, providers []string, opts ...BroadcastOption) (*BroadcastResult, error) {
	options := broadcastOptions{timeout: DefaultPerProviderTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	logger := c.logger
	if options.logger != nil {
		logger = *options.logger
	}

	attempted, err := c.resolveAll(providers)
	if err != nil {
		return nil, err
	}

	round := &BroadcastResult{
		ID:        uuid.NewString(),
		Attempted: attempted,
		Responses: make(map[string]*Result, len(attempted)),
		Failures:  make(map[string]error),
	}

	ctx, recorder := obs.StartRequest(ctx, "chorus.Broadcast",
		obs.OperationAttr("broadcast"),
		attribute.Int("ai.provider_count", len(attempted)),
	)

	logger.Debug().
		Str("round_id", round.ID).
		Strs("providers", attempted).
		Msg("broadcast start")

	start := time.Now()
	outcomes := make([]broadcastOutcome, len(attempted))

	var wg sync.WaitGroup
	maxParallel := options.maxParallel
	if maxParallel <= 0 || maxParallel > len(attempted) {
		maxParallel = len(attempted)
	}
	var sem chan struct{}
	if maxParallel > 0 {
		sem = make(chan struct{}, maxParallel)
	}

launch:
	for idx, name := range attempted {
		if options.stagger > 0 && idx > 0 {
			select {
			case <-time.After(options.stagger):
			case <-ctx.Done():
				for rest := idx; rest < len(attempted); rest++ {
					outcomes[rest] = broadcastOutcome{
						provider: attempted[rest],
						err:      &ProviderError{Provider: attempted[rest], Op: "Connect", Err: core.FromTransport(ctx.Err())},
					}
				}
				break launch
			}
		}

		wg.Add(1)
		go func(idx int, provider string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			p := prompt
			if options.prompts != nil {
				if custom := options.prompts(provider); custom != "" {
					p = custom
				}
			}
			outcomes[idx] = c.broadcastOne(ctx, provider, p, options.timeout, logger)
		}(idx, name)
	}

	wg.Wait()
	round.Elapsed = time.Since(start)

	var usage obs.UsageTokens
	for _, outcome := range outcomes {
		if outcome.err != nil {
			round.Failures[outcome.provider] = outcome.err
			continue
		}
		round.Responses[outcome.provider] = outcome.result
		usage.InputTokens += outcome.result.InputTokens()
		usage.OutputTokens += outcome.result.OutputTokens()
		usage.TotalTokens += outcome.result.TotalTokens()
	}

	recorder.AddAttributes(
		attribute.Int("ai.responses", len(round.Responses)),
		attribute.Int("ai.failures", len(round.Failures)),
	)
	recorder.End(ctx.Err(), usage)

	logger.Info().
		Str("round_id", round.ID).
		Int("responses", len(round.Responses)).
		Int("failures", len(round.Failures)).
		Dur("elapsed", round.Elapsed).
		Msg("broadcast complete")

	if err := ctx.Err(); err != nil {
		return round, err
	}
	return round, nil
}

type broadcastOutcome struct {
	provider string
	result   *Result
	err      error
}

// broadcastOne runs the full connector lifecycle for a single provider in a
// round. Every failure is returned as data; nothing escapes to the caller.
func (c *Client) broadcastOne(ctx context.Context, provider, prompt string, timeout time.Duration, logger zerolog.Logger) broadcastOutcome {
	connector, err := c.connectorFor(provider)
	if err != nil {
		return broadcastOutcome{provider: provider, err: err}
	}

	if err := connector.Connect(ctx); err != nil {
		logger.Debug().Err(err).Str("provider", provider).Msg("provider unavailable")
		return broadcastOutcome{provider: provider, err: &ProviderError{Provider: provider, Op: "Connect", Err: err}}
	}
	defer func() {
		if err := connector.Disconnect(); err != nil {
			logger.Debug().Err(err).Str("provider", provider).Msg("disconnect failed")
		}
	}()

	sendCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := core.Request{Messages: []core.Message{core.UserMessage(prompt)}}
	result, err := connector.SendMessage(sendCtx, req)
	if err != nil {
		logger.Debug().Err(err).Str("provider", provider).Msg("send failed")
		return broadcastOutcome{provider: provider, err: &ProviderError{Provider: provider, Op: "SendMessage", Err: err}}
	}

	logger.Debug().
		Str("provider", provider).
		Int64("latency_ms", result.LatencyMS).
		Msg("response received")

	return broadcastOutcome{provider: provider, result: newResult(result)}
}

// resolveAll canonicalizes provider names, preserving request order and
// dropping duplicates that resolve to the same provider.
func (c *Client) resolveAll(providers []string) ([]string, error) {
	attempted := make([]string, 0, len(providers))
	seen := make(map[string]bool, len(providers))
	for _, name := range providers {
		canonical, err := c.resolveProvider(name)
		if err != nil {
			return nil, err
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		attempted = append(attempted, canonical)
	}
	return attempted, nil
}
