// Package engine wires the quoting pipeline into a session-scoped state
// machine: raw inputs are debounced, gated on visibility and chain support,
// canonicalized into query args, polled, filtered for block validity, and
// resolved into a discrete trade state.
package engine

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openport-labs/swapquote/blocks"
	"github.com/openport-labs/swapquote/fetcher"
	"github.com/openport-labs/swapquote/quoting"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "engine").Logger()
}

// Inputs are the raw, possibly incomplete user inputs of one quote session.
type Inputs struct {
	CurrencyIn  *quoting.Currency
	CurrencyOut *quoting.Currency
	// AmountRaw is the raw integer amount of the specified side, "" when the
	// user has not typed one.
	AmountRaw string
	TradeType quoting.TradeType
	// EndpointOverride optionally redirects this session's requests.
	EndpointOverride string
}

// specified returns the amount bound to the currency of the specified side,
// nil when either part is missing.
func (in Inputs) specified() (*quoting.CurrencyAmount, error) {
	cur := in.CurrencyIn
	if in.TradeType == quoting.ExactOutput {
		cur = in.CurrencyOut
	}
	if cur == nil || in.AmountRaw == "" {
		return nil, nil
	}
	a, err := quoting.NewCurrencyAmount(*cur, in.AmountRaw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (in Inputs) other() *quoting.Currency {
	if in.TradeType == quoting.ExactOutput {
		return in.CurrencyIn
	}
	return in.CurrencyOut
}

// Snapshot is the consumer-facing view of the state machine at one instant.
type Snapshot struct {
	State      quoting.TradeState
	Trade      *quoting.Trade
	IsFetching bool
	IsSyncing  bool
}

// Config assembles an engine's collaborators.
type Config struct {
	Service        fetcher.QuoteService
	Oracle         blocks.Oracle
	Chains         quoting.ChainSet
	ProviderURL    string
	PollInterval   time.Duration
	DebounceWindow time.Duration
	// Transform overrides trade construction; nil means NewTradeFromQuote.
	Transform quoting.RouteTransform
}

// Engine is the per-session trade-quoting state machine. All derived state is
// recomputed from the fetcher signals on demand, so there is exactly one
// writer (the pipeline) and Snapshot never observes a half-applied update.
type Engine struct {
	cfg   Config
	fetch *fetcher.Fetcher
	deb   *fetcher.Debouncer[Inputs]

	mu      sync.Mutex
	settled Inputs
	visible bool
	primed  bool
	closed  bool
}

// New creates an idle engine. The first SetInputs propagates without the
// debounce delay.
func New(cfg Config) (*Engine, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("engine: quote service is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("engine: poll interval must be positive")
	}
	if cfg.DebounceWindow <= 0 {
		return nil, fmt.Errorf("engine: debounce window must be positive")
	}

	e := &Engine{cfg: cfg, visible: true}
	e.fetch = fetcher.New(cfg.Service, cfg.PollInterval, nil)
	e.deb = fetcher.NewDebouncer(cfg.DebounceWindow, e.onSettled)
	return e, nil
}

// SetInputs feeds new raw inputs into the debounce buffer.
//
// An unsupported chain is the one hard error of the pipeline: it is returned
// immediately and nothing is queued, so a caller can never poll its way into
// an unsupported network.
func (e *Engine) SetInputs(in Inputs) error {
	for _, c := range []*quoting.Currency{in.CurrencyIn, in.CurrencyOut} {
		if c != nil && !e.cfg.Chains.Supports(c.ChainID) {
			return fmt.Errorf("%w: %s", quoting.ErrUnsupportedChain, c.ChainID)
		}
	}
	if _, err := in.specified(); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("engine: session closed")
	}
	first := !e.primed
	e.primed = true
	e.mu.Unlock()

	if first {
		e.deb.Prime(in)
	} else {
		e.deb.Update(in)
	}
	return nil
}

// SetVisible flips the surface-visibility gate. Visibility changes apply
// immediately, outside the debounce window.
func (e *Engine) SetVisible(visible bool) {
	e.mu.Lock()
	if e.closed || e.visible == visible {
		e.mu.Unlock()
		return
	}
	e.visible = visible
	settled := e.settled
	e.mu.Unlock()

	e.apply(settled)
}

func (e *Engine) onSettled(in Inputs) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.settled = in
	e.mu.Unlock()

	e.apply(in)
}

// apply recomputes the query args from settled inputs and hands them to the
// fetcher, which de-duplicates on value equality.
func (e *Engine) apply(in Inputs) {
	e.mu.Lock()
	visible := e.visible
	e.mu.Unlock()

	amount, err := in.specified()
	if err != nil {
		// Validated in SetInputs; a parse failure here means the inputs were
		// mutated concurrently. Fail closed.
		log.Error().Err(err).Msg("settled amount no longer parses")
		e.fetch.SetArgs(quoting.SkipToken)
		return
	}

	gated := fetcher.Gate(amount, visible, e.cfg.Chains)

	args, err := quoting.BuildQueryArgs(gated, in.other(), in.TradeType, e.cfg.Chains, in.EndpointOverride, e.cfg.ProviderURL)
	if err != nil {
		log.Error().Err(err).Msg("query args rejected after input validation")
		e.fetch.SetArgs(quoting.SkipToken)
		return
	}
	e.fetch.SetArgs(args)
}

// Snapshot derives the current trade state. Pure read: it recomputes the
// resolution from the fetcher signals and never mutates them.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	in := e.settled
	visible := e.visible
	e.mu.Unlock()

	sig := e.fetch.Signals()

	// The displayed result is the latest successful one, dropped if its
	// block is no longer canonical.
	displayed := blocks.Filter(sig.Data, e.cfg.Oracle)

	// Loading only while the first fetch has nothing older to show; a
	// pending refetch for a changed key keeps showing the previous result.
	loading := sig.IsFetching && sig.Data == nil
	syncing := sig.Data != nil && sig.CurrentData == nil && !sig.IsError && !sig.Args.IsSkip()

	amount, _ := in.specified()
	amount = fetcher.Gate(amount, visible, e.cfg.Chains)

	state, trade := quoting.Resolve(quoting.ResolveInput{
		CurrencyIn:  in.CurrencyIn,
		CurrencyOut: in.CurrencyOut,
		Amount:      amount,
		TradeType:   in.TradeType,
		Args:        sig.Args,
		IsFetching:  loading,
		IsError:     sig.IsError,
		Result:      displayed,
		IsSyncing:   syncing,
		Transform:   e.cfg.Transform,
	})

	return Snapshot{
		State:      state,
		Trade:      trade,
		IsFetching: sig.IsFetching,
		IsSyncing:  syncing,
	}
}

// Close stops the debouncer and any running poll loop.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.deb.Close()
	e.fetch.Stop()
}
