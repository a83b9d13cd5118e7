// Package fetcher contains the request side of the quoting pipeline: the
// debounce buffer, the visibility gate, and the polling quote fetcher with
// key-based cancellation and stale-response discard.
package fetcher

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openport-labs/swapquote/metrics"
	"github.com/openport-labs/swapquote/quoting"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "fetcher").Logger()
}

// QuoteService issues a single quote request. Implementations must be safe
// for repeated identical calls and must honor context cancellation.
type QuoteService interface {
	FetchQuote(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error)
}

// Signals is the observable state of the fetcher at one instant.
type Signals struct {
	// IsFetching is true while a request is in flight for the active args.
	IsFetching bool
	// IsError is true when the most recent attempt for the active args failed.
	IsError bool
	// Data is the most recently successfully fetched result, possibly for a
	// superseded request.
	Data *quoting.QuoteResult
	// CurrentData is the result belonging to the active args, nil while a
	// newer request is still pending. Data != CurrentData is the definition
	// of syncing.
	CurrentData *quoting.QuoteResult
	// Args is the active request descriptor.
	Args quoting.QueryArgs
}

type fetched struct {
	args   quoting.QueryArgs
	result *quoting.QuoteResult
}

// Fetcher polls the quoting service while its QueryArgs stay value-equal.
// Changing the args cancels the running poll loop, starts a fresh one, and
// guarantees that responses of the superseded loop are never applied: every
// request carries the tag of the loop that issued it, and a completed
// response is dropped unless its tag still matches.
type Fetcher struct {
	svc      QuoteService
	interval time.Duration
	onUpdate func()

	mu       sync.Mutex
	args     quoting.QueryArgs
	tag      uuid.UUID
	cancel   context.CancelFunc
	inFlight bool
	fetchErr bool
	last     *fetched
}

// New creates an idle fetcher. onUpdate, when non-nil, is called after every
// signal change, outside the fetcher's lock.
func New(svc QuoteService, interval time.Duration, onUpdate func()) *Fetcher {
	return &Fetcher{
		svc:      svc,
		interval: interval,
		onUpdate: onUpdate,
		args:     quoting.SkipToken,
	}
}

// SetArgs replaces the active request. Equal args are a no-op so that a
// stable key keeps its polling cadence. The skip sentinel stops polling
// without clearing the last successful result.
func (f *Fetcher) SetArgs(args quoting.QueryArgs) {
	f.mu.Lock()
	if args == f.args {
		f.mu.Unlock()
		return
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.args = args
	f.tag = uuid.New()
	f.inFlight = false
	f.fetchErr = false

	if args.IsSkip() {
		f.mu.Unlock()
		f.notify()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	tag := f.tag
	f.mu.Unlock()

	log.Debug().Stringer("args", args).Msg("starting poll loop")
	go f.loop(ctx, args, tag)
}

// Stop cancels any running poll loop.
func (f *Fetcher) Stop() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.mu.Unlock()
}

// Signals returns the current observable state.
func (f *Fetcher) Signals() Signals {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Signals{
		IsFetching: f.inFlight,
		IsError:    f.fetchErr,
		Args:       f.args,
	}
	if f.last != nil {
		s.Data = f.last.result
		if f.last.args == f.args {
			s.CurrentData = f.last.result
		}
	}
	return s
}

func (f *Fetcher) loop(ctx context.Context, args quoting.QueryArgs, tag uuid.UUID) {
	f.fetchOnce(ctx, args, tag)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.fetchOnce(ctx, args, tag)
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, args quoting.QueryArgs, tag uuid.UUID) {
	f.mu.Lock()
	if f.tag != tag {
		f.mu.Unlock()
		return
	}
	f.inFlight = true
	f.mu.Unlock()
	f.notify()

	result, err := f.svc.FetchQuote(ctx, args)

	f.mu.Lock()
	if f.tag != tag {
		// A newer request became active while this one was in flight; its
		// result must never be merged into state.
		f.mu.Unlock()
		metrics.QuoteFetches.WithLabelValues("superseded").Inc()
		log.Debug().Stringer("args", args).Msg("superseded response dropped")
		return
	}
	f.inFlight = false

	switch {
	case err != nil && ctx.Err() != nil:
		// Cancelled mid-flight; the new loop owns the signals now.
		f.mu.Unlock()
		return
	case err != nil:
		f.fetchErr = true
		f.mu.Unlock()
		metrics.QuoteFetches.WithLabelValues("error").Inc()
		log.Warn().Err(err).Stringer("args", args).Msg("quote fetch failed")
	default:
		f.fetchErr = false
		f.last = &fetched{args: args, result: result}
		f.mu.Unlock()
		metrics.QuoteFetches.WithLabelValues("success").Inc()
	}
	f.notify()
}

func (f *Fetcher) notify() {
	if f.onUpdate != nil {
		f.onUpdate()
	}
}
