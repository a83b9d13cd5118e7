// Package blocks provides the block-freshness oracle and the validity filter
// that discards quotes computed against superseded chain state.
package blocks

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openport-labs/swapquote/metrics"
	"github.com/openport-labs/swapquote/quoting"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "blocks").Logger()
}

// Oracle judges whether a block number is still considered canonical.
type Oracle interface {
	IsValidBlock(block uint64) bool
}

// Filter drops a quote whose block the oracle no longer considers valid.
// This is orthogonal to fetch success: a successful fetch against a
// reorganized block still comes back nil here.
func Filter(result *quoting.QuoteResult, oracle Oracle) *quoting.QuoteResult {
	if result == nil {
		return nil
	}
	if oracle != nil && !oracle.IsValidBlock(result.BlockNumber) {
		metrics.StaleBlocksRejected.Inc()
		log.Debug().
			Uint64("block", result.BlockNumber).
			Msg("quote rejected, block no longer valid")
		return nil
	}
	return result
}

// HeadSource reports the most recent block number known to the quoting
// provider.
type HeadSource interface {
	LatestBlock(ctx context.Context) (uint64, error)
}

// HeadTracker is an Oracle backed by a HeadSource. It polls the source on a
// fixed interval and accepts blocks within maxLag of the observed head.
type HeadTracker struct {
	source   HeadSource
	maxLag   uint64
	interval time.Duration

	mu   sync.RWMutex
	head uint64

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	runMu     sync.Mutex
}

// NewHeadTracker creates a tracker that tolerates quotes up to maxLag blocks
// behind the head.
func NewHeadTracker(source HeadSource, maxLag uint64, interval time.Duration) *HeadTracker {
	return &HeadTracker{
		source:   source,
		maxLag:   maxLag,
		interval: interval,
	}
}

// IsValidBlock reports whether block is within maxLag of the tracked head.
// Before the first head observation the tracker cannot judge staleness and
// lets quotes through.
func (t *HeadTracker) IsValidBlock(block uint64) bool {
	t.mu.RLock()
	head := t.head
	t.mu.RUnlock()

	if head == 0 {
		return true
	}
	return block+t.maxLag >= head
}

// SetHead records a newer head observed out of band, e.g. from a quote
// response itself. Older values are ignored.
func (t *HeadTracker) SetHead(head uint64) {
	t.mu.Lock()
	if head > t.head {
		t.head = head
	}
	t.mu.Unlock()
}

// Start launches the polling goroutine. Safe to call once.
func (t *HeadTracker) Start() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.stoppedCh = make(chan struct{})

	go func() {
		defer close(t.stoppedCh)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), t.interval)
				head, err := t.source.LatestBlock(ctx)
				cancel()
				if err != nil {
					log.Warn().Err(err).Msg("head poll failed")
					continue
				}
				t.SetHead(head)
			}
		}
	}()

	log.Info().Dur("interval", t.interval).Uint64("max_lag", t.maxLag).Msg("head tracker started")
}

// Stop terminates the polling goroutine and waits for it to exit.
func (t *HeadTracker) Stop() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stopCh)
	<-t.stoppedCh
}
