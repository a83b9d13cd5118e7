package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openport-labs/swapquote/engine"
	"github.com/openport-labs/swapquote/quoting"
)

var (
	atom = quoting.Currency{ChainID: "cosmoshub-4", Denom: "uatom", Symbol: "ATOM", Decimals: 6}
	osmo = quoting.Currency{ChainID: "osmosis-1", Denom: "uosmo", Symbol: "OSMO", Decimals: 6}
	juno = quoting.Currency{ChainID: "juno-1", Denom: "ujuno", Symbol: "JUNO", Decimals: 6}

	testChains = quoting.NewChainSet("cosmoshub-4", "osmosis-1")
)

type fakeOracle struct{ valid bool }

func (o *fakeOracle) IsValidBlock(uint64) bool { return o.valid }

type scriptedService struct {
	mu      sync.Mutex
	calls   int
	respond func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error)
}

func (s *scriptedService) FetchQuote(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
	s.mu.Lock()
	s.calls++
	respond := s.respond
	s.mu.Unlock()
	return respond(ctx, args)
}

func (s *scriptedService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func okQuote() *quoting.QuoteResult {
	return &quoting.QuoteResult{
		Amount:      "95000000",
		BlockNumber: 1000,
		GasUSD:      "0.42",
		Route:       []quoting.RouteHop{{PoolID: "1", TokenInDenom: "uatom", TokenOutDenom: "uosmo"}},
	}
}

func newEngine(t *testing.T, svc *scriptedService, oracle *fakeOracle) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Config{
		Service:        svc,
		Oracle:         oracle,
		Chains:         testChains,
		ProviderURL:    "http://provider",
		PollInterval:   time.Hour,
		DebounceWindow: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func inputs(amount string) engine.Inputs {
	in, out := atom, osmo
	return engine.Inputs{
		CurrencyIn:  &in,
		CurrencyOut: &out,
		AmountRaw:   amount,
		TradeType:   quoting.ExactInput,
	}
}

func waitState(t *testing.T, e *engine.Engine, want quoting.TradeState) engine.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	var snap engine.Snapshot
	for time.Now().Before(deadline) {
		snap = e.Snapshot()
		if snap.State == want {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state never became %s, last was %s", want, snap.State)
	return snap
}

func TestEngineResolvesValidTrade(t *testing.T) {
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	require.NoError(t, e.SetInputs(inputs("100000000")))

	snap := waitState(t, e, quoting.TradeStateValid)
	require.NotNil(t, snap.Trade)
	require.Equal(t, "100000000", snap.Trade.Input.Raw.String())
	require.Equal(t, "95000000", snap.Trade.Output.Raw.String())
	require.False(t, snap.IsSyncing)
}

func TestEngineLoadingOnFirstFetch(t *testing.T) {
	release := make(chan struct{})
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return okQuote(), nil
		}
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	require.NoError(t, e.SetInputs(inputs("100000000")))
	waitState(t, e, quoting.TradeStateLoading)

	close(release)
	waitState(t, e, quoting.TradeStateValid)
}

func TestEngineSyncingOnKeyChange(t *testing.T) {
	release := make(chan struct{})
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		if args.Amount == "200000000" {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
			}
		}
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	require.NoError(t, e.SetInputs(inputs("100000000")))
	waitState(t, e, quoting.TradeStateValid)

	// Changing the key while a result is on screen must show SYNCING with
	// the previous trade, never flash back to LOADING.
	require.NoError(t, e.SetInputs(inputs("200000000")))
	snap := waitState(t, e, quoting.TradeStateSyncing)
	require.NotNil(t, snap.Trade)

	close(release)
	snap = waitState(t, e, quoting.TradeStateValid)
	require.NotNil(t, snap.Trade)
}

func TestEngineStaleBlockDowngradesToNoRoute(t *testing.T) {
	oracle := &fakeOracle{valid: true}
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, oracle)

	require.NoError(t, e.SetInputs(inputs("100000000")))
	waitState(t, e, quoting.TradeStateValid)

	// The oracle later invalidates the quoted block: the successful fetch
	// no longer counts.
	oracle.valid = false
	snap := e.Snapshot()
	require.Equal(t, quoting.TradeStateNoRouteFound, snap.State)
	require.Nil(t, snap.Trade)
}

func TestEngineZeroAmountNeverFetches(t *testing.T) {
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	require.NoError(t, e.SetInputs(inputs("0")))
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 0, svc.callCount())
	require.Equal(t, quoting.TradeStateNoRouteFound, e.Snapshot().State)
}

func TestEngineSameCurrencyNeverFetches(t *testing.T) {
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	same := atom
	require.NoError(t, e.SetInputs(engine.Inputs{
		CurrencyIn:  &atom,
		CurrencyOut: &same,
		AmountRaw:   "100000000",
		TradeType:   quoting.ExactInput,
	}))
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, 0, svc.callCount())
}

func TestEngineMissingCurrencyIsInvalid(t *testing.T) {
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	require.NoError(t, e.SetInputs(engine.Inputs{
		CurrencyIn: &atom,
		AmountRaw:  "100000000",
		TradeType:  quoting.ExactInput,
	}))
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, quoting.TradeStateInvalid, e.Snapshot().State)
	require.Equal(t, 0, svc.callCount())
}

func TestEngineUnsupportedChainIsHardError(t *testing.T) {
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	err := e.SetInputs(engine.Inputs{
		CurrencyIn:  &atom,
		CurrencyOut: &juno,
		AmountRaw:   "100000000",
		TradeType:   quoting.ExactInput,
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, quoting.ErrUnsupportedChain))
	require.Equal(t, 0, svc.callCount())
}

func TestEngineHiddenSurfaceSuppressesPolling(t *testing.T) {
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	require.NoError(t, e.SetInputs(inputs("100000000")))
	waitState(t, e, quoting.TradeStateValid)
	calls := svc.callCount()

	e.SetVisible(false)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, calls, svc.callCount())

	// Becoming visible again resumes with a fresh fetch.
	e.SetVisible(true)
	waitState(t, e, quoting.TradeStateValid)
	require.Greater(t, svc.callCount(), calls)
}

func TestEngineDebouncesRapidEdits(t *testing.T) {
	svc := &scriptedService{respond: func(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
		return okQuote(), nil
	}}
	e := newEngine(t, svc, &fakeOracle{valid: true})

	// Prime with the first value, then edit rapidly: only the settled edit
	// may reach the fetcher.
	require.NoError(t, e.SetInputs(inputs("1")))
	for _, raw := range []string{"10", "100", "1000", "10000"} {
		require.NoError(t, e.SetInputs(inputs(raw)))
		time.Sleep(2 * time.Millisecond)
	}

	waitState(t, e, quoting.TradeStateValid)
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, svc.callCount(), 2, "one primed fetch plus one settled fetch")
}
