package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openport-labs/swapquote/engine"
	"github.com/openport-labs/swapquote/quoting"
	"github.com/openport-labs/swapquote/registry"
)

type fakeQuoteService struct{}

func (fakeQuoteService) FetchQuote(ctx context.Context, args quoting.QueryArgs) (*quoting.QuoteResult, error) {
	return &quoting.QuoteResult{
		Amount:      "95000000",
		BlockNumber: 1000,
		GasUSD:      "0.42",
		Route: []quoting.RouteHop{
			{PoolID: "1", TokenInDenom: args.TokenInDenom, TokenOutDenom: args.TokenOutDenom},
		},
	}, nil
}

type alwaysValidOracle struct{}

func (alwaysValidOracle) IsValidBlock(uint64) bool { return true }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tokens, err := registry.Load("testdata/tokens")
	require.NoError(t, err)

	chains := quoting.NewChainSet("cosmoshub-4", "osmosis-1")
	manager := engine.NewManager(func() (*engine.Engine, error) {
		return engine.New(engine.Config{
			Service:        fakeQuoteService{},
			Oracle:         alwaysValidOracle{},
			Chains:         chains,
			ProviderURL:    "http://quotes.invalid",
			PollInterval:   time.Hour,
			DebounceWindow: 10 * time.Millisecond,
		})
	})
	t.Cleanup(manager.CloseAll)

	cfg := DefaultServerConfig()
	cfg.OTelConfig = nil
	cfg.EnableMetrics = false

	srv, err := NewServer(context.Background(), cfg, manager, tokens)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/v1/sessions/"+id+"/inputs", inputsRequest{
		CurrencyIn:  &tokenRef{ChainID: "cosmoshub-4", Denom: "uatom"},
		CurrencyOut: &tokenRef{ChainID: "osmosis-1", Denom: "uosmo"},
		Amount:      "100000000",
		TradeType:   "exact_input",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Poll the snapshot until the debounced fetch lands.
	deadline := time.Now().Add(3 * time.Second)
	var snap snapshotResponse
	for {
		r, err := http.Get(ts.URL + "/v1/sessions/" + id)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, r.StatusCode)
		require.Equal(t, "no-store, no-cache, must-revalidate", r.Header.Get("Cache-Control"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&snap))
		r.Body.Close()
		if snap.State == "valid" || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, "valid", snap.State)
	require.NotNil(t, snap.Trade)
	require.Equal(t, "100000000", snap.Trade.Input.Amount)
	require.Equal(t, "95000000", snap.Trade.Output.Amount)
	require.Equal(t, "95", snap.Trade.Output.Display)
	require.Len(t, snap.Trade.Route, 1)

	del, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/sessions/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(del)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Gone after delete.
	r, err := http.Get(ts.URL + "/v1/sessions/" + id)
	require.NoError(t, err)
	r.Body.Close()
	require.Equal(t, http.StatusNotFound, r.StatusCode)
}

func TestCreateSessionWithInputs(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/sessions", inputsRequest{
		CurrencyIn:  &tokenRef{ChainID: "cosmoshub-4", Denom: "uatom"},
		CurrencyOut: &tokenRef{ChainID: "osmosis-1", Denom: "uosmo"},
		Amount:      "100000000",
		TradeType:   "exact_input",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
}

func TestCreateSessionRejectsUnsupportedChain(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/v1/sessions", inputsRequest{
		CurrencyIn: &tokenRef{ChainID: "juno-1", Denom: "ujuno"},
		Amount:     "100",
		TradeType:  "exact_input",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetInputsUnsupportedChain(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/v1/sessions/"+id+"/inputs", inputsRequest{
		CurrencyIn:  &tokenRef{ChainID: "juno-1", Denom: "ujuno"},
		CurrencyOut: &tokenRef{ChainID: "osmosis-1", Denom: "uosmo"},
		Amount:      "100",
		TradeType:   "exact_input",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body.Message, "unsupported chain")
}

func TestSetInputsUnknownToken(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/v1/sessions/"+id+"/inputs", inputsRequest{
		CurrencyIn: &tokenRef{ChainID: "cosmoshub-4", Denom: "unotreal"},
		Amount:     "100",
		TradeType:  "exact_input",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetInputsBadTradeType(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/v1/sessions/"+id+"/inputs", inputsRequest{
		TradeType: "market",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVisibilityToggle(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/v1/sessions/"+id+"/visibility", visibilityRequest{Visible: false})
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSessionNotFound(t *testing.T) {
	ts := newTestServer(t)

	r, err := http.Get(ts.URL + "/v1/sessions/7f2c8e44-1111-2222-3333-444455556666")
	require.NoError(t, err)
	r.Body.Close()
	require.Equal(t, http.StatusNotFound, r.StatusCode)

	// Not a uuid at all.
	r, err = http.Get(ts.URL + "/v1/sessions/not-a-uuid")
	require.NoError(t, err)
	r.Body.Close()
	require.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/server/health", "/server/ready"} {
		r, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		r.Body.Close()
		require.Equal(t, http.StatusOK, r.StatusCode)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}
}
