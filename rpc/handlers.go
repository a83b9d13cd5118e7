package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openport-labs/swapquote/engine"
	"github.com/openport-labs/swapquote/quoting"
	"github.com/openport-labs/swapquote/registry"
)

// sessionHandlers exposes quote sessions over JSON.
type sessionHandlers struct {
	manager  *engine.Manager
	registry *registry.Registry
}

type errorResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

type tokenRef struct {
	ChainID string `json:"chain_id"`
	Denom   string `json:"denom"`
}

type inputsRequest struct {
	CurrencyIn       *tokenRef `json:"currency_in"`
	CurrencyOut      *tokenRef `json:"currency_out"`
	Amount           string    `json:"amount"`
	TradeType        string    `json:"trade_type"`
	EndpointOverride string    `json:"endpoint_override"`
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

type currencyAmountResponse struct {
	ChainID string `json:"chain_id"`
	Denom   string `json:"denom"`
	Symbol  string `json:"symbol"`
	Amount  string `json:"amount"`
	Display string `json:"display"`
}

type routeHopResponse struct {
	PoolID        string `json:"pool_id"`
	TokenInDenom  string `json:"token_in_denom"`
	TokenOutDenom string `json:"token_out_denom"`
}

type tradeResponse struct {
	Input  currencyAmountResponse `json:"input"`
	Output currencyAmountResponse `json:"output"`
	Type   string                 `json:"type"`
	GasUSD string                 `json:"gas_usd"`
	Route  []routeHopResponse     `json:"route"`
}

type snapshotResponse struct {
	State      string         `json:"state"`
	IsFetching bool           `json:"is_fetching"`
	IsSyncing  bool           `json:"is_syncing"`
	Trade      *tradeResponse `json:"trade,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func (h *sessionHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	// Initial inputs are optional; an empty body creates an idle session.
	var req inputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var inputs engine.Inputs
	hasInputs := req != (inputsRequest{})
	if hasInputs {
		var ok bool
		inputs, ok = h.buildInputs(w, req)
		if !ok {
			return
		}
	}

	s, err := h.manager.Create()
	if err != nil {
		Logger.Error().Err(err).Msg("failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	if hasInputs {
		if err := s.SetInputs(inputs); err != nil {
			h.manager.Delete(s.ID)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:        s.ID.String(),
		CreatedAt: s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *sessionHandlers) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	s, ok := h.manager.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

// resolveToken turns a token reference into a registry-backed currency. A nil
// reference is a valid "not chosen yet" state.
func (h *sessionHandlers) resolveToken(ref *tokenRef) (*quoting.Currency, error) {
	if ref == nil {
		return nil, nil
	}
	c, ok := h.registry.Lookup(ref.ChainID, ref.Denom)
	if !ok {
		return nil, errors.New("unknown token " + ref.ChainID + "/" + ref.Denom)
	}
	return &c, nil
}

func (h *sessionHandlers) setInputs(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req inputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	inputs, ok := h.buildInputs(w, req)
	if !ok {
		return
	}
	if err := s.SetInputs(inputs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// buildInputs resolves an inputs request against the token registry. On
// failure it writes a 400 and returns ok=false.
func (h *sessionHandlers) buildInputs(w http.ResponseWriter, req inputsRequest) (engine.Inputs, bool) {
	tradeType, err := quoting.ParseTradeType(req.TradeType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return engine.Inputs{}, false
	}
	currencyIn, err := h.resolveToken(req.CurrencyIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return engine.Inputs{}, false
	}
	currencyOut, err := h.resolveToken(req.CurrencyOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return engine.Inputs{}, false
	}
	return engine.Inputs{
		CurrencyIn:       currencyIn,
		CurrencyOut:      currencyOut,
		AmountRaw:        req.Amount,
		TradeType:        tradeType,
		EndpointOverride: req.EndpointOverride,
	}, true
}

func (h *sessionHandlers) setVisibility(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	s.SetVisible(req.Visible)
	w.WriteHeader(http.StatusNoContent)
}

func (h *sessionHandlers) getSnapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	snap := s.Snapshot()
	resp := snapshotResponse{
		State:      snap.State.String(),
		IsFetching: snap.IsFetching,
		IsSyncing:  snap.IsSyncing,
	}
	if snap.Trade != nil {
		resp.Trade = renderTrade(snap.Trade)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *sessionHandlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if !h.manager.Delete(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func renderTrade(t *quoting.Trade) *tradeResponse {
	resp := &tradeResponse{
		Input:  renderAmount(t.Input),
		Output: renderAmount(t.Output),
		Type:   t.Type.String(),
		GasUSD: t.GasUSD.String(),
		Route:  make([]routeHopResponse, 0, len(t.Route)),
	}
	for _, hop := range t.Route {
		resp.Route = append(resp.Route, routeHopResponse{
			PoolID:        hop.PoolID,
			TokenInDenom:  hop.TokenInDenom,
			TokenOutDenom: hop.TokenOutDenom,
		})
	}
	return resp
}

func renderAmount(a quoting.CurrencyAmount) currencyAmountResponse {
	return currencyAmountResponse{
		ChainID: a.Currency.ChainID,
		Denom:   a.Currency.Denom,
		Symbol:  a.Currency.Symbol,
		Amount:  a.Raw.String(),
		Display: a.Display(),
	}
}
