package fetcher_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openport-labs/swapquote/fetcher"
	"github.com/openport-labs/swapquote/quoting"
)

func TestGate(t *testing.T) {
	amount, err := quoting.NewCurrencyAmount(atom, "100")
	require.NoError(t, err)

	require.Equal(t, &amount, fetcher.Gate(&amount, true, testChains))

	// Hidden surface suppresses the request.
	require.Nil(t, fetcher.Gate(&amount, false, testChains))

	// Unsupported chain fails closed.
	require.Nil(t, fetcher.Gate(&amount, true, quoting.NewChainSet("osmosis-1")))

	// Absent amount stays absent.
	require.Nil(t, fetcher.Gate(nil, true, testChains))
}
