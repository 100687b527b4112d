package chain

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
	"github.com/stretchr/testify/require"
)

const (
	testTxID = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afd" +
		"eda33b"
	testAddr = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
)

// newTestClient starts an explorer stub serving the given handlers.
func newTestClient(t *testing.T,
	routes map[string]http.HandlerFunc) *EsploraClient {

	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewEsploraClient(EsploraConfig{
		BaseURL:    server.URL + "/",
		HTTPClient: server.Client(),
	})
}

// TestNewEsploraClientBaseURL checks the per-network defaults.
func TestNewEsploraClientBaseURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, MainnetBaseURL, NewEsploraClient(EsploraConfig{}).baseURL)
	require.Equal(t, TestnetBaseURL, NewEsploraClient(EsploraConfig{
		Network: address.Testnet,
	}).baseURL)
	require.Equal(t, "http://x", NewEsploraClient(EsploraConfig{
		Network: address.Testnet,
		BaseURL: "http://x/",
	}).baseURL)
}

// TestFetchUtxos checks that UTXOs are split by confirmation status.
func TestFetchUtxos(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, map[string]http.HandlerFunc{
		"GET /api/address/" + testAddr + "/utxo": func(
			w http.ResponseWriter, _ *http.Request) {

			_, _ = io.WriteString(w, `[
				{"txid":"`+testTxID+`","vout":1,"value":5000,
				 "status":{"confirmed":true,"block_height":10}},
				{"txid":"`+testTxID+`","vout":2,"value":700,
				 "status":{"confirmed":false}},
				{"txid":"`+testTxID+`","vout":0,"value":1000,
				 "status":{"confirmed":true}}
			]`)
		},
	})

	set, err := client.FetchUtxos(context.Background(), testAddr)
	require.NoError(t, err)
	require.Len(t, set.Confirmed, 2)
	require.Len(t, set.Unconfirmed, 1)
	require.Equal(t, btcutil.Amount(6000), set.ConfirmedBalance())

	hash, err := chainhash.NewHashFromStr(testTxID)
	require.NoError(t, err)
	require.Equal(t, Utxo{
		TxID: *hash, Vout: 1, Value: 5000, Confirmed: true,
	}, set.Confirmed[0])
	require.Equal(t, uint32(2), set.Unconfirmed[0].OutPoint().Index)
}

// TestFetchUtxosFailure checks that transport and decoding failures are
// errors rather than empty sets.
func TestFetchUtxosFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, map[string]http.HandlerFunc{
		"GET /api/address/bad/utxo": func(w http.ResponseWriter,
			_ *http.Request) {

			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"GET /api/address/garbled/utxo": func(w http.ResponseWriter,
			_ *http.Request) {

			_, _ = io.WriteString(w, `{"not":"a list"}`)
		},
		"GET /api/address/neg/utxo": func(w http.ResponseWriter,
			_ *http.Request) {

			_, _ = io.WriteString(w, `[{"txid":"`+testTxID+
				`","vout":0,"value":-1}]`)
		},
	})

	_, err := client.FetchUtxos(context.Background(), "bad")
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = client.FetchUtxos(context.Background(), "garbled")
	require.ErrorIs(t, err, ErrMalformedResponse)

	_, err = client.FetchUtxos(context.Background(), "neg")
	require.ErrorIs(t, err, ErrMalformedResponse)

	// A closed server is a transport failure.
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	unreachable := NewEsploraClient(EsploraConfig{BaseURL: closed.URL})
	set, err := unreachable.FetchUtxos(context.Background(), testAddr)
	require.Error(t, err)
	require.Nil(t, set)
}

// TestFetchFeeEstimate checks decoding of fractional fee tiers.
func TestFetchFeeEstimate(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, map[string]http.HandlerFunc{
		"GET /api/v1/fees/recommended": func(w http.ResponseWriter,
			_ *http.Request) {

			_, _ = io.WriteString(w, `{"fastestFee":12,"halfHourFee":10,
				"hourFee":8,"economyFee":2.5,"minimumFee":1}`)
		},
	})

	estimate, err := client.FetchFeeEstimate(context.Background())
	require.NoError(t, err)
	require.True(t, estimate.Fastest.Equal(btcunit.NewSatPerVByte(12)))
	require.True(t, estimate.HalfHour.Equal(btcunit.NewSatPerVByte(10)))
	require.True(t, estimate.Hour.Equal(btcunit.NewSatPerVByte(8)))
	require.Equal(t, "2.500 sat/vb", estimate.Economy.String())
	require.True(t, estimate.Minimum.Equal(btcunit.NewSatPerVByte(1)))

	require.True(t, estimate.Rate(FeeTierEconomy).Equal(estimate.Economy))
	require.True(t, estimate.Rate(FeeTier(99)).Equal(estimate.Fastest))
}

// TestFetchPrevTxHex checks found, missing and malformed transactions.
func TestFetchPrevTxHex(t *testing.T) {
	t.Parallel()

	hash, err := chainhash.NewHashFromStr(testTxID)
	require.NoError(t, err)

	var missing chainhash.Hash

	client := newTestClient(t, map[string]http.HandlerFunc{
		"GET /api/tx/" + testTxID + "/hex": func(w http.ResponseWriter,
			_ *http.Request) {

			_, _ = io.WriteString(w, "0100\n")
		},
		"GET /api/tx/" + missing.String() + "/hex": func(
			w http.ResponseWriter, _ *http.Request) {

			http.Error(w, "Transaction not found", http.StatusNotFound)
		},
	})

	txHex, err := client.FetchPrevTxHex(context.Background(), *hash)
	require.NoError(t, err)
	require.Equal(t, "0100", txHex)

	_, err = client.FetchPrevTxHex(context.Background(), missing)
	require.ErrorIs(t, err, ErrTxNotFound)
}

// TestBroadcast checks accepted and rejected broadcasts.
func TestBroadcast(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, map[string]http.HandlerFunc{
		"POST /api/tx": func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if strings.TrimSpace(string(body)) == "bad" {
				http.Error(
					w, "sendrawtransaction RPC error: "+
						"min relay fee not met",
					http.StatusBadRequest,
				)

				return
			}

			_, _ = io.WriteString(w, testTxID)
		},
	})

	txid, err := client.Broadcast(context.Background(), "00")
	require.NoError(t, err)
	require.Equal(t, testTxID, txid.String())

	_, err = client.Broadcast(context.Background(), "bad")
	require.ErrorIs(t, err, ErrBroadcastRejected)
	require.ErrorContains(t, err, "min relay fee not met")
}

// TestParseFeeTier checks the accepted tier names.
func TestParseFeeTier(t *testing.T) {
	t.Parallel()

	for _, tier := range []FeeTier{
		FeeTierFastest, FeeTierHalfHour, FeeTierHour, FeeTierEconomy,
		FeeTierMinimum,
	} {
		parsed, err := ParseFeeTier(tier.String())
		require.NoError(t, err)
		require.Equal(t, tier, parsed)
	}

	_, err := ParseFeeTier("warp")
	require.ErrorIs(t, err, ErrUnknownFeeTier)
}
