package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/pkg/btcunit"
)

const (
	// MainnetBaseURL is the default explorer for mainnet.
	MainnetBaseURL = "https://mempool.space"

	// TestnetBaseURL is the default explorer for testnet.
	TestnetBaseURL = "https://mempool.space/testnet"

	// DefaultTimeout bounds every request of the client.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps the bytes read from any response body.
	maxResponseSize = 4 << 20
)

// errNotFound is returned by get for a 404 response.
var errNotFound = fmt.Errorf("%w: 404", ErrUnexpectedStatus)

// A compile-time check to ensure EsploraClient satisfies the Backend
// interface.
var _ Backend = (*EsploraClient)(nil)

// EsploraConfig holds the options of an EsploraClient.
type EsploraConfig struct {
	// Network selects the default base URL.
	Network address.Network

	// BaseURL overrides the default base URL of the network when set.
	BaseURL string

	// Timeout bounds every request. DefaultTimeout is used when zero.
	Timeout time.Duration

	// HTTPClient replaces the client built from Timeout when set.
	HTTPClient *http.Client
}

// EsploraClient talks to an Esplora / mempool.space compatible REST API. It
// holds no state besides its configuration, caches nothing and never retries.
type EsploraClient struct {
	baseURL string
	client  *http.Client
}

// NewEsploraClient creates a client for the configured explorer.
func NewEsploraClient(cfg EsploraConfig) *EsploraClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = MainnetBaseURL
		if cfg.Network == address.Testnet {
			baseURL = TestnetBaseURL
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}

		client = &http.Client{Timeout: timeout}
	}

	return &EsploraClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// esploraUtxo is the JSON shape of one entry of /api/address/{a}/utxo.
type esploraUtxo struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status struct {
		Confirmed bool `json:"confirmed"`
	} `json:"status"`
}

// esploraFees is the JSON shape of /api/v1/fees/recommended.
type esploraFees struct {
	Fastest  float64 `json:"fastestFee"`
	HalfHour float64 `json:"halfHourFee"`
	Hour     float64 `json:"hourFee"`
	Economy  float64 `json:"economyFee"`
	Minimum  float64 `json:"minimumFee"`
}

// FetchUtxos returns the UTXOs of the address split by confirmation status.
func (c *EsploraClient) FetchUtxos(ctx context.Context,
	addr string) (*UtxoSet, error) {

	body, err := c.get(ctx, "/api/address/"+addr+"/utxo")
	if err != nil {
		return nil, fmt.Errorf("fetch utxos of %s: %w", addr, err)
	}

	var raw []esploraUtxo
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	set := &UtxoSet{}
	for _, entry := range raw {
		hash, err := chainhash.NewHashFromStr(entry.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: txid %q: %v",
				ErrMalformedResponse, entry.TxID, err)
		}

		if entry.Value < 0 {
			return nil, fmt.Errorf("%w: negative value %d",
				ErrMalformedResponse, entry.Value)
		}

		utxo := Utxo{
			TxID:      *hash,
			Vout:      entry.Vout,
			Value:     btcutil.Amount(entry.Value),
			Confirmed: entry.Status.Confirmed,
		}

		if utxo.Confirmed {
			set.Confirmed = append(set.Confirmed, utxo)
		} else {
			set.Unconfirmed = append(set.Unconfirmed, utxo)
		}
	}

	log.Debugf("Fetched %d confirmed and %d unconfirmed utxos of %s",
		len(set.Confirmed), len(set.Unconfirmed), addr)

	return set, nil
}

// FetchFeeEstimate returns the recommended fee rates.
func (c *EsploraClient) FetchFeeEstimate(
	ctx context.Context) (*FeeEstimate, error) {

	body, err := c.get(ctx, "/api/v1/fees/recommended")
	if err != nil {
		return nil, fmt.Errorf("fetch fee estimate: %w", err)
	}

	var raw esploraFees
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	tiers := []float64{
		raw.Fastest, raw.HalfHour, raw.Hour, raw.Economy, raw.Minimum,
	}
	rates := make([]btcunit.SatPerVByte, len(tiers))
	for i, tier := range tiers {
		rates[i], err = btcunit.SatPerVByteFromFloat(tier)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse,
				err)
		}
	}

	estimate := &FeeEstimate{
		Fastest:  rates[0],
		HalfHour: rates[1],
		Hour:     rates[2],
		Economy:  rates[3],
		Minimum:  rates[4],
	}

	log.Debugf("Fetched fee estimate: %v", estimate)

	return estimate, nil
}

// FetchPrevTxHex returns the hex serialized transaction with the given id.
func (c *EsploraClient) FetchPrevTxHex(ctx context.Context,
	txid chainhash.Hash) (string, error) {

	body, err := c.get(ctx, "/api/tx/"+txid.String()+"/hex")
	if errors.Is(err, errNotFound) {
		return "", fmt.Errorf("%w: %v", ErrTxNotFound, txid)
	}
	if err != nil {
		return "", fmt.Errorf("fetch tx %v: %w", txid, err)
	}

	txHex := strings.TrimSpace(string(body))
	if _, err := hex.DecodeString(txHex); err != nil {
		return "", fmt.Errorf("%w: tx %v: %v", ErrMalformedResponse,
			txid, err)
	}

	return txHex, nil
}

// Broadcast posts the hex serialized transaction to the explorer.
func (c *EsploraClient) Broadcast(ctx context.Context,
	txHex string) (chainhash.Hash, error) {

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/api/tx",
		strings.NewReader(txHex),
	)
	if err != nil {
		return chainhash.Hash{}, err
	}
	req.Header.Set("Content-Type", "text/plain")

	status, body, err := c.do(req)
	if err != nil {
		return chainhash.Hash{}, err
	}

	if status != http.StatusOK {
		return chainhash.Hash{}, fmt.Errorf("%w: %s",
			ErrBroadcastRejected, strings.TrimSpace(string(body)))
	}

	txid, err := chainhash.NewHashFromStr(strings.TrimSpace(string(body)))
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: txid: %v",
			ErrMalformedResponse, err)
	}

	log.Infof("Broadcast transaction %v", txid)

	return *txid, nil
}

// get performs a GET request and returns the body of a 200 response. Any
// other status is returned as an error wrapping ErrUnexpectedStatus.
func (c *EsploraClient) get(ctx context.Context, path string) ([]byte,
	error) {

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+path, nil,
	)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return body, nil

	case http.StatusNotFound:
		return nil, errNotFound

	default:
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, status,
			strings.TrimSpace(string(body)))
	}
}

// do executes the request and reads a bounded body.
func (c *EsploraClient) do(req *http.Request) (int, []byte, error) {
	log.Tracef("%s %s", req.Method, req.URL)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}
