package wallet

import (
	"errors"

	"github.com/disco-quotidie/send-btc-simplified/address"
	"github.com/disco-quotidie/send-btc-simplified/chain"
	"github.com/disco-quotidie/send-btc-simplified/wallet/coinselect"
	"github.com/disco-quotidie/send-btc-simplified/wallet/feemodel"
)

var (
	// ErrInvalidFromAddress is returned when the sender address does not
	// classify on the configured network.
	ErrInvalidFromAddress = errors.New("invalid fromAddress")

	// ErrInvalidToAddress is returned when the destination address does
	// not classify on the configured network.
	ErrInvalidToAddress = errors.New("invalid toAddress")

	// ErrKeyMismatch is returned when a private key does not control the
	// address it is paired with.
	ErrKeyMismatch = errors.New("fromAddress does not match with fromWIF")

	// ErrInsufficientBalance is returned when the confirmed balance does
	// not exceed the requested amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for a payment amount that is not
	// positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNoFundingSources is returned by a drain without sources.
	ErrNoFundingSources = errors.New("no funding sources")

	// ErrDuplicateSource is returned when a drain names the same address
	// twice.
	ErrDuplicateSource = errors.New("duplicate funding source")

	// ErrNoSpendableUtxos is returned when the funding addresses hold no
	// confirmed UTXOs.
	ErrNoSpendableUtxos = errors.New("no spendable utxos")

	// ErrFetchUtxos is returned when UTXOs could not be listed.
	ErrFetchUtxos = errors.New("failed to fetch utxos")

	// ErrFetchFeeEstimate is returned when no fee estimate could be
	// obtained.
	ErrFetchFeeEstimate = errors.New("failed to fetch fee estimate")

	// ErrFeeRateTooLarge is returned when the scaled fee rate exceeds the
	// configured maximum.
	ErrFeeRateTooLarge = errors.New("fee rate too large")

	// ErrMissingPreviousTransaction is returned when the full previous
	// transaction of a legacy input is unavailable or does not match the
	// outpoint.
	ErrMissingPreviousTransaction = errors.New(
		"missing previous transaction",
	)

	// ErrDuplicateInput is returned when the same outpoint is spent twice.
	ErrDuplicateInput = errors.New("duplicate input")

	// ErrNoOutputs is returned when a build request has no destination.
	ErrNoOutputs = errors.New("tx has no outputs")

	// ErrSigning is returned when an input cannot be signed or finalized.
	ErrSigning = errors.New("signing failed")

	// ErrScriptValidation is returned when a signed input fails script
	// execution.
	ErrScriptValidation = errors.New("script validation failed")

	// ErrBroadcastFailed is returned when a signed transaction could not
	// be published.
	ErrBroadcastFailed = errors.New("broadcast failed")
)

// ErrorKind groups failures by the stage that produced them.
type ErrorKind uint8

const (
	// KindInternal covers failures that indicate a bug or an unexpected
	// state.
	KindInternal ErrorKind = iota

	// KindValidation covers malformed requests, rejected before any I/O.
	KindValidation

	// KindResource covers requests the funds cannot satisfy.
	KindResource

	// KindDependency covers failures of an external service before
	// anything was signed.
	KindDependency

	// KindBroadcast covers failures to publish a signed transaction.
	KindBroadcast
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"

	case KindResource:
		return "resource"

	case KindDependency:
		return "dependency"

	case KindBroadcast:
		return "broadcast"

	default:
		return "internal"
	}
}

// reasonInsufficientUtxos is the reason reported when coin selection cannot
// cover the amount plus fee.
const reasonInsufficientUtxos = "Input UTXOs are not enough to send..."

// failure maps a sentinel error to its kind and stable reason string.
type failure struct {
	err    error
	kind   ErrorKind
	reason string
}

// failures is checked in order. Wallet sentinels come first so that a wallet
// error wrapping a lower level one reports the wallet's reason.
var failures = []failure{
	{ErrInvalidFromAddress, KindValidation, ErrInvalidFromAddress.Error()},
	{ErrInvalidToAddress, KindValidation, ErrInvalidToAddress.Error()},
	{ErrKeyMismatch, KindValidation, ErrKeyMismatch.Error()},
	{ErrInvalidAmount, KindValidation, ErrInvalidAmount.Error()},
	{ErrNoFundingSources, KindValidation, ErrNoFundingSources.Error()},
	{ErrDuplicateSource, KindValidation, ErrDuplicateSource.Error()},
	{ErrDuplicateInput, KindValidation, ErrDuplicateInput.Error()},
	{ErrNoOutputs, KindValidation, ErrNoOutputs.Error()},
	{ErrInvalidConfig, KindValidation, ErrInvalidConfig.Error()},
	{address.ErrInvalidPrivateKey, KindValidation, "invalid private key"},
	{address.ErrWrongNetwork, KindValidation, "invalid private key"},
	{address.ErrUncompressedKey, KindValidation, "invalid private key"},
	{address.ErrUnsupportedType, KindValidation, "unsupported address type"},
	{feemodel.ErrUnknownAddressType, KindValidation,
		"unsupported address type"},

	{ErrInsufficientBalance, KindResource, ErrInsufficientBalance.Error()},
	{ErrNoSpendableUtxos, KindResource, ErrNoSpendableUtxos.Error()},
	{coinselect.ErrInsufficientFunds, KindResource,
		reasonInsufficientUtxos},
	{coinselect.ErrDustOutput, KindResource,
		coinselect.ErrDustOutput.Error()},
	{coinselect.ErrNoInputs, KindResource, ErrNoSpendableUtxos.Error()},
	{ErrFeeRateTooLarge, KindResource, ErrFeeRateTooLarge.Error()},

	{ErrBroadcastFailed, KindBroadcast, ErrBroadcastFailed.Error()},

	{ErrMissingPreviousTransaction, KindDependency,
		ErrMissingPreviousTransaction.Error()},
	{chain.ErrTxNotFound, KindDependency,
		ErrMissingPreviousTransaction.Error()},
	{ErrFetchUtxos, KindDependency, ErrFetchUtxos.Error()},
	{ErrFetchFeeEstimate, KindDependency, ErrFetchFeeEstimate.Error()},

	{ErrSigning, KindInternal, ErrSigning.Error()},
	{ErrScriptValidation, KindInternal, ErrSigning.Error()},
}

// lookup returns the failure entry matching err.
func lookup(err error) (failure, bool) {
	for _, f := range failures {
		if errors.Is(err, f.err) {
			return f, true
		}
	}

	return failure{}, false
}

// Classify returns the kind of a failure returned by this package.
func Classify(err error) ErrorKind {
	if f, ok := lookup(err); ok {
		return f.kind
	}

	return KindInternal
}

// Reason returns the stable reason string reported for err. Unknown errors
// report their own message.
func Reason(err error) string {
	if f, ok := lookup(err); ok {
		return f.reason
	}

	return err.Error()
}
