package wallet

// Result is the outcome of a workflow. Workflows never return Go errors or
// panic across their boundary: every failure is reported here.
type Result struct {
	// Success is true once the transaction was published, or signed on a
	// dry run.
	Success bool

	// Result is the txid on success and a stable reason string otherwise.
	Result string

	// SignedTx is the hex of the signed transaction whenever signing
	// succeeded, including when the broadcast failed afterwards.
	SignedTx string

	// Err is the underlying error of a failure. Use Classify to group it.
	Err error
}

// newResult builds the Result of a workflow run.
func newResult(txid string, signed *SignedTx, err error) Result {
	var res Result
	if signed != nil {
		res.SignedTx = signed.Hex
	}

	if err != nil {
		res.Result = Reason(err)
		res.Err = err

		log.Errorf("Send failed (%v): %v", Classify(err), err)

		return res
	}

	res.Success = true
	res.Result = txid

	return res
}
