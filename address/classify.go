package address

import "regexp"

// patterns holds the address patterns of one network, checked in order.
type patterns struct {
	legacy       *regexp.Regexp
	nestedSegwit *regexp.Regexp
	nativeSegwit *regexp.Regexp
	taproot      *regexp.Regexp
}

// The base58 alphabet omits 0, O, I and l. Bech32 strings are matched in
// lower case only. A P2WPKH address carries 38 characters after its four
// character prefix, P2WSH and P2TR carry 58.
var (
	mainnetPatterns = patterns{
		legacy:       regexp.MustCompile(`^1[a-km-zA-HJ-NP-Z1-9]{25,34}$`),
		nestedSegwit: regexp.MustCompile(`^3[a-km-zA-HJ-NP-Z1-9]{25,34}$`),
		nativeSegwit: regexp.MustCompile(`^bc1q[0-9a-z]{38,58}$`),
		taproot:      regexp.MustCompile(`^bc1p[0-9a-z]{38,58}$`),
	}

	testnetPatterns = patterns{
		legacy:       regexp.MustCompile(`^[mn][a-km-zA-HJ-NP-Z1-9]{25,34}$`),
		nestedSegwit: regexp.MustCompile(`^2[a-km-zA-HJ-NP-Z1-9]{25,34}$`),
		nativeSegwit: regexp.MustCompile(`^tb1q[0-9a-z]{38,58}$`),
		taproot:      regexp.MustCompile(`^tb1p[0-9a-z]{38,58}$`),
	}
)

// Classify maps an address string to its Type on the given network. It is a
// pure pattern match on prefix, length and charset: every input maps to
// exactly one type and anything unrecognized is Invalid. Checksums are not
// verified here, decoding the address does that.
func Classify(addr string, net Network) Type {
	p := &mainnetPatterns
	if net == Testnet {
		p = &testnetPatterns
	}

	switch {
	case p.legacy.MatchString(addr):
		return Legacy

	case p.nestedSegwit.MatchString(addr):
		return NestedSegwit

	case p.nativeSegwit.MatchString(addr):
		return NativeSegwit

	case p.taproot.MatchString(addr):
		return Taproot

	default:
		return Invalid
	}
}
