package script

import (
	"crypto/sha256"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/ripemd160"
)

// Dogecoin pay-to-script-hash address version bytes.
const (
	MAINNET_P2SH_VERSION byte = 0x16
	TESTNET_P2SH_VERSION byte = 0xc4
)

// Hash160 is ripemd160(sha256(b)), the script hash committed to by a
// pay-to-script-hash output.
func Hash160(b []byte) []byte {
	sum := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// Address derives the base58check pay-to-script-hash address that commits
// to the assembled script.
func Address(script []byte, version byte) string {
	return base58.CheckEncode(Hash160(script), version)
}
