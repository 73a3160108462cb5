package emit

import "golang.org/x/crypto/sha3"

// EventSignatureHash computes the keccak256 topic constant of an event
// signature like "Transfer(address,address,uint256)". The hash is folded at
// compile time; only the 32-byte constant reaches the generated code.
func EventSignatureHash(signature string) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}
