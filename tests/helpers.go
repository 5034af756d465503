package tests

import (
	"crypto/sha256"
	"math/rand"

	"github.com/mr-tron/base58"
)

func randomBytes(n int) []byte {
	a := make([]byte, n)
	rand.Read(a) //nolint:staticcheck // SA1019: rand.Read has been deprecated since Go 1.20
	return a
}

// RandomEvidenceLink returns IPFS link to random content addressed by CIDv0,
// the way reporters usually attach photos.
func RandomEvidenceLink() string {
	h := sha256.Sum256(randomBytes(64))

	// sha2-256 multihash
	mh := append([]byte{0x12, 0x20}, h[:]...)

	return "ipfs://" + base58.Encode(mh)
}
