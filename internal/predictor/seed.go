package predictor

import (
	"fmt"
	"math/rand"
	"unicode/utf8"
)

// Seed derives the per-request generator seed from the upload descriptor
// "<filename>|<byte length>|<sequence length>" with a base-131 rolling hash
// truncated to 32 bits.
func Seed(filename string, dataLen int, seq string) uint32 {
	descriptor := fmt.Sprintf("%s|%d|%d", filename, dataLen, utf8.RuneCountInString(seq))
	var h uint32
	for _, r := range descriptor {
		h = h*131 + uint32(r)
	}
	return h
}

func newRand(seed uint32) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}
