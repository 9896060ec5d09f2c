package feed

import (
	"math/rand/v2"

	"github.com/taylorza/go-lfsr"
)

// newEpoch returns a random epoch in the range (0,2^31).
func newEpoch() int {
	gen := lfsr.NewLfsr32(rand.Uint32() | 1) // a zero seed never leaves zero
	for {
		id, _ := gen.Next()
		if id == 0 || id&0x80000000 == 0x80000000 {
			continue // don't allow zero or anything with top bit
		}
		return int(id)
	}
}
