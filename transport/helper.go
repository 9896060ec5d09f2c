package transport

import (
	"math/rand/v2"
	"time"
)

const (
	skewBy = 0.25
)

// skew returns d scaled to a random value in ~75% to ~125% of itself.
func skew(d time.Duration) time.Duration {
	return time.Duration((1.0 - skewBy + rand.Float64()*(skewBy*2)) * float64(d))
}
