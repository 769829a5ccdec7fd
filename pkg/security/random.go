package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const upperBase36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomUpperBase36 returns n uniformly random characters from [0-9A-Z].
func RandomUpperBase36(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	max := big.NewInt(int64(len(upperBase36)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random index: %w", err)
		}
		out[i] = upperBase36[idx.Int64()]
	}
	return string(out), nil
}
