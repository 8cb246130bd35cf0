package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// unambiguous alphabet: no 0/O, 1/I/L
const numberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateOrderNumber builds a human-readable order number like
// BF-20260830-7KQ2M. Uniqueness is enforced by the DB index; callers retry
// on collision.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix := make([]byte, 5)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(numberAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("BF-%s-%s", now.UTC().Format("20060102"), suffix), nil
}
