package crypto

import (
	"crypto/rand"
	"math/big"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomAlnum returns a cryptographically random string of n characters
// drawn from [A-Za-z0-9], matching the random_2 and command-id generation
// in the key-exchange and command-queue paths.
func RandomAlnum(n int) (string, error) {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}

// Time40 truncates a monotonically increasing nanosecond counter to 40
// bits, matching the appliance's expectation for time_2.
func Time40(nanos int64) int64 {
	return nanos & ((1 << 40) - 1)
}
