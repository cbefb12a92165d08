package sha512

import "crypto/sha512"

// Hash returns the 64-byte SHA-512 digest of data.
func Hash(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:]
}
