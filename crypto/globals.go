package crypto

import "crypto/sha512"

var (
	DefaultHashFunc = sha512.New
)

const (
	HashSize = sha512.Size
	KeySize  = 32
)
