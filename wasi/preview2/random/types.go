package random

const (
	RandomInterface       = "wasi:random/random@0.2.8"
	InsecureInterface     = "wasi:random/insecure@0.2.8"
	InsecureSeedInterface = "wasi:random/insecure-seed@0.2.8"
)

// MaxRandomBytes limits single-call allocation (1MB).
const MaxRandomBytes = 1 << 20

func capLen(n uint64) uint64 {
	if n > MaxRandomBytes {
		return MaxRandomBytes
	}
	return n
}
