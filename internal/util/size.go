package util

import "math"

// MaxCapacity bounds table sizing so the shift below cannot overflow.
const MaxCapacity = 1 << 30

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	if n >= MaxCapacity {
		return MaxCapacity
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// TableSizeFor returns the number of slots needed to hold capacity entries
// without exceeding loadFactor, rounded up to a power of two.
func TableSizeFor(capacity int, loadFactor float64) int {
	if capacity <= 0 {
		return 1
	}
	if loadFactor <= 0 || loadFactor > 1 {
		loadFactor = 1
	}
	need := math.Ceil(float64(capacity) / loadFactor)
	if need >= MaxCapacity {
		return MaxCapacity
	}
	return NextPowerOfTwo(int(need))
}

// PerShard splits total across shards, rounding up. Never returns < 0.
func PerShard(total, shards int) int {
	if total <= 0 || shards <= 0 {
		return 0
	}
	return (total + shards - 1) / shards
}
