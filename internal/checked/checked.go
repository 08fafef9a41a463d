// Package checked provides overflow-checked integer arithmetic.
//
// Every financial and temporal computation in the marketplace uses these
// helpers instead of raw operators so that an overflow surfaces as an
// explicit failure rather than a silent wraparound.
package checked

import "math"

// AddU64 returns a + b and reports whether the addition stayed in range.
func AddU64(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// SubU64 returns a - b and reports whether the subtraction stayed in range.
func SubU64(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// MulU64 returns a * b and reports whether the multiplication stayed in range.
func MulU64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

// AddI64 returns a + b and reports whether the addition stayed in range.
func AddI64(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// SubI64 returns a - b and reports whether the subtraction stayed in range.
func SubI64(a, b int64) (int64, bool) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, false
	}
	return a - b, true
}

// SaturatingAddI64 returns a + b clamped to the int64 range.
func SaturatingAddI64(a, b int64) int64 {
	if v, ok := AddI64(a, b); ok {
		return v
	}
	if b > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}

// SaturatingSubI64 returns a - b clamped to the int64 range.
func SaturatingSubI64(a, b int64) int64 {
	if v, ok := SubI64(a, b); ok {
		return v
	}
	if b > 0 {
		return math.MinInt64
	}
	return math.MaxInt64
}
