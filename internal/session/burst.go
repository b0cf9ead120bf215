package session

import "fmt"

// BurstInfo describes one contiguous sub-capture inside a longer session
// when measureBursts is enabled, and the gap separating it from the prior
// burst.
type BurstInfo struct {
	BurstSampleStart int    // inclusive
	BurstSampleEnd   int    // exclusive
	BurstSampleGap   uint64 // samples since the prior burst; 0 for the first
	BurstTimeGapNs   uint64 // nanoseconds since the prior burst
}

// GetTime formats BurstTimeGapNs as whole nanoseconds below 1000ns,
// otherwise in µs/ms/s with exactly three fraction digits. Implemented
// with integer division only, to avoid floating-point drift around the
// µs/ms/s boundaries (e.g. 999_999_999ns must read "1000.000 ms", not
// "999.999 ms" nor "1.000 s" from a rounding slip).
func (b BurstInfo) GetTime() string {
	ns := b.BurstTimeGapNs

	switch {
	case ns < 1_000:
		return fmt.Sprintf("%d ns", ns)
	case ns < 1_000_000:
		return fixedPoint3(ns, 1_000) + " µs"
	case ns < 1_000_000_000:
		return fixedPoint3(ns, 1_000_000) + " ms"
	default:
		return fixedPoint3(ns, 1_000_000_000) + " s"
	}
}

// fixedPoint3 renders ns/unit as a decimal with exactly three fraction
// digits, using only integer arithmetic.
func fixedPoint3(ns uint64, unit uint64) string {
	whole := ns / unit
	// Scale the remainder to three fraction digits without ever going
	// through a float: (remainder * 1000) / unit, rounded to nearest.
	remainder := ns % unit
	frac := (remainder*1000 + unit/2) / unit

	if frac == 1000 {
		whole++
		frac = 0
	}

	return fmt.Sprintf("%d.%03d", whole, frac)
}

// String renders the conventional two-line burst summary.
func (b BurstInfo) String() string {
	return fmt.Sprintf("Burst: %d to %d\nGap: %s (%d samples)", b.BurstSampleStart, b.BurstSampleEnd, b.GetTime(), b.BurstSampleGap)
}
