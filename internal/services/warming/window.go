package warming

import "time"

// IsWithinActiveHours reports whether hour falls in [start, end). When
// start > end the window wraps past midnight. start == end is an empty
// window.
func IsWithinActiveHours(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// RandomDelaySeconds returns a uniform integer in [min, max]. Reversed
// bounds are swapped and values below one second are raised to one.
func RandomDelaySeconds(rng Random, min, max int) int {
	if min > max {
		min, max = max, min
	}
	if min < 1 {
		min = 1
	}
	if max < min {
		max = min
	}
	return min + rng.Intn(max-min+1)
}

// RandomDelay is RandomDelaySeconds scaled by unit.
func RandomDelay(rng Random, min, max int, unit time.Duration) time.Duration {
	return time.Duration(RandomDelaySeconds(rng, min, max)) * unit
}
