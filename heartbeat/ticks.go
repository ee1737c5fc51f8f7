package heartbeat

import "time"

// TickPeriod returns the duration of one scheduler tick at hz.
// Returns 0 for hz <= 0, meaning no quantization.
func TickPeriod(hz int) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(hz)
}

// ToTicks converts d to a whole number of ticks, rounding to the nearest
// tick (half up). Any positive d yields at least one tick.
// A non-positive period counts nanoseconds.
func ToTicks(d, period time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	if period <= 0 {
		return int64(d)
	}
	ticks := int64((d + period/2) / period)
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

// Quantize returns the delay a tick-based scheduler actually sleeps for d.
func Quantize(d, period time.Duration) time.Duration {
	if period <= 0 {
		if d < 0 {
			return 0
		}
		return d
	}
	return time.Duration(ToTicks(d, period)) * period
}
