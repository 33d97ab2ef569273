package pooltypes

import "fmt"

// ByteSize is an unsigned byte count with a binary-unit human formatter.
// Arithmetic wraps on overflow like any other uint64, by design: the
// engine never needs saturating arithmetic, only accurate deltas between
// two free-space samples of the same volume.
type ByteSize uint64

const (
	unitStep = 1024.0
)

var units = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}

// Format renders b using binary units: the largest unit whose byte value
// is at most 1.5*size is chosen (so a value is never shown needlessly
// small, e.g. 900MiB renders as "0.9GiB" rather than staying in MiB),
// with at most one fractional digit. Zero renders as "0B".
func (b ByteSize) Format() string {
	if b == 0 {
		return "0B"
	}
	raw := float64(b)
	threshold := raw * 1.5
	chosen := 0
	for i := len(units) - 1; i >= 1; i-- {
		unitValue := pow(unitStep, float64(i))
		if unitValue <= threshold {
			chosen = i
			break
		}
	}
	if chosen == 0 {
		return fmt.Sprintf("%dB", uint64(b))
	}
	scaled := raw / pow(unitStep, float64(chosen))
	return fmt.Sprintf("%.1f%s", scaled, units[chosen])
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}

// Add returns a + b, wrapping on overflow per uint64 semantics.
func (b ByteSize) Add(other ByteSize) ByteSize { return b + other }

// Sub returns a - b, wrapping on underflow per uint64 semantics.
func (b ByteSize) Sub(other ByteSize) ByteSize { return b - other }

// SumByteSizes adds a slice of sizes.
func SumByteSizes(sizes []ByteSize) ByteSize {
	var total ByteSize
	for _, s := range sizes {
		total += s
	}
	return total
}
