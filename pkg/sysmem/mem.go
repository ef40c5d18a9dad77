// Package sysmem reports the physical memory of the host.
package sysmem

// Physical returns the host's physical memory in bytes. ok is false when
// the platform gives no answer.
func Physical() (bytes uint64, ok bool) {
	n, ok := physical()
	if !ok || n == 0 {
		return 0, false
	}
	return n, true
}

// Fraction returns used as a fraction of physical memory, or 0 when
// physical memory is unknown.
func Fraction(used uint64) float64 {
	total, ok := Physical()
	if !ok {
		return 0
	}
	return float64(used) / float64(total)
}
