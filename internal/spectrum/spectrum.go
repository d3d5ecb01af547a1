// Package spectrum reads byte frequency spectra produced by the audio
// analysers: band averages for haptics and peak magnitude for indicator size.
package spectrum

// MaxMagnitude is the largest value an 8-bit spectrum bin can hold.
const MaxMagnitude = 255

// Sample is one frame of frequency bins, low to high, each 0-255.
type Sample []uint8

// Len returns the number of bins.
func (s Sample) Len() int {
	return len(s)
}

// BandAverage returns the mean of bins lo..hi (inclusive) normalized to [0, 1].
// The range is clipped to the bins present; an empty range yields 0.
func (s Sample) BandAverage(lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi >= len(s) {
		hi = len(s) - 1
	}
	if lo > hi {
		return 0
	}

	var sum int
	for _, v := range s[lo : hi+1] {
		sum += int(v)
	}
	count := hi - lo + 1
	return float64(sum) / float64(count) / MaxMagnitude
}

// PeakIntensity returns the largest bin value, 0 for an empty sample.
func (s Sample) PeakIntensity() float64 {
	var peak uint8
	for _, v := range s {
		if v > peak {
			peak = v
		}
	}
	return float64(peak)
}

// Uniform builds a sample of n bins all set to v.
func Uniform(n int, v uint8) Sample {
	s := make(Sample, n)
	for i := range s {
		s[i] = v
	}
	return s
}
