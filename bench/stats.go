package bench

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
)

// ErrInsufficientSamples is returned when a sample set is too small for a
// sample standard deviation.
var ErrInsufficientSamples = errors.New("insufficient samples")

// Summary aggregates the durations of one sample set, in seconds.
type Summary struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
}

// Summarize returns the mean and the Bessel-corrected standard deviation of
// samples. At least two samples are required.
func Summarize(samples []float64) (Summary, error) {
	n := len(samples)
	if n < 2 {
		return Summary{}, fmt.Errorf("%w: have %d, need at least 2",
			ErrInsufficientSamples, n)
	}

	data := stats.Float64Data(samples)

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}

	stddev, err := stats.StandardDeviationSample(data)
	if err != nil {
		return Summary{}, fmt.Errorf("standard deviation: %w", err)
	}

	lo, err := stats.Min(data)
	if err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}

	hi, err := stats.Max(data)
	if err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}

	return Summary{
		Mean:   mean,
		StdDev: stddev,
		Min:    lo,
		Max:    hi,
	}, nil
}
