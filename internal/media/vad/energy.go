package vad

import "math"

// Energy classifier calibration: frames at or below floorDB score 0 and
// frames at or above ceilDB score 1.
const (
	floorDB = -60.0
	ceilDB  = -20.0
)

// EnergyClassifier maps frame RMS level in dBFS linearly onto [0, 1].
type EnergyClassifier struct{}

// Score implements Classifier.
func (EnergyClassifier) Score(frame []int16, _ int) (float64, error) {
	if len(frame) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum/float64(len(frame))) / 32768.0
	if rms <= 0 {
		return 0, nil
	}
	db := 20 * math.Log10(rms)
	p := (db - floorDB) / (ceilDB - floorDB)
	return math.Max(0, math.Min(1, p)), nil
}
