package octomap

import "math"

// LogOdds converts a probability in (0,1) to its log-odds representation.
func LogOdds(p float64) float64 {
	return math.Log(p / (1 - p))
}

// Probability converts a log-odds value back to a probability.
func Probability(l float64) float64 {
	return 1 - 1/(1+math.Exp(l))
}

// SensorModel holds the occupancy update parameters of a tree, all stored in
// log-odds space.
type SensorModel struct {
	// ProbHitLog is added to a voxel for every beam ending in it, >= 0.
	ProbHitLog float64
	// ProbMissLog is added to a voxel for every beam passing through it, <= 0.
	ProbMissLog float64
	// ClampingThresMin and ClampingThresMax saturate voxel values so the map
	// stays responsive to new measurements.
	ClampingThresMin float64
	ClampingThresMax float64
	// OccProbThresLog classifies a voxel as occupied when its value reaches it.
	OccProbThresLog float64
}

// DefaultSensorModel returns the sensor model used by freshly constructed
// trees: P(hit)=0.7, P(miss)=0.4, clamping to [0.1192, 0.971], occupancy
// threshold 0.5.
func DefaultSensorModel() SensorModel {
	return SensorModel{
		ProbHitLog:       LogOdds(0.7),
		ProbMissLog:      LogOdds(0.4),
		ClampingThresMin: LogOdds(0.1192),
		ClampingThresMax: LogOdds(0.971),
		OccProbThresLog:  LogOdds(0.5),
	}
}

func (m *SensorModel) clamp(l float64) float64 {
	if l < m.ClampingThresMin {
		return m.ClampingThresMin
	}
	if l > m.ClampingThresMax {
		return m.ClampingThresMax
	}
	return l
}
