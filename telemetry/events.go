// Package telemetry provides ecosystem health tracking, bookmarking, and snapshots.
package telemetry

// DeathCause identifies why an animal left the population other than by
// crossing the arena edge.
type DeathCause uint8

const (
	CauseAge DeathCause = iota
	CauseStarvation
	CauseEaten
	numCauses
)

func (c DeathCause) String() string {
	switch c {
	case CauseAge:
		return "age"
	case CauseStarvation:
		return "starvation"
	case CauseEaten:
		return "eaten"
	}
	return "unknown"
}
