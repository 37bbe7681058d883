// Package engine decides, for one tenant at one instant, which prizes are active, which of
// those are won, and which presentation tier plays before the reveal.
//
// All functions are pure over their inputs: the caller supplies the instant and the
// random source.
package engine

import "time"

// Prize is the engine view of a stored prize image.
type Prize struct {
	ID          int64
	AssetKey    string
	StartAt     time.Time
	EndAt       time.Time
	Probability int
}
