package engine

import (
	"iter"

	"github.com/zenGate-Global/palmyra-gacha/platform/go/random"
)

// Resolve runs one independent Bernoulli trial per prize: a prize is won when
// r*100 < Probability for a fresh r in [0,1). Several prizes may win together.
// The result keeps input order and is empty, never nil, when nothing wins.
func Resolve(src random.Source, active iter.Seq[Prize]) []Prize {
	won := []Prize{}
	for p := range active {
		if Wins(src, p.Probability) {
			won = append(won, p)
		}
	}
	return won
}

// Wins draws once from src. Probabilities at or below 0 never win and at or above 100
// always win; the draw is still consumed so outcomes stay aligned with the source.
func Wins(src random.Source, probability int) bool {
	r := src.Float64()
	return r*100 < float64(probability)
}
