package engine

import "github.com/zenGate-Global/palmyra-gacha/platform/go/random"

// Tier identifies one of the four presentation effects.
type Tier int

const (
	Star1 Tier = iota + 1
	Star2
	Star3
	Star4
)

// Tiers lists every tier in draw order.
var Tiers = [4]Tier{Star1, Star2, Star3, Star4}

// String returns the storage key of the tier (star1..star4).
func (t Tier) String() string {
	switch t {
	case Star1:
		return "star1"
	case Star2:
		return "star2"
	case Star3:
		return "star3"
	case Star4:
		return "star4"
	default:
		return "unknown"
	}
}

// Weights holds the star1..star4 weights in draw order.
type Weights [4]int

// PickEffect makes a single weighted categorical draw. Tiers with weight <= 0 are never
// selected; when no tier has positive weight the result is Star1 and src is not consumed.
// Weights are summed in float64 so large values cannot wrap the total.
func PickEffect(src random.Source, w Weights) Tier {
	var total float64
	for _, weight := range w {
		if weight > 0 {
			total += float64(weight)
		}
	}
	if total == 0 {
		return Star1
	}

	r := src.Float64() * total
	var cumulative float64
	last := Star1
	for i, weight := range w {
		if weight <= 0 {
			continue
		}
		cumulative += float64(weight)
		last = Tiers[i]
		if r < cumulative {
			return Tiers[i]
		}
	}
	return last
}
