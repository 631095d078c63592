package pricing

import (
	"math"
	"time"
)

const day = 24 * time.Hour

type Quote struct {
	Nights    int     `json:"nights"`
	TotalCost float64 `json:"totalCost"`
	// Inverted is set when check-out precedes check-in. The range is still
	// priced on its absolute length.
	Inverted bool `json:"inverted,omitempty"`
}

// Calculate prices a stay. A zero checkIn or checkOut yields an empty quote.
func Calculate(checkIn, checkOut time.Time, nightlyRate float64) Quote {
	if checkIn.IsZero() || checkOut.IsZero() {
		return Quote{}
	}

	diff := checkOut.Sub(checkIn)
	inverted := diff < 0
	if inverted {
		diff = -diff
	}

	nights := int(math.Ceil(float64(diff) / float64(day)))
	return Quote{
		Nights:    nights,
		TotalCost: float64(nights) * nightlyRate,
		Inverted:  inverted,
	}
}
