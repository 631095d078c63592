package domain

import "time"

// Review is one entry of the comment/rating store: either a comment, a
// rating or both.
type Review struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Value     *int      `json:"value,omitempty" bson:"value,omitempty"`
	Text      string    `json:"text,omitempty" bson:"text,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// AverageRating is 0 for an empty sample.
func AverageRating(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
