package domain

import "time"

type Listing struct {
	ID            string    `json:"_id" bson:"_id,omitempty"`
	Name          string    `json:"name" bson:"name"`
	Description   string    `json:"description" bson:"description"`
	ImageURLs     []string  `json:"imageUrls" bson:"imageUrls"`
	Amenities     []string  `json:"amenities" bson:"amenities"`
	CheckInTime   string    `json:"checkInTime" bson:"checkInTime"`
	CheckOutTime  string    `json:"checkOutTime" bson:"checkOutTime"`
	PricePerNight float64   `json:"pricePerNight" bson:"pricePerNight"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}
