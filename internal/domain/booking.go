package domain

import (
	"strings"
	"time"
)

type GuestDetails struct {
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Email     string `json:"email" bson:"email"`
	Phone     string `json:"phone" bson:"phone"`
}

// Trimmed returns g with surrounding whitespace removed from every field.
func (g GuestDetails) Trimmed() GuestDetails {
	return GuestDetails{
		FirstName: strings.TrimSpace(g.FirstName),
		LastName:  strings.TrimSpace(g.LastName),
		Email:     strings.TrimSpace(g.Email),
		Phone:     strings.TrimSpace(g.Phone),
	}
}

// MissingField returns the JSON name of the first empty required field, or
// "" when all are present.
func (g GuestDetails) MissingField() string {
	switch {
	case g.FirstName == "":
		return "firstName"
	case g.LastName == "":
		return "lastName"
	case g.Email == "":
		return "email"
	case g.Phone == "":
		return "phone"
	}
	return ""
}

// BookingDraft is what the guest is editing before a booking exists.
// Nights and TotalCost are derived from the dates and the nightly rate.
type BookingDraft struct {
	CheckInDate  time.Time    `json:"checkInDate"`
	CheckOutDate time.Time    `json:"checkOutDate"`
	GuestCount   int          `json:"guestCount"`
	Guest        GuestDetails `json:"guestDetails"`
	Nights       int          `json:"nights"`
	TotalCost    float64      `json:"totalCost"`
}

func NewBookingDraft() BookingDraft {
	return BookingDraft{GuestCount: 1}
}

// Booking is the persisted record.
type Booking struct {
	ID            string       `json:"id" bson:"_id,omitempty"`
	ListingID     string       `json:"listingId,omitempty" bson:"listingId,omitempty"`
	CheckInDate   time.Time    `json:"checkInDate" bson:"checkInDate"`
	CheckOutDate  time.Time    `json:"checkOutDate" bson:"checkOutDate"`
	GuestCount    int          `json:"guestCount" bson:"guestCount"`
	Nights        int          `json:"nights" bson:"nights"`
	TotalCost     float64      `json:"totalCost" bson:"totalCost"`
	ReceiptNumber string       `json:"receiptNumber" bson:"receiptNumber"`
	Guest         GuestDetails `json:"guestDetails" bson:"guestDetails"`
	CreatedAt     time.Time    `json:"createdAt" bson:"createdAt"`
}

// Overlaps reports whether the stay shares at least one night with
// [checkIn, checkOut).
func (b Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.CheckInDate.Before(checkOut) && checkIn.Before(b.CheckOutDate)
}
