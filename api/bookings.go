package api

import (
	"net/http"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type checkAvailabilityRequest struct {
	CheckIn  Date `json:"checkIn"`
	CheckOut Date `json:"checkOut"`
	Guests   int  `json:"guests"`
}

type quoteRequest struct {
	ListingID    string `json:"listingId"`
	CheckInDate  Date   `json:"checkInDate"`
	CheckOutDate Date   `json:"checkOutDate"`
}

// Nights and totalCost sent by the client are ignored; the server prices the
// stay itself.
type createBookingRequest struct {
	ListingID     string              `json:"listingId"`
	CheckInDate   Date                `json:"checkInDate"`
	CheckOutDate  Date                `json:"checkOutDate"`
	GuestCount    int                 `json:"guestCount"`
	Nights        int                 `json:"nights"`
	TotalCost     float64             `json:"totalCost"`
	ReceiptNumber string              `json:"receiptNumber"`
	Guest         domain.GuestDetails `json:"guestDetails"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/check", h.check)
	router.POST("/quote", h.quote)
	router.POST("/create", h.create)
	router.GET("/:id", h.get)
}

func (h *BookingHandler) check(c *gin.Context) {
	var req checkAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	available, err := h.service.CheckAvailability(c.Request.Context(), req.CheckIn.Time, req.CheckOut.Time)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

func (h *BookingHandler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), req.ListingID, req.CheckInDate.Time, req.CheckOutDate.Time)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	guests := req.GuestCount
	if guests == 0 {
		guests = 1
	}
	created, err := h.service.CreateWithReceipt(c.Request.Context(), booking.CreateBookingInput{
		ListingID:     req.ListingID,
		CheckInDate:   req.CheckInDate.Time,
		CheckOutDate:  req.CheckOutDate.Time,
		GuestCount:    guests,
		ReceiptNumber: req.ReceiptNumber,
		Guest:         req.Guest,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}
