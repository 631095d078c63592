package api

import (
	"net/http"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/listings"
	"github.com/gin-gonic/gin"
)

type ListingHandler struct {
	service listings.ListingUseCase
}

type createListingRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	ImageURLs     []string `json:"imageUrls"`
	Amenities     []string `json:"amenities"`
	CheckInTime   string   `json:"checkInTime"`
	CheckOutTime  string   `json:"checkOutTime"`
	PricePerNight float64  `json:"pricePerNight" binding:"required"`
}

func NewListingHandler(service listings.ListingUseCase) *ListingHandler {
	return &ListingHandler{service: service}
}

func (h *ListingHandler) Register(router *gin.RouterGroup) {
	router.GET("/getlisting", h.list)
	router.POST("/create", h.create)
	router.GET("/:id", h.get)
}

func (h *ListingHandler) list(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ListingHandler) get(c *gin.Context) {
	listing, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) create(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	listing := &domain.Listing{
		Name:          req.Name,
		Description:   req.Description,
		ImageURLs:     req.ImageURLs,
		Amenities:     req.Amenities,
		CheckInTime:   req.CheckInTime,
		CheckOutTime:  req.CheckOutTime,
		PricePerNight: req.PricePerNight,
	}
	if err := h.service.Create(c.Request.Context(), listing); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}
