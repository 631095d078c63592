package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/form"
	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

type SessionManager interface {
	Open(ctx context.Context, seed form.Seed) (*form.Form, error)
	Get(id string) (*form.Form, error)
	Close(id string) error
}

// SessionHandler exposes a booking form over HTTP. Snapshots are pushed to
// the browser over server-sent events.
type SessionHandler struct {
	manager SessionManager
	limiter gin.HandlerFunc
}

type openSessionRequest struct {
	ListingID    string `json:"listingId"`
	CheckInDate  Date   `json:"checkInDate"`
	CheckOutDate Date   `json:"checkOutDate"`
	GuestNumber  int    `json:"guestNumber"`
}

type stayRequest struct {
	CheckInDate  Date `json:"checkInDate"`
	CheckOutDate Date `json:"checkOutDate"`
	GuestCount   int  `json:"guestCount"`
}

type payRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

func NewSessionHandler(manager SessionManager, limiter gin.HandlerFunc) *SessionHandler {
	return &SessionHandler{manager: manager, limiter: limiter}
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.open)
	router.GET("/:id", h.snapshot)
	router.PUT("/:id/stay", h.stay)
	router.PUT("/:id/guest", h.guest)
	if h.limiter != nil {
		router.POST("/:id/pay", h.limiter, h.pay)
	} else {
		router.POST("/:id/pay", h.pay)
	}
	router.POST("/:id/submit", h.submit)
	router.GET("/:id/events", h.events)
	router.DELETE("/:id", h.close)
}

func (h *SessionHandler) open(c *gin.Context) {
	var req openSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	f, err := h.manager.Open(c.Request.Context(), form.Seed{
		ListingID:  req.ListingID,
		CheckIn:    req.CheckInDate.Time,
		CheckOut:   req.CheckOutDate.Time,
		GuestCount: req.GuestNumber,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f.Snapshot())
}

func (h *SessionHandler) lookup(c *gin.Context) (*form.Form, bool) {
	f, err := h.manager.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return f, true
}

func (h *SessionHandler) snapshot(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, f.Snapshot())
}

func (h *SessionHandler) stay(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	var req stayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	guests := req.GuestCount
	if guests == 0 {
		guests = f.Snapshot().Draft.GuestCount
	}
	view, err := f.UpdateStay(c.Request.Context(), req.CheckInDate.Time, req.CheckOutDate.Time, guests)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) guest(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	var req domain.GuestDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := f.UpdateGuest(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) pay(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := f.Pay(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

func (h *SessionHandler) submit(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}
	view, err := f.Submit(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

func (h *SessionHandler) close(c *gin.Context) {
	if err := h.manager.Close(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) events(c *gin.Context) {
	f, ok := h.lookup(c)
	if !ok {
		return
	}

	updates, cancel := f.Watch()
	defer cancel()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case view, open := <-updates:
			if !open {
				c.SSEvent("closed", gin.H{"id": f.ID()})
				return false
			}
			c.SSEvent("snapshot", view)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
