package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/payments"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service payments.PaymentUseCase
	limiter gin.HandlerFunc
	logger  *zap.Logger
}

type initiatePaymentRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	SessionID   string  `json:"sessionId"`
	Email       string  `json:"email"`
	GuestName   string  `json:"guestName"`
}

// callbackRequest accepts both the flat shape and the Daraja STK callback
// envelope.
type callbackRequest struct {
	SessionID         string `json:"sessionId"`
	AttemptID         string `json:"attemptId"`
	CheckoutReference string `json:"checkoutReference"`
	Status            string `json:"status"`
	ReceiptNumber     string  `json:"receiptNumber"`
	Amount            float64 `json:"amount"`
	Reason            string  `json:"reason"`

	Body *struct {
		StkCallback struct {
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

func (r callbackRequest) event() domain.PaymentEvent {
	if r.Body == nil {
		return domain.PaymentEvent{
			SessionID:         r.SessionID,
			AttemptID:         r.AttemptID,
			CheckoutReference: r.CheckoutReference,
			Status:            domain.PaymentEventStatus(strings.ToLower(r.Status)),
			ReceiptNumber:     r.ReceiptNumber,
			Amount:            r.Amount,
			Reason:            r.Reason,
		}
	}

	stk := r.Body.StkCallback
	ev := domain.PaymentEvent{
		SessionID:         r.SessionID,
		AttemptID:         r.AttemptID,
		CheckoutReference: stk.CheckoutRequestID,
	}
	if stk.ResultCode != 0 {
		ev.Status = domain.PaymentEventFailure
		ev.Reason = stk.ResultDesc
		return ev
	}
	ev.Status = domain.PaymentEventSuccess
	for _, item := range stk.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				ev.ReceiptNumber = s
			}
		case "Amount":
			if n, ok := item.Value.(float64); ok {
				ev.Amount = n
			}
		}
	}
	return ev
}

func NewPaymentHandler(service payments.PaymentUseCase, limiter gin.HandlerFunc, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, limiter: limiter, logger: logger}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	if h.limiter != nil {
		router.POST("/Mpesapay", h.limiter, h.initiate)
	} else {
		router.POST("/Mpesapay", h.initiate)
	}
	router.POST("/callback", h.callback)
}

func (h *PaymentHandler) initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.service.Initiate(c.Request.Context(), payments.InitiateInput{
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		SessionID:   req.SessionID,
		Email:       req.Email,
		GuestName:   req.GuestName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// callback is called by the gateway. The session and attempt it was issued
// for travel in the query string.
func (h *PaymentHandler) callback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ev := req.event()
	if s := c.Query("session"); s != "" {
		ev.SessionID = s
	}
	if a := c.Query("attempt"); a != "" {
		ev.AttemptID = a
	}

	if err := h.service.HandleCallback(c.Request.Context(), ev); err != nil {
		h.logger.Warn("payment callback rejected",
			zap.String("session", ev.SessionID),
			zap.String("attempt", ev.AttemptID),
			zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
