package server

import (
	"errors"
	"io"
	"net/http"

	paymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

const (
	headerWebhookSignature = "X-Webhook-Signature"
	maxWebhookBody         = 1 << 20
)

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.ProcessWebhook(c.Request.Context(), paymentdomain.WebhookRequest{
		Provider:  webhookProvider(c),
		Payload:   payload,
		Signature: c.GetHeader(headerWebhookSignature),
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"data": resp})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
