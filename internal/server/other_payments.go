package server

import (
	"net/http"
	"strings"

	otherpaymentdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type assignOtherPaymentRequest struct {
	StudentIDs []string        `json:"student_ids"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

func (s *Server) AssignOtherPayments(c *gin.Context) {
	var req assignOtherPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.otherPaymentSvc.Assign(c.Request.Context(), otherpaymentdomain.AssignOtherPaymentRequest{
		StudentIDs: req.StudentIDs,
		Name:       strings.TrimSpace(req.Name),
		Amount:     req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOtherPayments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		StudentID string `form:"student_id"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.otherPaymentSvc.List(c.Request.Context(), otherpaymentdomain.ListOtherPaymentRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		StudentID: strings.TrimSpace(query.StudentID),
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOtherPayment(c *gin.Context) {
	resp, err := s.otherPaymentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SettleOtherPayment(c *gin.Context) {
	resp, err := s.paymentSvc.SettleOtherPayment(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOtherPayment(c *gin.Context) {
	if err := s.otherPaymentSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
