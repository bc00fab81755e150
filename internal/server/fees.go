package server

import (
	"net/http"
	"strings"

	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListFees(c *gin.Context) {
	var query struct {
		pagination.Pagination
		BillingPeriodID string `form:"billing_period_id"`
		StudentID       string `form:"student_id"`
		Status          string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feeSvc.List(c.Request.Context(), feedomain.ListFeeRequest{
		PageToken:       query.PageToken,
		PageSize:        query.PageSize,
		BillingPeriodID: strings.TrimSpace(query.BillingPeriodID),
		StudentID:       strings.TrimSpace(query.StudentID),
		Status:          strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetFee(c *gin.Context) {
	resp, err := s.feeSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFee(c *gin.Context) {
	if err := s.feeSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) SettleFee(c *gin.Context) {
	resp, err := s.paymentSvc.SettleFee(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SweepOverdueFees(c *gin.Context) {
	resp, err := s.feeSvc.SweepOverdue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
