package server

import (
	"net/http"
	"strings"

	billingperioddomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/domain"
	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createBillingPeriodRequest struct {
	AcademicYearID string `json:"academic_year_id"`
	Month          int    `json:"month"`
	Label          string `json:"label"`
	DueDate        string `json:"due_date"`
	IsActive       *bool  `json:"is_active"`
}

type updateBillingPeriodRequest struct {
	Label    *string `json:"label"`
	DueDate  *string `json:"due_date"`
	IsActive *bool   `json:"is_active"`
}

type assignFeesRequest struct {
	StudentIDs []string        `json:"student_ids"`
	Amount     decimal.Decimal `json:"amount"`
}

func (s *Server) CreateBillingPeriod(c *gin.Context) {
	var req createBillingPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.periodSvc.Create(c.Request.Context(), billingperioddomain.CreateBillingPeriodRequest{
		AcademicYearID: strings.TrimSpace(req.AcademicYearID),
		Month:          req.Month,
		Label:          strings.TrimSpace(req.Label),
		DueDate:        strings.TrimSpace(req.DueDate),
		IsActive:       req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBillingPeriods(c *gin.Context) {
	var query struct {
		AcademicYearID string `form:"academic_year_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.periodSvc.List(c.Request.Context(), billingperioddomain.ListBillingPeriodRequest{
		AcademicYearID: strings.TrimSpace(query.AcademicYearID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillingPeriod(c *gin.Context) {
	resp, err := s.periodSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateBillingPeriod(c *gin.Context) {
	var req updateBillingPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.periodSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), billingperioddomain.UpdateBillingPeriodRequest{
		Label:    req.Label,
		DueDate:  req.DueDate,
		IsActive: req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteBillingPeriod(c *gin.Context) {
	if err := s.periodSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListAssignableStudents(c *gin.Context) {
	resp, err := s.feeSvc.AssignableStudents(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AssignFees(c *gin.Context) {
	var req assignFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.feeSvc.Assign(c.Request.Context(), feedomain.AssignFeesRequest{
		BillingPeriodID: strings.TrimSpace(c.Param("id")),
		StudentIDs:      req.StudentIDs,
		Amount:          req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
